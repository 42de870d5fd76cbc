package vm

import (
	"math"
	"testing"

	"github.com/bakervm/bakervm/internal/value"
)

func newTestVM(instructions []Instruction) *VM {
	return New(Config{DisplayWidth: 160, DisplayHeight: 100}, instructions, NewLink())
}

func mustRun(t *testing.T, v *VM) {
	t.Helper()
	if err := v.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestArithmeticScenario(t *testing.T) {
	v := newTestVM([]Instruction{
		Push(Stack(), value.NewInteger(7)),
		Push(Stack(), value.NewInteger(5)),
		Add(Stack(), Stack()),
		Halt(),
	})
	mustRun(t, v)
	top, err := v.read(Stack())
	if err != nil {
		t.Fatalf("read top: %v", err)
	}
	if top.Kind != value.Integer || top.I != 12 {
		t.Fatalf("top = %v, want Integer(12)", top)
	}
}

// TestConditionalJumpScenario follows spec.md §8 scenario 2, with the
// jump target corrected to point at the "push 1" instruction (index 6):
// the literal index from spec.md §8 would have JmpEq land on an
// unconditional Halt, which can't produce the stated outcome of
// top=Integer(1).
func TestConditionalJumpScenario(t *testing.T) {
	v := newTestVM([]Instruction{
		Push(Stack(), value.NewInteger(3)), // 0
		Push(Stack(), value.NewInteger(3)), // 1
		Cmp(Stack(), Stack()),              // 2
		JmpEq(6),                           // 3
		Push(Stack(), value.NewInteger(0)), // 4
		Halt(),                             // 5
		Push(Stack(), value.NewInteger(1)), // 6
		Halt(),                             // 7
	})
	mustRun(t, v)
	top, err := v.read(Stack())
	if err != nil {
		t.Fatalf("read top: %v", err)
	}
	if top.Kind != value.Integer || top.I != 1 {
		t.Fatalf("top = %v, want Integer(1)", top)
	}
}

func TestCallRetScenario(t *testing.T) {
	v := newTestVM([]Instruction{
		Call(3),                            // 0
		Push(Stack(), value.NewInteger(9)), // 1
		Halt(),                             // 2
		Push(Stack(), value.NewInteger(1)), // 3
		Ret(),                              // 4
	})
	mustRun(t, v)
	top, err := v.read(Stack())
	if err != nil || top.I != 9 {
		t.Fatalf("top = %v, %v, want Integer(9)", top, err)
	}
	bottom, err := v.read(Stack())
	if err != nil || bottom.I != 1 {
		t.Fatalf("bottom = %v, %v, want Integer(1)", bottom, err)
	}
}

func TestFramebufferPlotScenario(t *testing.T) {
	v := newTestVM([]Instruction{
		Push(ValueIndex(0), value.NewAddress(161)),
		Push(Framebuffer(), value.NewColor(value.RGB{R: 255, G: 255, B: 255})),
		Sig(SignalFlushFrame),
		Pause(),
	})
	go v.link.SendEvent(HaltEvent())

	if err := v.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	frame := <-v.link.Frames
	for i, px := range frame.Pixels {
		if i == 161 {
			if px != (value.RGB{R: 255, G: 255, B: 255}) {
				t.Fatalf("pixel 161 = %v, want white", px)
			}
		} else if px != (value.RGB{}) {
			t.Fatalf("pixel %d = %v, want black", i, px)
		}
	}
}

func TestKeyEventScenario(t *testing.T) {
	v := newTestVM([]Instruction{
		Pause(),
		Dup(KeyRegister(65)),
		Halt(),
	})
	go v.link.SendEvent(KeyDownEvent(65))

	if err := v.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	top, err := v.read(Stack())
	if err != nil || top.Kind != value.Boolean || !top.B {
		t.Fatalf("top = %v, %v, want Boolean(true)", top, err)
	}
}

func TestKeyUpClearsRegister(t *testing.T) {
	v := newTestVM(nil)
	if err := v.applyEvent(KeyDownEvent(65)); err != nil {
		t.Fatal(err)
	}
	if err := v.applyEvent(KeyUpEvent(65)); err != nil {
		t.Fatal(err)
	}
	got, err := v.read(KeyRegister(65))
	if err != nil || got.B {
		t.Fatalf("KeyRegister(65) = %v, %v, want Boolean(false) after KeyUp", got, err)
	}
}

func TestLocalAllocationScenario(t *testing.T) {
	v := newTestVM([]Instruction{
		Push(Stack(), value.NewAddress(3)),
		Add(BasePointer(), Stack()),
		Halt(),
	})
	mustRun(t, v)
	if v.mem.basePtr != 3 {
		t.Fatalf("basePtr = %d, want 3", v.mem.basePtr)
	}

	const n = reservedSlotCount
	for i, addr := range []uint64{n, n + 1, n + 2} {
		if err := v.write(ValueIndex(addr), value.NewInteger(int64(i))); err != nil {
			t.Fatalf("write ValueIndex(%d): %v", addr, err)
		}
	}
	for i, addr := range []uint64{n, n + 1, n + 2} {
		got, err := v.read(ValueIndex(addr))
		if err != nil {
			t.Fatalf("read ValueIndex(%d): %v", addr, err)
		}
		if got.I != int64(i) {
			t.Fatalf("ValueIndex(%d) = %d, want %d", addr, got.I, i)
		}
	}
	if _, err := v.read(ValueIndex(n + 3)); err == nil {
		t.Fatal("expected OutOfBounds reading ValueIndex(N+3)")
	}
}

func TestEmptyStackPop(t *testing.T) {
	v := newTestVM(nil)
	if _, err := v.read(Stack()); err == nil {
		t.Fatal("expected EmptyStack error")
	}
}

func TestFramebufferWriteExactlyOutOfRangeIsSilentlyDropped(t *testing.T) {
	v := newTestVM(nil)
	cursor := v.mem.width * v.mem.height
	if err := v.write(ValueIndex(0), value.NewAddress(cursor)); err != nil {
		t.Fatalf("set cursor: %v", err)
	}
	if err := v.write(Framebuffer(), value.NewColor(value.RGB{R: 1})); err != nil {
		t.Fatalf("expected no error writing out-of-range pixel, got %v", err)
	}
}

func TestFramebufferReadExactlyOutOfRangeFails(t *testing.T) {
	v := newTestVM(nil)
	cursor := v.mem.width * v.mem.height
	if err := v.write(ValueIndex(0), value.NewAddress(cursor)); err != nil {
		t.Fatalf("set cursor: %v", err)
	}
	if _, err := v.read(Framebuffer()); err == nil {
		t.Fatal("expected OutOfBounds reading past framebuffer end")
	}
}

func TestDivisionByZeroOnFloatsDoesNotError(t *testing.T) {
	v := newTestVM([]Instruction{
		Push(Stack(), value.NewFloat(1)),
		Push(Stack(), value.NewFloat(0)),
		Div(Stack(), Stack()),
		Halt(),
	})
	mustRun(t, v)
	top, err := v.read(Stack())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !math.IsInf(top.F, 1) {
		t.Fatalf("1/0 = %v, want +Inf", top.F)
	}
}

func TestSwpIsInvolutive(t *testing.T) {
	v := newTestVM(nil)
	if err := v.write(ValueIndex(0), value.NewAddress(1)); err != nil {
		t.Fatal(err)
	}
	if err := v.write(ValueIndex(1), value.NewAddress(2)); err != nil {
		t.Fatal(err)
	}

	if err := v.execSwp(Swp(ValueIndex(0), ValueIndex(1))); err != nil {
		t.Fatalf("swp: %v", err)
	}
	a, _ := v.read(ValueIndex(0))
	b, _ := v.read(ValueIndex(1))
	if a.U != 2 || b.U != 1 {
		t.Fatalf("after one swap: ValueIndex(0)=%v ValueIndex(1)=%v, want (2, 1)", a, b)
	}
	if err := v.write(ValueIndex(0), a); err != nil {
		t.Fatal(err)
	}
	if err := v.write(ValueIndex(1), b); err != nil {
		t.Fatal(err)
	}

	if err := v.execSwp(Swp(ValueIndex(0), ValueIndex(1))); err != nil {
		t.Fatalf("swp back: %v", err)
	}
	a, _ = v.read(ValueIndex(0))
	b, _ = v.read(ValueIndex(1))
	if a.U != 1 || b.U != 2 {
		t.Fatalf("after second swap: ValueIndex(0)=%v ValueIndex(1)=%v, want (1, 2)", a, b)
	}
}

func TestDupGrowsStackBySameValue(t *testing.T) {
	v := newTestVM(nil)
	if err := v.write(ValueIndex(0), value.NewAddress(5)); err != nil {
		t.Fatal(err)
	}
	if err := v.execDup(Dup(ValueIndex(0))); err != nil {
		t.Fatalf("dup: %v", err)
	}
	top, err := v.read(Stack())
	if err != nil || top.U != 5 {
		t.Fatalf("top = %v, %v, want Address(5)", top, err)
	}
	restored, err := v.read(ValueIndex(0))
	if err != nil || restored.U != 5 {
		t.Fatalf("ValueIndex(0) = %v, %v, want unchanged Address(5)", restored, err)
	}
}

func TestCompareRegisterStaleBetweenJumps(t *testing.T) {
	v := newTestVM([]Instruction{
		Push(Stack(), value.NewInteger(1)), // 0
		Push(Stack(), value.NewInteger(1)), // 1
		Cmp(Stack(), Stack()),              // 2
		JmpEq(5),                           // 3
		Halt(),                             // 4
		Nop(),                              // 5
		JmpEq(8),                           // 6: fires off the same stale Equal
		Halt(),                             // 7
		Nop(),                              // 8
	})
	mustRun(t, v)
	if v.pc != 9 {
		t.Fatalf("pc = %d, want 9 (second JmpEq fired off the stale compare register, then the Nop at 8 ran)", v.pc)
	}
}

func TestHaltStopsTheLoop(t *testing.T) {
	v := newTestVM([]Instruction{Halt(), Push(Stack(), value.NewInteger(1))})
	mustRun(t, v)
	if !v.halted {
		t.Fatal("expected halted = true")
	}
	if len(v.mem.stack) != 0 {
		t.Fatal("instruction after Halt must not execute")
	}
}

// TestCmpStackOperandsRestoredInOriginalOrder guards against a restore-order
// bug: Cmp must be non-destructive in effect even for two distinct
// TargetStack operands, not just leave the same two values present in
// transposed positions.
func TestCmpStackOperandsRestoredInOriginalOrder(t *testing.T) {
	v := newTestVM(nil)
	if err := v.write(Stack(), value.NewInteger(1)); err != nil {
		t.Fatal(err)
	}
	if err := v.write(Stack(), value.NewInteger(2)); err != nil {
		t.Fatal(err)
	}
	if err := v.execCmp(Cmp(Stack(), Stack())); err != nil {
		t.Fatalf("cmp: %v", err)
	}
	top, err := v.read(Stack())
	if err != nil || top.I != 2 {
		t.Fatalf("top = %v, %v, want Integer(2) (original top restored)", top, err)
	}
	bottom, err := v.read(Stack())
	if err != nil || bottom.I != 1 {
		t.Fatalf("bottom = %v, %v, want Integer(1) (original order restored)", bottom, err)
	}
}

// TestPausedFrameSendUnblocksOnDisconnect guards against a hang: if the
// I/O side is gone by the time a paused VM tries to flush its last dirty
// frame, the VM must surface ChannelDisconnected instead of blocking on
// the full Frames channel forever.
func TestPausedFrameSendUnblocksOnDisconnect(t *testing.T) {
	v := newTestVM([]Instruction{
		Push(ValueIndex(0), value.NewAddress(0)),
		Push(Framebuffer(), value.NewColor(value.RGB{R: 1})),
		Sig(SignalFlushFrame),
		Pause(),
	})
	v.link.Frames <- Frame{} // fill the capacity-1 channel so the next send would block
	close(v.link.done)      // simulate a gone I/O side without touching the (separate) event queue

	err := v.Run(nil)
	if err == nil {
		t.Fatal("expected ChannelDisconnected, got nil")
	}
	verr, ok := err.(*Error)
	if !ok || verr.Kind != ChannelDisconnected {
		t.Fatalf("err = %v, want *Error{Kind: ChannelDisconnected}", err)
	}
}

func TestRetWithEmptyCallStackFails(t *testing.T) {
	v := newTestVM([]Instruction{Ret()})
	if err := v.Run(nil); err == nil {
		t.Fatal("expected EmptyCallStack error")
	}
}
