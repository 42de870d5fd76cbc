// Package vm implements bakerVM's runtime: the typed value stack machine
// described in spec.md — fetch/decode/execute loop, call stack, compare
// register, the five-target memory model, and the event-driven
// pause/resume handshake with an I/O thread across the Link in frame.go.
package vm

import (
	"github.com/bakervm/bakervm/internal/value"
)

// Config is the subset of an image's configuration the VM core needs to
// boot: display geometry. Title, scale and window chrome belong to the
// I/O front-end, not the VM (spec.md §2's component split).
type Config struct {
	DisplayWidth  uint64
	DisplayHeight uint64
}

// VM is bakerVM's runtime state: the fetch/decode/execute loop, its
// memory model, and the link to the I/O thread. There is no other
// mutable global state (spec.md §9); a fresh VM is the only way to
// reset one.
type VM struct {
	instructions []Instruction
	pc           int64
	jumped       bool
	halted       bool
	paused       bool

	mem *memory

	link *Link
}

// New constructs a VM ready to Run instructions against cfg's display
// geometry, wired to link for frame/event exchange.
func New(cfg Config, instructions []Instruction, link *Link) *VM {
	return &VM{
		instructions: instructions,
		mem:          newMemory(cfg.DisplayWidth, cfg.DisplayHeight),
		link:         link,
	}
}

// Halted reports whether the VM has stopped executing.
func (v *VM) Halted() bool { return v.halted }

// PC returns the current program counter.
func (v *VM) PC() int64 { return v.pc }

// DebugSnapshot is everything BAKERVM_DEBUG_PRINT can report on Pause
// (spec.md §6): the full scalar memory map, the operand stack and the
// framebuffer.
type DebugSnapshot struct {
	ValueIndex  map[uint64]value.Value
	Stack       []value.Value
	Framebuffer []value.RGB
	Width       uint64
	Height      uint64
	BasePointer uint64
	PC          int64
}

// Snapshot captures the VM's current state for debug printing. It never
// mutates the VM (unlike the destructive ValueIndex read instructions
// use internally).
func (v *VM) Snapshot() DebugSnapshot {
	slots := make(map[uint64]value.Value, len(v.mem.slots))
	for k, val := range v.mem.slots {
		slots[k] = val
	}
	stack := make([]value.Value, len(v.mem.stack))
	copy(stack, v.mem.stack)
	fb := make([]value.RGB, len(v.mem.framebuffer))
	copy(fb, v.mem.framebuffer)
	return DebugSnapshot{
		ValueIndex:  slots,
		Stack:       stack,
		Framebuffer: fb,
		Width:       v.mem.width,
		Height:      v.mem.height,
		BasePointer: v.mem.basePtr,
		PC:          v.pc,
	}
}

// Run executes instructions until the VM halts or a fatal error occurs,
// implementing the loop in spec.md §4.4. onPause, if non-nil, is called
// each time the VM is about to block waiting for an event (used by the
// CLI to print BAKERVM_DEBUG_PRINT state).
func (v *VM) Run(onPause func(DebugSnapshot)) error {
	for v.pc < int64(len(v.instructions)) && !v.halted {
		instr := v.instructions[v.pc]
		if err := v.dispatch(instr); err != nil {
			return err
		}
		v.advance()

		if v.mem.dirty {
			select {
			case v.link.Frames <- newFrame(v.mem.width, v.mem.height, v.mem.nextFrame):
				v.mem.dirty = false
			default:
				// Bounded capacity-1 channel: retry next iteration
				// instead of blocking (spec.md §4.6).
			}
		}
		v.link.PublishSnapshot(v.Snapshot())

		if err := v.handleEvents(onPause); err != nil {
			return err
		}
	}
	return nil
}

// advance implements spec.md §4.3's pc discipline: a jump-class
// instruction locks pc at its target, consumed here instead of
// incrementing; everything else advances by exactly one.
func (v *VM) advance() {
	if v.jumped {
		v.jumped = false
		return
	}
	v.pc++
}

func (v *VM) jumpTo(addr uint64) {
	v.pc = int64(addr)
	v.jumped = true
}

func (v *VM) read(t Target) (value.Value, error) { return v.mem.read(v.pc, t) }
func (v *VM) write(t Target, val value.Value) error {
	return v.mem.write(v.pc, t, val)
}

func (v *VM) dispatch(instr Instruction) error {
	switch instr.Op {
	case OpAdd, OpSub, OpDiv, OpMul, OpRem:
		return v.execArith(instr)
	case OpCmp:
		return v.execCmp(instr)
	case OpJmp:
		v.jumpTo(instr.Addr)
		return nil
	case OpJmpLt:
		return v.execCondJump(instr.Addr, value.Less)
	case OpJmpGt:
		return v.execCondJump(instr.Addr, value.Greater)
	case OpJmpEq:
		return v.execCondJump(instr.Addr, value.Equal)
	case OpJmpLtEq:
		return v.execCondJumpAny(instr.Addr, value.Less, value.Equal)
	case OpJmpGtEq:
		return v.execCondJumpAny(instr.Addr, value.Greater, value.Equal)
	case OpCall:
		v.mem.callStack = append(v.mem.callStack, uint64(v.pc)+1)
		v.jumpTo(instr.Addr)
		return nil
	case OpRet:
		return v.execRet()
	case OpPush:
		return v.write(instr.Dest, instr.Value)
	case OpMov:
		return v.execMov(instr)
	case OpSwp:
		return v.execSwp(instr)
	case OpDup:
		return v.execDup(instr)
	case OpCast:
		return v.execCast(instr)
	case OpHalt:
		v.halted = true
		return nil
	case OpPause:
		v.paused = true
		return nil
	case OpNop:
		return nil
	case OpSig:
		return v.execSig(instr)
	default:
		return newErr(TypeMismatch, v.pc, "unknown opcode %d", instr.Op)
	}
}

// execArith implements Add/Sub/Div/Mul/Rem: read(src), then read(dest),
// then write(dest, dest OP src), per spec.md §4.3.
func (v *VM) execArith(instr Instruction) error {
	op := arithOpFor(instr.Op)
	srcVal, err := v.read(instr.Src)
	if err != nil {
		return err
	}
	destVal, err := v.read(instr.Dest)
	if err != nil {
		return err
	}
	result, err := value.Arith(op, destVal, srcVal)
	if err != nil {
		return annotate(v.pc, err)
	}
	return v.write(instr.Dest, result)
}

func arithOpFor(op Opcode) value.Op {
	switch op {
	case OpAdd:
		return value.OpAdd
	case OpSub:
		return value.OpSub
	case OpDiv:
		return value.OpDiv
	case OpMul:
		return value.OpMul
	case OpRem:
		return value.OpRem
	default:
		return value.OpAdd
	}
}

// execCmp reads both operands, requires a shared variant, sets the
// compare register, then restores both slots to their prior values
// (spec.md §4.3: "read both (non-destructively in effect: re-write them
// back)").
func (v *VM) execCmp(instr Instruction) error {
	a, err := v.read(instr.Dest)
	if err != nil {
		return err
	}
	b, err := v.read(instr.Src)
	if err != nil {
		// Restore what we already consumed before surfacing the error.
		_ = v.write(instr.Dest, a)
		return err
	}
	ord, cmpErr := value.Compare(a, b)
	// Restore in the reverse of read order: Dest was read first (for a
	// Stack-Stack comparison, the original top) and Src second (the
	// original second-from-top), so Src must go back first, or a
	// Stack-Stack comparison would leave its two operands transposed
	// (spec.md §4.3's "non-destructive in effect" contract).
	if err := v.write(instr.Src, b); err != nil {
		return err
	}
	if err := v.write(instr.Dest, a); err != nil {
		return err
	}
	if cmpErr != nil {
		return annotate(v.pc, cmpErr)
	}
	v.mem.compare = ord
	return nil
}

func (v *VM) execCondJump(addr uint64, want value.Ordering) error {
	if v.mem.compare == want {
		v.jumpTo(addr)
	}
	return nil
}

func (v *VM) execCondJumpAny(addr uint64, a, b value.Ordering) error {
	if v.mem.compare == a || v.mem.compare == b {
		v.jumpTo(addr)
	}
	return nil
}

func (v *VM) execRet() error {
	n := len(v.mem.callStack)
	if n == 0 {
		return newErr(EmptyCallStack, v.pc, "return with empty call stack")
	}
	addr := v.mem.callStack[n-1]
	v.mem.callStack = v.mem.callStack[:n-1]
	v.jumpTo(addr)
	return nil
}

func (v *VM) execMov(instr Instruction) error {
	val, err := v.read(instr.Src)
	if err != nil {
		return err
	}
	return v.write(instr.Dest, val)
}

func (v *VM) execSwp(instr Instruction) error {
	a, err := v.read(instr.Dest)
	if err != nil {
		return err
	}
	b, err := v.read(instr.Src)
	if err != nil {
		_ = v.write(instr.Dest, a)
		return err
	}
	if err := v.write(instr.Src, a); err != nil {
		return err
	}
	return v.write(instr.Dest, b)
}

func (v *VM) execDup(instr Instruction) error {
	val, err := v.read(instr.Dest)
	if err != nil {
		return err
	}
	if err := v.write(Stack(), val); err != nil {
		return err
	}
	return v.write(instr.Dest, val)
}

func (v *VM) execCast(instr Instruction) error {
	val, err := v.read(instr.Dest)
	if err != nil {
		return err
	}
	return v.write(instr.Dest, value.Cast(val, instr.Type))
}

func (v *VM) execSig(instr Instruction) error {
	switch instr.Signal {
	case SignalFlushFrame:
		v.mem.flushFrame()
		return nil
	default:
		return newErr(TypeMismatch, v.pc, "unknown signal %d", instr.Signal)
	}
}

// handleEvents implements spec.md §4.5: non-blocking by default, but
// while paused it first flushes any dirty frame (so the renderer sees
// the VM's last frame before it sleeps) — blocking if the frame channel
// has no room, but bailing out with ChannelDisconnected if link.Close
// fires first instead of hanging on a gone renderer — and then blocks
// for exactly one event before resuming.
func (v *VM) handleEvents(onPause func(DebugSnapshot)) error {
	if !v.paused {
		ev, ok, err := v.link.tryRecvEvent()
		if err != nil {
			return annotate(v.pc, err)
		}
		if !ok {
			return nil
		}
		return v.applyEvent(ev)
	}

	if v.mem.dirty {
		select {
		case v.link.Frames <- newFrame(v.mem.width, v.mem.height, v.mem.nextFrame):
			v.mem.dirty = false
		case <-v.link.done:
			return newErr(ChannelDisconnected, v.pc, "frame channel disconnected while paused")
		}
	}
	if onPause != nil {
		onPause(v.Snapshot())
	}

	ev, err := v.link.recvEvent()
	if err != nil {
		return annotate(v.pc, err)
	}
	if err := v.applyEvent(ev); err != nil {
		return err
	}
	v.paused = false
	return nil
}

// annotate wraps a lower-level error (from the value package or the
// event queue) with the instruction index active when it surfaced,
// satisfying spec.md §7's "error messages describe ... the instruction
// index".
func annotate(pc int64, err error) error {
	if verr, ok := err.(*Error); ok {
		if verr.PC < 0 {
			verr.PC = pc
		}
		return verr
	}
	switch e := err.(type) {
	case *value.TypeMismatchError:
		return wrapErr(TypeMismatch, pc, e, "%s", e.Error())
	case *value.UnsupportedOperationError:
		return wrapErr(UnsupportedOperation, pc, e, "%s", e.Error())
	default:
		return newErr(TypeMismatch, pc, "%v", err)
	}
}
