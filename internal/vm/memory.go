package vm

import "github.com/bakervm/bakervm/internal/value"

// reservedSlotCount is N in spec.md §3: the first N ValueIndex addresses
// are preassigned system roles; addresses >= N are the program's local
// frame, reached through the base pointer.
const reservedSlotCount = 20

// Reserved slot roles, spec.md §3.
const (
	slotCursor      = 0
	slotDisplayW    = 1
	slotDisplayH    = 2
	slotMouseX      = 3
	slotMouseY      = 4
	slotMouseLeft   = 5
	slotMouseMiddle = 6
	slotMouseRight  = 7
)

// memory holds everything spec.md §3 lists as VM state: the operand
// stack, indexed scalar memory, the framebuffer, the base pointer, the
// held-keys set, the call stack and the compare register. It has no
// knowledge of channels or the fetch/decode loop — that's vm.go.
type memory struct {
	stack []value.Value

	slots   map[uint64]value.Value
	basePtr uint64

	framebuffer []value.RGB
	width       uint64
	height      uint64

	nextFrame []value.RGB
	dirty     bool

	heldKeys map[uint64]bool

	callStack []uint64

	// compare is set only by Cmp and never reset implicitly, so two
	// conditional jumps can both fire off one stale comparison.
	compare value.Ordering
}

func newMemory(width, height uint64) *memory {
	m := &memory{
		slots:       make(map[uint64]value.Value, reservedSlotCount),
		framebuffer: make([]value.RGB, width*height),
		width:       width,
		height:      height,
		heldKeys:    make(map[uint64]bool),
		compare:     value.None,
	}
	m.slots[slotCursor] = value.NewAddress(0)
	m.slots[slotDisplayW] = value.NewAddress(width)
	m.slots[slotDisplayH] = value.NewAddress(height)
	m.slots[slotMouseX] = value.NewAddress(0)
	m.slots[slotMouseY] = value.NewAddress(0)
	m.slots[slotMouseLeft] = value.NewBoolean(false)
	m.slots[slotMouseMiddle] = value.NewBoolean(false)
	m.slots[slotMouseRight] = value.NewBoolean(false)
	return m
}

// localInternal resolves a local ValueIndex address (addr >= N) to its
// internal slot key through the base-pointer rule in spec.md §3, and
// reports whether the access is legal.
func (m *memory) localInternal(addr uint64) (internal uint64, ok bool) {
	if m.basePtr == 0 {
		return 0, false
	}
	offset := addr - reservedSlotCount
	if offset > m.basePtr-1 {
		return 0, false
	}
	internal = (reservedSlotCount + m.basePtr - 1) - offset
	return internal, internal >= reservedSlotCount
}

// peekCursor reads ValueIndex(0) without consuming it. The framebuffer
// target needs the cursor on every access; the general ValueIndex read
// below is destructive by spec.md §4.2's convention, which would erase
// the draw position after a single pixel plot, so this bypasses that
// convention for the one address that must survive (see SPEC_FULL.md's
// Open Questions).
func (m *memory) peekCursor() uint64 {
	v, ok := m.slots[slotCursor]
	if !ok {
		return 0
	}
	return v.U
}

// read implements the read(target) primitive of spec.md §4.2. pc is used
// only to annotate any returned error.
func (m *memory) read(pc int64, t Target) (value.Value, error) {
	switch t.Kind {
	case TargetStack:
		if len(m.stack) == 0 {
			return value.Value{}, newErr(EmptyStack, pc, "pop from empty stack")
		}
		top := len(m.stack) - 1
		v := m.stack[top]
		m.stack = m.stack[:top]
		return v, nil

	case TargetValueIndex:
		internal, err := m.resolve(t.Addr)
		if err != nil {
			return value.Value{}, wrapErr(OutOfBounds, pc, err, "read ValueIndex(%d)", t.Addr)
		}
		v, ok := m.slots[internal]
		if !ok {
			return value.Value{}, newErr(OutOfBounds, pc, "ValueIndex(%d) has no value", t.Addr)
		}
		delete(m.slots, internal)
		return v, nil

	case TargetFramebuffer:
		cursor := m.peekCursor()
		if cursor >= uint64(len(m.framebuffer)) {
			return value.Value{}, newErr(OutOfBounds, pc, "framebuffer read at %d (len %d)", cursor, len(m.framebuffer))
		}
		return value.NewColor(m.framebuffer[cursor]), nil

	case TargetBasePointer:
		return value.NewAddress(m.basePtr), nil

	case TargetKeyRegister:
		return value.NewBoolean(m.heldKeys[t.Addr]), nil

	default:
		return value.Value{}, newErr(TypeMismatch, pc, "unknown target kind %d", t.Kind)
	}
}

// write implements the write(target, v) primitive of spec.md §4.2.
func (m *memory) write(pc int64, t Target, v value.Value) error {
	switch t.Kind {
	case TargetStack:
		m.stack = append(m.stack, v)
		return nil

	case TargetValueIndex:
		internal, err := m.resolve(t.Addr)
		if err != nil {
			return wrapErr(OutOfBounds, pc, err, "write ValueIndex(%d)", t.Addr)
		}
		m.slots[internal] = v
		return nil

	case TargetFramebuffer:
		if v.Kind != value.Color {
			return newErr(TypeMismatch, pc, "framebuffer write requires Color, got %s", v.Kind)
		}
		cursor := m.peekCursor()
		if cursor >= uint64(len(m.framebuffer)) {
			// Silently dropped: spec.md §4.2's graphics tolerance.
			return nil
		}
		m.framebuffer[cursor] = v.C
		return nil

	case TargetBasePointer:
		if v.Kind != value.Address {
			return newErr(TypeMismatch, pc, "base pointer write requires Address, got %s", v.Kind)
		}
		m.basePtr = v.U
		return nil

	case TargetKeyRegister:
		// Read-only region: write is a no-op, spec.md §4.2.
		return nil

	default:
		return newErr(TypeMismatch, pc, "unknown target kind %d", t.Kind)
	}
}

// resolve maps a ValueIndex address to its internal slot key: reserved
// addresses map to themselves, local addresses go through the
// base-pointer rule.
func (m *memory) resolve(addr uint64) (uint64, error) {
	if addr < reservedSlotCount {
		return addr, nil
	}
	internal, ok := m.localInternal(addr)
	if !ok {
		return 0, &Error{Kind: OutOfBounds, PC: -1, Msg: "local slot outside allocated frame"}
	}
	return internal, nil
}

// flushFrame snapshots the live framebuffer into nextFrame and marks it
// dirty, per Sig(FlushFrame) in spec.md §4.6.
func (m *memory) flushFrame() {
	snap := make([]value.RGB, len(m.framebuffer))
	copy(snap, m.framebuffer)
	m.nextFrame = snap
	m.dirty = true
}
