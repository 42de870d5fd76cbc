package vm

import "github.com/bakervm/bakervm/internal/value"

// MouseButton identifies which mouse button a MouseDown/MouseUp event
// refers to. The only legal codes are 1 (left), 2 (middle) and 3
// (right), per spec.md §4.5; anything else is UnknownMouseButton.
type MouseButton uint8

const (
	MouseLeft   MouseButton = 1
	MouseMiddle MouseButton = 2
	MouseRight  MouseButton = 3
)

// EventKind discriminates the event vocabulary the I/O thread emits into
// the VM (spec.md §4.5, §6).
type EventKind uint8

const (
	EventHalt EventKind = iota
	EventKeyDown
	EventKeyUp
	EventMouseDown
	EventMouseUp
	EventMouseMove
)

// Event is one message the I/O thread sends to the VM over the unbounded
// events channel. The original Rust bakerVM calls this type Interrupt.
type Event struct {
	Kind   EventKind
	Code   uint64 // KeyDown/KeyUp key code
	X, Y   uint64 // MouseDown/MouseUp/MouseMove, logical display pixels
	Button MouseButton
}

func HaltEvent() Event                    { return Event{Kind: EventHalt} }
func KeyDownEvent(code uint64) Event      { return Event{Kind: EventKeyDown, Code: code} }
func KeyUpEvent(code uint64) Event        { return Event{Kind: EventKeyUp, Code: code} }
func MouseDownEvent(x, y uint64, b MouseButton) Event {
	return Event{Kind: EventMouseDown, X: x, Y: y, Button: b}
}
func MouseUpEvent(x, y uint64, b MouseButton) Event {
	return Event{Kind: EventMouseUp, X: x, Y: y, Button: b}
}
func MouseMoveEvent(x, y uint64) Event { return Event{Kind: EventMouseMove, X: x, Y: y} }

// applyEvent mutates VM state in response to one Event, per spec.md
// §4.5. It never blocks and never touches channels.
func (v *VM) applyEvent(ev Event) error {
	switch ev.Kind {
	case EventHalt:
		v.halted = true
		return nil

	case EventKeyDown:
		v.mem.heldKeys[ev.Code] = true
		return nil

	case EventKeyUp:
		delete(v.mem.heldKeys, ev.Code)
		return nil

	case EventMouseDown:
		return v.applyMouse(ev, true)

	case EventMouseUp:
		return v.applyMouse(ev, false)

	case EventMouseMove:
		v.mem.slots[slotMouseX] = value.NewAddress(ev.X)
		v.mem.slots[slotMouseY] = value.NewAddress(ev.Y)
		return nil

	default:
		return newErr(TypeMismatch, v.pc, "unknown event kind %d", ev.Kind)
	}
}

func (v *VM) applyMouse(ev Event, down bool) error {
	v.mem.slots[slotMouseX] = value.NewAddress(ev.X)
	v.mem.slots[slotMouseY] = value.NewAddress(ev.Y)
	slot, err := buttonSlot(ev.Button)
	if err != nil {
		return wrapErr(UnknownMouseButton, v.pc, err, "mouse event with button %d", ev.Button)
	}
	v.mem.slots[slot] = value.NewBoolean(down)
	return nil
}

func buttonSlot(b MouseButton) (uint64, error) {
	switch b {
	case MouseLeft:
		return slotMouseLeft, nil
	case MouseMiddle:
		return slotMouseMiddle, nil
	case MouseRight:
		return slotMouseRight, nil
	default:
		return 0, &Error{Kind: UnknownMouseButton, PC: -1, Msg: "button code must be 1, 2 or 3"}
	}
}
