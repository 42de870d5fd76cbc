package vm

import (
	"sync"

	"github.com/bakervm/bakervm/internal/value"
)

// Frame is an immutable snapshot of the framebuffer, row-major, ready for
// the I/O thread to render (spec.md §6's rendering contract).
type Frame struct {
	Width, Height uint64
	Pixels        []value.RGB
}

func newFrame(width, height uint64, pixels []value.RGB) Frame {
	cp := make([]value.RGB, len(pixels))
	copy(cp, pixels)
	return Frame{Width: width, Height: height, Pixels: cp}
}

// Link is the pair of channels and the one-shot barrier connecting the
// VM thread to the I/O thread, per spec.md §5. Frames is bounded at
// capacity 1 (mandatory for the back-pressure spec.md describes: the VM
// never blocks sending a frame during normal execution, it just retries
// next iteration). Events is unbounded so the I/O thread never blocks on
// a busy VM; it's built from eventQueue (eventqueue.go) since no channel in Go's
// standard library is unbounded and nothing in the example pack ships a
// ready-made unbounded channel type (see DESIGN.md). Snapshots carries
// DebugSnapshot values the same way Frames carries Frame values: the VM
// thread is the only writer, by value, never a live accessor shared
// across the thread boundary (spec.md §5/§9's "no shared mutable
// memory" rule). done is closed by Close so a blocking Frames send made
// while the VM is paused can observe a disconnected I/O side instead of
// hanging forever.
type Link struct {
	Frames    chan Frame
	Snapshots chan DebugSnapshot

	events *eventQueue

	barrier sync.WaitGroup

	done      chan struct{}
	closeOnce sync.Once
}

// NewLink constructs a fresh VM<->I/O link, its startup barrier armed for
// exactly two arrivals.
func NewLink() *Link {
	l := &Link{
		Frames:    make(chan Frame, 1),
		Snapshots: make(chan DebugSnapshot, 1),
		events:    newEventQueue(),
		done:      make(chan struct{}),
	}
	l.barrier.Add(2)
	return l
}

// Arrive blocks until both the VM thread and the I/O thread have called
// it once. This is the "one-shot two-party synchronization barrier" of
// spec.md §2 / §5: the VM must not emit frames before the renderer
// window exists. A sync.WaitGroup armed for 2 gives this directly — each
// side's Done() plus Wait() rendezvous at the second arrival, unlike a
// sync.Once gate, which would release the first caller immediately.
func (l *Link) Arrive() {
	l.barrier.Done()
	l.barrier.Wait()
}

// SendEvent is called by the I/O thread to push an Event toward the VM.
// It never blocks.
func (l *Link) SendEvent(ev Event) { l.events.push(ev) }

// Close marks the link as disconnected from the I/O side: pending and
// future event receives fail with ChannelDisconnected, matching
// spec.md §5's "disconnection halts the VM". It also unblocks any
// pending blocking Frames send (see handleEvents) so a gone renderer
// can't hang the VM thread.
func (l *Link) Close() {
	l.events.close()
	l.closeOnce.Do(func() { close(l.done) })
}

// PublishSnapshot gives the I/O thread the VM's latest DebugSnapshot by
// value, overwriting whatever the I/O thread hasn't yet drained. It
// never blocks the VM thread.
func (l *Link) PublishSnapshot(s DebugSnapshot) {
	select {
	case l.Snapshots <- s:
		return
	default:
	}
	select {
	case <-l.Snapshots:
	default:
	}
	select {
	case l.Snapshots <- s:
	default:
	}
}

// tryRecvEvent is the VM's non-blocking receive used during normal
// execution.
func (l *Link) tryRecvEvent() (Event, bool, error) {
	return l.events.tryPop()
}

// recvEvent is the VM's blocking receive used only while paused.
func (l *Link) recvEvent() (Event, error) {
	return l.events.pop()
}
