package image

import (
	"github.com/bakervm/bakervm/internal/value"
	"github.com/bakervm/bakervm/internal/vm"
)

// Stock returns the built-in image cmd/bakervm runs when no path is given
// on the command line (spec.md §6): a small colour test pattern — four
// quadrants of solid colour on a 160x100 canvas — followed by Pause, so
// running it with no arguments proves the whole pipeline end-to-end with
// no external file required.
func Stock() Image {
	const w, h uint64 = 160, 100

	b := NewBuilder()
	quadrant := func(x0, y0, x1, y1 uint64, c value.RGB) {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				b.Emit(vm.Push(vm.ValueIndex(0), value.NewAddress(y*w+x)))
				b.Emit(vm.Push(vm.Framebuffer(), value.NewColor(c)))
			}
		}
	}
	quadrant(0, 0, w/2, h/2, value.RGB{R: 200, G: 40, B: 40})
	quadrant(w/2, 0, w, h/2, value.RGB{R: 40, G: 200, B: 40})
	quadrant(0, h/2, w/2, h, value.RGB{R: 40, G: 40, B: 200})
	quadrant(w/2, h/2, w, h, value.RGB{R: 220, G: 220, B: 40})
	b.Emit(vm.Sig(vm.SignalFlushFrame))
	b.Emit(vm.Pause())
	b.Emit(vm.Halt())

	return New(Config{
		Title:         "bakerVM (stock image)",
		DisplayWidth:  w,
		DisplayHeight: h,
		DefaultScale:  4,
		HideCursor:    true,
		InputEnabled:  true,
	}, b.Build())
}
