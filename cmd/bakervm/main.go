// Command bakervm runs a bakerVM program image: it loads (or falls back to
// a built-in stock image), spins up the VM thread and the ebiten I/O
// thread, and joins them with golang.org/x/sync/errgroup: the process
// exits once both have returned, with status 1 if either returned an
// error. The I/O thread returns only when its window closes, so a VM
// error is reported after that.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ebitengine/hideconsole"
	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/bakervm/bakervm/internal/image"
	"github.com/bakervm/bakervm/internal/ioui"
	"github.com/bakervm/bakervm/internal/vm"
)

func main() {
	scale := flag.Float64("s", 0, "Override the image's default display scale (must be >= 1.0)")
	flag.Float64Var(scale, "scale", 0, "Alias for -s")
	debugPrint := flag.String("debug-print", "", "On each Pause, dump one of: value_index, stack, framebuffer")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bakervm [options] [image.bvm]\n\nRuns a bakerVM program image. With no image, runs the built-in stock image.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *scale != 0 && *scale < 1.0 {
		fatalf("-s/-scale must be >= 1.0, got %v", *scale)
	}
	if v := os.Getenv("BAKERVM_DEBUG_PRINT"); v != "" && *debugPrint == "" {
		*debugPrint = v
	}
	switch *debugPrint {
	case "", "value_index", "stack", "framebuffer":
	default:
		fatalf("BAKERVM_DEBUG_PRINT must be one of value_index, stack, framebuffer, got %q", *debugPrint)
	}

	img, err := loadImage(flag.Arg(0))
	if err != nil {
		fatalErrorChain(err)
	}
	if *scale != 0 {
		img.Config.DefaultScale = *scale
	}

	link := vm.NewLink()
	machine := vm.New(vm.Config{
		DisplayWidth:  img.Config.DisplayWidth,
		DisplayHeight: img.Config.DisplayHeight,
	}, img.Instructions, link)

	onPause := func(snap vm.DebugSnapshot) { printDebugSnapshot(*debugPrint, snap) }

	game := ioui.New(img.Config, link)

	var g errgroup.Group
	g.Go(func() error {
		defer link.Close()
		link.Arrive()
		return machine.Run(onPause)
	})
	g.Go(func() error {
		_ = hideconsole.Hide()
		return game.Run()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, ebiten.Termination) {
		fatalErrorChain(err)
	}
}

func loadImage(path string) (image.Image, error) {
	if path == "" {
		return image.Stock(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return image.Image{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return image.Decode(f)
}

func printDebugSnapshot(which string, snap vm.DebugSnapshot) {
	if which == "" {
		return
	}
	colour := term.IsTerminal(int(os.Stderr.Fd()))
	switch which {
	case "value_index":
		fmt.Fprintf(os.Stderr, "%s pc=%d value_index:\n", bold(colour, "[bakervm]"), snap.PC)
		for addr, val := range snap.ValueIndex {
			fmt.Fprintf(os.Stderr, "  [%d] = %+v\n", addr, val)
		}
	case "stack":
		fmt.Fprintf(os.Stderr, "%s pc=%d stack (top first):\n", bold(colour, "[bakervm]"), snap.PC)
		for i := len(snap.Stack) - 1; i >= 0; i-- {
			fmt.Fprintf(os.Stderr, "  %+v\n", snap.Stack[i])
		}
	case "framebuffer":
		fmt.Fprintf(os.Stderr, "%s pc=%d framebuffer %dx%d (%d pixels)\n",
			bold(colour, "[bakervm]"), snap.PC, snap.Width, snap.Height, len(snap.Framebuffer))
	}
}

func bold(colour bool, s string) string {
	if !colour {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "bakervm: "+format+"\n", args...)
	os.Exit(1)
}

// fatalErrorChain prints one line per error in err's Unwrap chain, per
// spec.md §7's "chained description" requirement, then exits 1.
func fatalErrorChain(err error) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(os.Stderr, "bakervm: %v\n", e)
	}
	os.Exit(1)
}
