// Package ioui is bakerVM's I/O thread: an ebiten window that renders the
// VM's Frame stream and turns keyboard/mouse activity into vm.Event,
// driving a Color framebuffer and KeyDown/KeyUp/MouseDown/MouseUp/MouseMove
// vocabulary from a single game loop.
package ioui

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"

	"github.com/bakervm/bakervm/internal/image"
	"github.com/bakervm/bakervm/internal/value"
	"github.com/bakervm/bakervm/internal/vm"
)

// Game is the ebiten.Game implementation driving bakerVM's window. It owns
// no VM state directly: it only renders whatever Frame last arrived on
// link.Frames and forwards input as Event over link.SendEvent, the same
// split spec.md §5 draws between the VM thread and the I/O thread.
type Game struct {
	cfg  image.Config
	link *vm.Link

	mu     sync.Mutex
	latest vm.Frame
	canvas *ebiten.Image

	debugOn        bool
	debugText      string
	latestSnapshot vm.DebugSnapshot
	haveSnapshot   bool

	clipboardOnce sync.Once
	clipboardOK   bool
}

// New constructs a Game ready to be passed to ebiten.RunGame. The debug
// overlay (Ctrl+Shift+D) renders whatever DebugSnapshot the VM thread has
// most recently published over link.Snapshots — it never reads VM memory
// directly, since that memory belongs to the VM thread alone (spec.md §5
// / §9: no shared mutable memory across the thread boundary).
func New(cfg image.Config, link *vm.Link) *Game {
	return &Game{cfg: cfg, link: link}
}

// Run opens the window and blocks until the window is closed. It does not
// return when the VM halts: the last received Frame stays on screen.
func (g *Game) Run() error {
	scale := g.cfg.DefaultScale
	if scale < 1 {
		scale = 1
	}
	w := int(float64(g.cfg.DisplayWidth) * scale)
	h := int(float64(g.cfg.DisplayHeight) * scale)

	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(g.cfg.Title)
	ebiten.SetWindowResizable(false)
	ebiten.SetCursorMode(cursorMode(g.cfg.HideCursor))

	g.link.Arrive()
	return ebiten.RunGame(g)
}

func cursorMode(hide bool) ebiten.CursorModeType {
	if hide {
		return ebiten.CursorModeHidden
	}
	return ebiten.CursorModeVisible
}

// Update implements ebiten.Game: drains at most one pending Frame and
// translates this tick's input into Events sent to the VM.
func (g *Game) Update() error {
	select {
	case f := <-g.link.Frames:
		g.mu.Lock()
		g.latest = f
		g.mu.Unlock()
	default:
	}

	select {
	case s := <-g.link.Snapshots:
		g.latestSnapshot = s
		g.haveSnapshot = true
	default:
	}

	if !g.cfg.InputEnabled {
		return nil
	}

	g.handleKeyboard()
	g.handleMouse()

	if ebiten.IsWindowBeingClosed() {
		g.link.SendEvent(vm.HaltEvent())
		g.link.Close()
		return ebiten.Termination
	}
	return nil
}

func (g *Game) handleKeyboard() {
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		if code, ok := keyCode(k); ok {
			g.link.SendEvent(vm.KeyDownEvent(code))
		}
	}
	for _, k := range inpututil.AppendJustReleasedKeys(nil) {
		if code, ok := keyCode(k); ok {
			g.link.SendEvent(vm.KeyUpEvent(code))
		}
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyD) {
		g.toggleDebugOverlay()
	}
}

// keyCode maps an ebiten key to the integer address code spec.md §4.5
// treats keys as; it follows the key's ASCII value where one exists (A-Z,
// 0-9) and falls back to ebiten's own Key constant otherwise, since
// spec.md never pins down a concrete keymap.
func keyCode(k ebiten.Key) (uint64, bool) {
	if k >= ebiten.KeyA && k <= ebiten.KeyZ {
		return uint64('A' + (k - ebiten.KeyA)), true
	}
	if k >= ebiten.Key0 && k <= ebiten.Key9 {
		return uint64('0' + (k - ebiten.Key0)), true
	}
	if k == ebiten.KeyEscape || k == ebiten.KeyEnter || k == ebiten.KeySpace ||
		k == ebiten.KeyArrowUp || k == ebiten.KeyArrowDown ||
		k == ebiten.KeyArrowLeft || k == ebiten.KeyArrowRight {
		return uint64(k), true
	}
	return 0, false
}

func (g *Game) handleMouse() {
	x, y := ebiten.CursorPosition()
	scale := g.cfg.DefaultScale
	if scale < 1 {
		scale = 1
	}
	lx, ly := uint64(float64(x)/scale), uint64(float64(y)/scale)

	for _, btn := range []struct {
		eb ebiten.MouseButton
		vb vm.MouseButton
	}{
		{ebiten.MouseButtonLeft, vm.MouseLeft},
		{ebiten.MouseButtonMiddle, vm.MouseMiddle},
		{ebiten.MouseButtonRight, vm.MouseRight},
	} {
		if inpututil.IsMouseButtonJustPressed(btn.eb) {
			g.link.SendEvent(vm.MouseDownEvent(lx, ly, btn.vb))
		}
		if inpututil.IsMouseButtonJustReleased(btn.eb) {
			g.link.SendEvent(vm.MouseUpEvent(lx, ly, btn.vb))
		}
	}
	if x != 0 || y != 0 {
		g.link.SendEvent(vm.MouseMoveEvent(lx, ly))
	}
}

func (g *Game) toggleDebugOverlay() {
	g.debugOn = !g.debugOn
	if !g.debugOn || !g.haveSnapshot {
		return
	}
	g.debugText = formatSnapshot(g.latestSnapshot)
	g.copyToClipboard(g.debugText)
}

func formatSnapshot(s vm.DebugSnapshot) string {
	return fmt.Sprintf("pc=%d base_ptr=%d stack_depth=%d value_index_count=%d",
		s.PC, s.BasePointer, len(s.Stack), len(s.ValueIndex))
}

func (g *Game) copyToClipboard(text string) {
	g.clipboardOnce.Do(func() {
		g.clipboardOK = clipboard.Init() == nil
	})
	if !g.clipboardOK {
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
}

// Draw implements ebiten.Game: blits the last received Frame, scaled by
// DefaultScale (spec.md §6's "scaling is purely display-side" rule), and
// overlays the debug dump when toggled on.
func (g *Game) Draw(screen *ebiten.Image) {
	g.mu.Lock()
	frame := g.latest
	g.mu.Unlock()

	if frame.Width == 0 || frame.Height == 0 {
		return
	}
	if g.canvas == nil || g.canvas.Bounds().Dx() != int(frame.Width) || g.canvas.Bounds().Dy() != int(frame.Height) {
		g.canvas = ebiten.NewImage(int(frame.Width), int(frame.Height))
	}
	g.canvas.WritePixels(pixelsToRGBA(frame.Pixels))

	opts := &ebiten.DrawImageOptions{}
	scale := g.cfg.DefaultScale
	if scale < 1 {
		scale = 1
	}
	opts.GeoM.Scale(scale, scale)
	screen.DrawImage(g.canvas, opts)

	if g.debugOn {
		text.Draw(screen, g.debugText, basicfont.Face7x13, 4, 16, color.White)
	}
}

func pixelsToRGBA(pixels []value.RGB) []byte {
	buf := make([]byte, len(pixels)*4)
	for i, p := range pixels {
		buf[i*4+0] = p.R
		buf[i*4+1] = p.G
		buf[i*4+2] = p.B
		buf[i*4+3] = 255
	}
	return buf
}

// Layout implements ebiten.Game: the logical screen always matches the
// scaled display geometry, no letterboxing.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	scale := g.cfg.DefaultScale
	if scale < 1 {
		scale = 1
	}
	return int(float64(g.cfg.DisplayWidth) * scale), int(float64(g.cfg.DisplayHeight) * scale)
}
