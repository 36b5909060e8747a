package sketchboard

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	wheelZoomBase  = 1.1
	keyZoomFactor  = 1.25
	noticeDuration = 3.0 // seconds
)

var colorStatusBg = color.RGBA{0, 0, 0, 140}

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title   string
	Width   int
	Height  int
	ShowFPS bool
	// HideStatus suppresses the status line (sheet, tool, zoom, notices).
	HideStatus bool
}

// Run opens a window and drives e with mouse and keyboard input until the
// window is closed.
func Run(e *Engine, cfg RunConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = int(e.width)
	}
	if cfg.Height <= 0 {
		cfg.Height = int(e.height)
	}
	if cfg.Title == "" {
		cfg.Title = "sketchboard"
	}
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	g := &game{engine: e, cfg: cfg}
	e.OnNotice(func(n Notice) {
		g.notice = n.Message
		g.noticeLeft = noticeDuration
	})
	return ebiten.RunGame(g)
}

// game adapts an Engine to ebiten.Game.
type game struct {
	engine *Engine
	cfg    RunConfig

	button     MouseButton
	down       bool
	lastX      int
	lastY      int
	inside     bool
	notice     string
	noticeLeft float64

	status     *ebiten.Image
	statusTick float64
}

func (g *game) Update() error {
	e := g.engine
	scripted := len(e.injectQueue) > 0 || (e.runner != nil && !e.runner.Done())
	e.Update()
	if !scripted {
		g.pollPointer()
		g.pollKeys()
	}
	if g.noticeLeft > 0 {
		g.noticeLeft -= 1 / float64(ebiten.TPS())
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(ColorWhite.toRGBA())
	g.engine.Draw(screen)
	if !g.cfg.HideStatus {
		g.drawStatus(screen)
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.engine.SetSurfaceSize(float64(outsideWidth), float64(outsideHeight))
	return outsideWidth, outsideHeight
}

// pollPointer turns ebiten mouse state into controller calls.
func (g *game) pollPointer() {
	e := g.engine
	mx, my := ebiten.CursorPosition()
	sx, sy := float64(mx), float64(my)
	moved := mx != g.lastX || my != g.lastY
	g.lastX, g.lastY = mx, my

	inside := sx >= 0 && sy >= 0 && sx < e.width && sy < e.height
	if !inside && g.inside && !g.down {
		e.PointerLeave()
	}
	g.inside = inside

	if !g.down {
		for _, b := range [...]struct {
			eb  ebiten.MouseButton
			btn MouseButton
		}{
			{ebiten.MouseButtonLeft, MouseButtonLeft},
			{ebiten.MouseButtonMiddle, MouseButtonMiddle},
		} {
			if inpututil.IsMouseButtonJustPressed(b.eb) {
				g.down = true
				g.button = b.btn
				e.PointerDown(sx, sy, b.btn, readModifiers())
				break
			}
		}
	} else {
		eb := ebiten.MouseButtonLeft
		if g.button == MouseButtonMiddle {
			eb = ebiten.MouseButtonMiddle
		}
		if inpututil.IsMouseButtonJustReleased(eb) {
			g.down = false
			e.PointerUp(sx, sy)
		} else if moved {
			e.PointerMove(sx, sy)
		}
	}
	if !g.down && moved && inside {
		e.Hover(sx, sy)
	}

	if _, wy := ebiten.Wheel(); wy != 0 && inside {
		e.Wheel(sx, sy, math.Pow(wheelZoomBase, wy))
	}
}

var toolKeys = map[ebiten.Key]Tool{
	ebiten.KeyV: ToolSelect,
	ebiten.KeyH: ToolPan,
	ebiten.KeyC: ToolConnect,
	ebiten.KeyP: ToolPencil,
	ebiten.KeyM: ToolMarker,
	ebiten.KeyE: ToolEraser,
	ebiten.KeyR: ToolRect,
	ebiten.KeyO: ToolEllipse,
	ebiten.KeyT: ToolTriangle,
	ebiten.KeyS: ToolStar,
	ebiten.KeyX: ToolHexagon,
	ebiten.KeyK: ToolCloud,
}

// pollKeys handles editing shortcuts.
func (g *game) pollKeys() {
	e := g.engine
	mods := readModifiers()
	ctrl := mods&(ModCtrl|ModMeta) != 0
	pressed := func(k ebiten.Key) bool { return inpututil.IsKeyJustPressed(k) }

	switch {
	case pressed(ebiten.KeyEscape):
		if g.down {
			g.down = false
		}
		e.Cancel()
	case ctrl && pressed(ebiten.KeyZ):
		if mods&ModShift != 0 {
			e.Redo()
		} else {
			e.Undo()
		}
	case ctrl && pressed(ebiten.KeyY):
		e.Redo()
	case ctrl && pressed(ebiten.KeyA):
		e.SelectAll()
	case pressed(ebiten.KeyDelete), pressed(ebiten.KeyBackspace):
		e.DeleteSelection()
	case pressed(ebiten.KeyTab):
		if len(e.doc.Sheets) > 1 {
			_ = e.SwitchSheet((e.doc.Active + 1) % len(e.doc.Sheets))
		}
	case ctrl && pressed(ebiten.KeyN):
		_, _ = e.AddSheet("")
	case pressed(ebiten.KeyDigit0):
		e.FitContent(true)
	case pressed(ebiten.KeyEqual):
		e.Zoom(keyZoomFactor)
	case pressed(ebiten.KeyMinus):
		e.Zoom(1 / keyZoomFactor)
	case pressed(ebiten.KeyF3):
		e.SetDebugMode(!e.debug)
	case pressed(ebiten.KeyF12):
		e.Screenshot("window")
	case !ctrl && !g.down:
		for k, t := range toolKeys {
			if pressed(k) {
				e.SetTool(t)
				break
			}
		}
	}
}

// drawStatus prints the active sheet, tool, zoom and the latest notice in
// the top-left corner. The text image is refreshed every half second.
func (g *game) drawStatus(screen *ebiten.Image) {
	e := g.engine
	if g.status == nil {
		g.status = ebiten.NewImage(480, 48)
	}
	g.statusTick += 1 / float64(ebiten.TPS())
	if g.statusTick >= 0.5 || g.noticeLeft > 0 {
		g.statusTick = 0
		s := e.Sheet()
		line := fmt.Sprintf("%s (%d/%d) | %s | %.0f%%",
			s.Name, e.doc.Active+1, len(e.doc.Sheets), e.ctl.tool, e.view.Scale*100)
		if g.cfg.ShowFPS {
			line += fmt.Sprintf(" | FPS %.1f", ebiten.ActualFPS())
		}
		if g.noticeLeft > 0 {
			line += "\n" + g.notice
		}
		g.status.Clear()
		g.status.Fill(colorStatusBg)
		ebitenutil.DebugPrint(g.status, line)
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(8, 8)
	screen.DrawImage(g.status, &op)
}

// readModifiers reads the current keyboard modifier state.
func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}
