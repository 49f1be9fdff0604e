package game

import (
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/inkdust/config"
	"github.com/pthm-cable/inkdust/glyph"
	"github.com/pthm-cable/inkdust/renderer"
	"github.com/pthm-cable/inkdust/telemetry"
	"github.com/pthm-cable/inkdust/ui"
)

const controlsLegend = "[Drag] Paint  [C] Clear  [S] Save  [H] Hide UI  [Space] Pause  [F11] Fullscreen"

// Window hosts a Loop in a raylib window. The window must be initialized
// before NewWindow is called; all methods run on the raylib thread.
type Window struct {
	loop     *Loop
	surface  *renderer.RaylibSurface
	hud      *ui.HUD
	controls *ui.ControlsPanel
	output   *telemetry.OutputManager
	title    string
	logger   *slog.Logger

	paused    bool
	onScreen  bool
	lastMouse rl.Vector2
}

// NewWindow creates a render target matching the window and a loop that
// draws into it.
func NewWindow(cfg *config.Config, rasterizer glyph.Rasterizer, opts Options) *Window {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	surface := renderer.NewRaylibSurface(rl.GetScreenWidth(), rl.GetScreenHeight())
	return &Window{
		loop:     NewLoop(cfg, surface, rasterizer, opts),
		surface:  surface,
		hud:      ui.NewHUD(),
		controls: ui.NewControlsPanel(),
		output:   opts.Output,
		title:    cfg.Screen.Title,
		logger:   logger,
	}
}

// Loop returns the animation loop driven by the window.
func (w *Window) Loop() *Loop {
	return w.loop
}

// Update handles input and advances one frame.
func (w *Window) Update() {
	w.handleResize()
	w.handleKeys()
	w.handlePointer()

	if !w.paused {
		w.loop.Frame(time.Duration(float64(rl.GetFrameTime()) * float64(time.Second)))
	}
}

// Draw presents the canvas and overlays the UI.
func (w *Window) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	w.surface.Present()

	pop := w.loop.Population()
	w.hud.Draw(ui.HUDData{
		Title:     w.title,
		Text:      pop.Text,
		Floating:  pop.Floating,
		Transient: pop.Transient,
		Frame:     w.loop.FrameCount(),
		FPS:       rl.GetFPS(),
		Phase:     w.loop.Phase(),
		Blend:     w.loop.Blend(),
		Drawing:   w.loop.Drawing(),
		Smudge:    w.loop.Smudge(),
	})

	actions := w.controls.Draw(int32(rl.GetScreenWidth()), w.loop.Smudge())
	w.apply(actions)

	if w.paused {
		rl.DrawText("PAUSED", 10, int32(rl.GetScreenHeight())-50, 20, rl.Yellow)
	}
	w.hud.DrawControls(int32(rl.GetScreenHeight()), controlsLegend)

	rl.EndDrawing()
}

// Unload releases GPU resources.
func (w *Window) Unload() {
	w.loop.Stop()
	w.surface.Unload()
}

func (w *Window) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	width, height := rl.GetScreenWidth(), rl.GetScreenHeight()
	if cw, ch := w.surface.Size(); cw == width && ch == height {
		return
	}
	w.loop.Resize(width, height)
	if !w.loop.Active() && !w.paused {
		w.loop.Start()
	}
}

func (w *Window) handleKeys() {
	var a ui.Action
	if rl.IsKeyPressed(rl.KeyC) {
		a |= ui.ActionClear
	}
	if rl.IsKeyPressed(rl.KeyS) {
		a |= ui.ActionSave
	}
	if rl.IsKeyPressed(rl.KeyF11) {
		a |= ui.ActionFullscreen
	}
	w.apply(a)

	if rl.IsKeyPressed(rl.KeyH) {
		w.hud.Toggle()
		w.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		w.paused = !w.paused
		if w.paused {
			w.loop.Stop()
		} else {
			w.loop.Start()
		}
	}
}

// handlePointer forwards mouse state to the loop. Presses on the control
// bar are left to raygui.
func (w *Window) handlePointer() {
	onScreen := rl.IsCursorOnScreen()
	if !onScreen {
		if w.onScreen {
			w.loop.PointerLeave()
		}
		w.onScreen = false
		return
	}
	w.onScreen = true

	m := rl.GetMousePosition()
	x, y := float64(m.X), float64(m.Y)

	if rl.IsMouseButtonPressed(rl.MouseLeftButton) &&
		!w.controls.Contains(int32(rl.GetScreenWidth()), m.X, m.Y) {
		w.loop.PointerDown(x, y)
	}
	if m != w.lastMouse {
		w.loop.PointerMove(x, y)
		w.lastMouse = m
	}
	if rl.IsMouseButtonReleased(rl.MouseLeftButton) {
		w.loop.PointerUp()
	}
}

func (w *Window) apply(a ui.Action) {
	if a.Has(ui.ActionClear) {
		w.loop.Clear()
	}
	if a.Has(ui.ActionSave) {
		if path, err := w.loop.Save(w.output, time.Now()); err != nil {
			w.logger.Error("saving frame", "error", err)
		} else {
			w.logger.Info("frame saved", "path", path)
		}
	}
	if a.Has(ui.ActionFullscreen) {
		rl.ToggleFullscreen()
	}
	if a.Has(ui.ActionSmudge) {
		w.loop.SetSmudge(!w.loop.Smudge())
	}
}
