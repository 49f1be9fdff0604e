// Palette preview tool - shows how colour sequences blend as the phase
// advances, with sliders for the phase window and evolution speed.
//
// Usage: go run ./cmd/palettepreview [-config path]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/inkdust/config"
	"github.com/pthm-cable/inkdust/palette"
	"github.com/pthm-cable/inkdust/ui"
)

const (
	windowWidth  = 1000
	windowHeight = 640
	stripWidth   = 560
	stripHeight  = 320
	panelWidth   = windowWidth - stripWidth - 40
)

// PreviewParams holds the slider state.
type PreviewParams struct {
	Start float32 // Phase at the left edge of the strip
	Span  float32 // Phases covered by the strip
	Speed float32 // Phase per palette tick
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	pal := palette.New(cfg.Palette.Sequences, slog.Default())
	n := float32(pal.Len())

	defaults := PreviewParams{
		Start: 0,
		Span:  n,
		Speed: float32(cfg.Smudge.ColorEvolutionSpeed),
	}
	params := defaults

	rl.InitWindow(windowWidth, windowHeight, "Palette Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	tick := float32(cfg.Smudge.PhaseTickMS) / 1000
	phase := float64(cfg.Smudge.InitialPhase)
	animating := true

	for !rl.WindowShouldClose() {
		if animating && tick > 0 {
			phase = palette.Advance(phase, float64(rl.GetFrameTime()/tick), float64(params.Speed))
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		drawStrip(pal, params, phase)
		drawCurrent(pal, phase)

		// Control panel
		panelX := float32(stripWidth + 30)
		panelY := float32(10)

		rl.DrawText("Palette Blend", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		params.Start = slider(panelX, &panelY, "Window start (phase)", "0", fmt.Sprint(n), params.Start, 0, n, "%.2f")
		params.Span = slider(panelX, &panelY, "Window span (phases)", "0.25", fmt.Sprint(2*n), params.Span, 0.25, 2*n, "%.2f")
		params.Speed = slider(panelX, &panelY, "Evolution speed (per tick)", "0", "0.05", params.Speed, 0, 0.05, "%.4f")

		secs := float64(0)
		if params.Speed > 0 && tick > 0 {
			secs = float64(tick) / float64(params.Speed)
		}
		rl.DrawText(fmt.Sprintf("One sequence every %.1fs, full cycle %.1fs", secs, secs*float64(n)),
			int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 30

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(animating, "Stop", "Animate")) {
			animating = !animating
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset Phase") {
			phase = float64(cfg.Smudge.InitialPhase)
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaults
			phase = float64(cfg.Smudge.InitialPhase)
		}
		panelY += 55

		// Output YAML
		snippet := yamlSnippet(cfg, params)
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		for _, line := range strings.Split(snippet, "\n") {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(snippet)
		}

		rl.EndDrawing()
	}
}

// slider draws a labelled slider bar, advances y and returns the new value.
func slider(x float32, y *float32, label, minText, maxText string, value, lo, hi float32, format string) float32 {
	rl.DrawText(label, int32(x), int32(*y), 14, rl.Gray)
	*y += 18
	v := gui.SliderBar(
		rl.Rectangle{X: x, Y: *y, Width: float32(panelWidth - 80), Height: 20},
		minText, maxText,
		value, lo, hi,
	)
	rl.DrawText(fmt.Sprintf(format, v), int32(x+float32(panelWidth-70)), int32(*y+2), 16, rl.DarkGray)
	*y += 35
	return v
}

// drawStrip draws every stop index as a horizontal band across the phase
// window, with a marker at the live phase.
func drawStrip(pal *palette.Palette, params PreviewParams, phase float64) {
	const x0, y0 = 10, 10

	stops := 0
	for i := 0; i < pal.Len(); i++ {
		stops = max(stops, pal.Stops(i))
	}
	band := int32(stripHeight / max(stops, 1))

	for col := int32(0); col < stripWidth; col++ {
		p := float64(params.Start) + float64(col)/stripWidth*float64(params.Span)
		for i := 0; i < stops; i++ {
			rl.DrawRectangle(x0+col, y0+int32(i)*band, 1, band, ui.RLColor(pal.ColorAt(p, i)))
		}
	}
	rl.DrawRectangleLines(x0, y0, stripWidth, band*int32(stops), rl.DarkGray)

	// Whole-phase boundaries
	for k := math.Ceil(float64(params.Start)); k <= float64(params.Start+params.Span); k++ {
		x := x0 + int32((k-float64(params.Start))/float64(params.Span)*stripWidth)
		rl.DrawLine(x, y0+band*int32(stops), x, y0+band*int32(stops)+8, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("%.0f", k), x+2, y0+band*int32(stops)+8, 12, rl.Gray)
	}

	if rel := (phase - float64(params.Start)) / float64(params.Span); rel >= 0 && rel <= 1 {
		x := x0 + int32(rel*stripWidth)
		rl.DrawLine(x, y0, x, y0+band*int32(stops), rl.Black)
	}
}

// drawCurrent shows the live blend as large swatches.
func drawCurrent(pal *palette.Palette, phase float64) {
	const x0, y0, size = 10, stripHeight + 60, 60

	rl.DrawText(fmt.Sprintf("Phase %.3f (sequence %d)", phase, int(phase)%pal.Len()), x0, y0, 16, rl.DarkGray)
	seq := int(math.Floor(phase))
	for i := 0; i < pal.Stops(seq); i++ {
		x := int32(x0 + i*(size+10))
		c := pal.ColorAt(phase, i)
		rl.DrawRectangle(x, y0+24, size, size, ui.RLColor(c))
		rl.DrawText(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), x, y0+24+size+4, 12, rl.Gray)
	}
}

func yamlSnippet(cfg *config.Config, params PreviewParams) string {
	seqs := cfg.Palette.Sequences
	if len(seqs) == 0 {
		seqs = palette.DefaultSequences
	}
	out := map[string]any{
		"smudge":  map[string]any{"color_evolution_speed": math.Round(float64(params.Speed)*1e4) / 1e4},
		"palette": map[string]any{"sequences": seqs},
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Sprintf("# %v", err)
	}
	return strings.TrimRight(string(data), "\n")
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
