package ui

import (
	"fmt"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	Text      int
	Floating  int
	Transient int
	Frame     int64
	FPS       int32
	Phase     float64
	Blend     []color.NRGBA // Stops of the current palette blend
	Drawing   bool
	Smudge    bool
}

// HUD renders the stats panel in the top-left corner.
type HUD struct {
	renderer *Renderer
	visible  bool
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer(), visible: true}
}

// Toggle switches HUD visibility.
func (h *HUD) Toggle() bool {
	h.visible = !h.visible
	return h.visible
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	if !h.visible {
		return
	}

	r := h.renderer
	padding := r.Theme.Padding
	width := int32(260)
	height := r.Theme.LineHeight*8 + padding*2

	x, y := int32(10), int32(10)
	r.DrawPanel(x, y, width, height)

	x += padding
	y += padding
	y = r.DrawSectionHeader(x, y, data.Title)
	y = r.DrawLabelValue(x, y, "Particles", fmt.Sprintf("%d", data.Text+data.Floating+data.Transient))
	y = r.DrawLabelValue(x, y, "Layers", fmt.Sprintf("text %d | float %d | spark %d", data.Text, data.Floating, data.Transient))
	y = r.DrawLabelValue(x, y, "Frame", fmt.Sprintf("%d @ %d fps", data.Frame, data.FPS))

	whole := float64(int64(data.Phase))
	y = r.DrawBar(x, y, fmt.Sprintf("Phase %d", int64(whole)), float32(data.Phase-whole), width-padding*2)
	y = r.DrawSwatches(x, y, "Palette", data.Blend)

	status := "Smudge off"
	statusColor := rl.Gray
	switch {
	case data.Drawing:
		status, statusColor = "Drawing", rl.Green
	case data.Smudge:
		status, statusColor = "Drag to paint", rl.Yellow
	}
	rl.DrawText(status, x, y, r.Theme.FontSize, statusColor)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}
