package ui

import (
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Action is a bit set of control bar requests made during one frame.
type Action uint8

const (
	ActionClear Action = 1 << iota
	ActionSave
	ActionFullscreen
	ActionSmudge
)

// Has reports whether a includes want.
func (a Action) Has(want Action) bool {
	return a&want != 0
}

// ControlsPanel renders the button bar in the top-right corner.
type ControlsPanel struct {
	renderer *Renderer
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel() *ControlsPanel {
	return &ControlsPanel{renderer: NewRenderer(), visible: true}
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether (x, y) falls on the panel, so pointer input
// there is not forwarded to the canvas.
func (c *ControlsPanel) Contains(screenWidth int32, x, y float32) bool {
	if !c.visible {
		return false
	}
	return rl.CheckCollisionPointRec(rl.Vector2{X: x, Y: y}, c.bounds(screenWidth))
}

func (c *ControlsPanel) bounds(screenWidth int32) rl.Rectangle {
	t := c.renderer.Theme
	pad := float32(t.Padding)
	width := t.ButtonWidth*4 + pad*5
	return rl.Rectangle{
		X:      float32(screenWidth) - width - 10,
		Y:      10,
		Width:  width,
		Height: t.ButtonHeight + pad*2,
	}
}

// Draw renders the buttons and returns the ones clicked this frame.
func (c *ControlsPanel) Draw(screenWidth int32, smudge bool) Action {
	if !c.visible {
		return 0
	}

	t := c.renderer.Theme
	b := c.bounds(screenWidth)
	c.renderer.DrawPanel(int32(b.X), int32(b.Y), int32(b.Width), int32(b.Height))

	pad := float32(t.Padding)
	button := func(i int) rl.Rectangle {
		return rl.Rectangle{
			X:      b.X + pad + float32(i)*(t.ButtonWidth+pad),
			Y:      b.Y + pad,
			Width:  t.ButtonWidth,
			Height: t.ButtonHeight,
		}
	}

	var a Action
	if gui.Button(button(0), "Clear") {
		a |= ActionClear
	}
	if gui.Button(button(1), "Save") {
		a |= ActionSave
	}
	if gui.Button(button(2), "Fullscreen") {
		a |= ActionFullscreen
	}
	if gui.Button(button(3), toggleText(smudge, "Smudge: on", "Smudge: off")) {
		a |= ActionSmudge
	}
	return a
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
