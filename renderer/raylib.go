package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"
)

// RaylibSurface draws into an off-screen render texture so pixels persist
// between frames. Must be created after the raylib window is initialized.
type RaylibSurface struct {
	target        rl.RenderTexture2D
	width, height int
	inFrame       bool
}

// NewRaylibSurface allocates a render texture of the given size.
func NewRaylibSurface(width, height int) *RaylibSurface {
	return &RaylibSurface{
		target: rl.LoadRenderTexture(int32(width), int32(height)),
		width:  width,
		height: height,
	}
}

func toRL(c color.NRGBA) rl.Color {
	return rl.NewColor(c.R, c.G, c.B, c.A)
}

// Size implements Surface.
func (s *RaylibSurface) Size() (int, int) {
	return s.width, s.height
}

// Valid reports whether the render texture is still allocated.
func (s *RaylibSurface) Valid() bool {
	return s.target.ID != 0
}

// BeginFrame redirects drawing into the render texture.
func (s *RaylibSurface) BeginFrame() {
	rl.BeginTextureMode(s.target)
	s.inFrame = true
}

// EndFrame restores drawing to the window.
func (s *RaylibSurface) EndFrame() {
	rl.EndTextureMode()
	s.inFrame = false
}

// paint runs fn inside texture mode, opening it if no frame is active.
func (s *RaylibSurface) paint(fn func()) {
	if s.inFrame {
		fn()
		return
	}
	rl.BeginTextureMode(s.target)
	fn()
	rl.EndTextureMode()
}

// Clear implements Surface.
func (s *RaylibSurface) Clear(c color.NRGBA) {
	s.paint(func() {
		rl.ClearBackground(toRL(c))
	})
}

// FadeToward implements Surface.
func (s *RaylibSurface) FadeToward(c color.NRGBA, alpha float64) {
	c.A = fadeAlpha(alpha)
	if c.A == 0 {
		return
	}
	s.paint(func() {
		rl.DrawRectangle(0, 0, int32(s.width), int32(s.height), toRL(c))
	})
}

// DrawFilledCircle implements Surface.
func (s *RaylibSurface) DrawFilledCircle(center r2.Vec, radius float64, c color.NRGBA) {
	s.paint(func() {
		rl.DrawCircleV(rl.Vector2{X: float32(center.X), Y: float32(center.Y)}, float32(radius), toRL(c))
	})
}

// Present draws the render texture to the window. Call between
// rl.BeginDrawing and rl.EndDrawing.
func (s *RaylibSurface) Present() {
	// Render textures are stored bottom-up; negative height flips them
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(s.width), Height: -float32(s.height)}
	rl.DrawTextureRec(s.target.Texture, src, rl.Vector2{}, rl.White)
}

// Resize reallocates the render texture. Contents are discarded.
func (s *RaylibSurface) Resize(width, height int) {
	if width == s.width && height == s.height {
		return
	}
	rl.UnloadRenderTexture(s.target)
	s.target = rl.LoadRenderTexture(int32(width), int32(height))
	s.width, s.height = width, height
}

// Snapshot implements Surface by reading the texture back from the GPU.
func (s *RaylibSurface) Snapshot() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("render texture not available")
	}

	img := rl.LoadImageFromTexture(s.target.Texture)
	defer rl.UnloadImage(img)

	colors := rl.LoadImageColors(img)
	defer rl.UnloadImageColors(colors)
	if len(colors) < s.width*s.height {
		return nil, fmt.Errorf("texture readback returned %d pixels, want %d", len(colors), s.width*s.height)
	}

	out := image.NewNRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		// Flip rows: texture row 0 is the bottom of the frame
		row := colors[(s.height-1-y)*s.width : (s.height-y)*s.width]
		for x, c := range row {
			out.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// Unload frees the render texture.
func (s *RaylibSurface) Unload() {
	if s.Valid() {
		rl.UnloadRenderTexture(s.target)
		s.target = rl.RenderTexture2D{}
	}
}
