// Package renderer provides the drawing surfaces the animation loop paints
// onto: a software image surface and a raylib render texture.
package renderer

import (
	"image/color"

	"gonum.org/v1/gonum/spatial/r2"
)

// Surface is a 2D raster the animation draws onto. Pixels persist between
// frames so FadeToward can leave trails.
type Surface interface {
	Size() (width, height int)
	Clear(c color.NRGBA)
	// FadeToward paints c over the whole surface at the given opacity,
	// ignoring c's own alpha.
	FadeToward(c color.NRGBA, alpha float64)
	DrawFilledCircle(center r2.Vec, radius float64, c color.NRGBA)
	// Snapshot encodes the current contents as PNG.
	Snapshot() ([]byte, error)
}

// Resizer is implemented by surfaces that can change size in place.
type Resizer interface {
	Resize(width, height int)
}

// Validator is implemented by surfaces that can be lost (e.g. a GPU
// context going away).
type Validator interface {
	Valid() bool
}

// Framer is implemented by surfaces that need drawing bracketed per frame.
type Framer interface {
	BeginFrame()
	EndFrame()
}

func fadeAlpha(alpha float64) uint8 {
	if !(alpha > 0) {
		return 0
	}
	if alpha >= 1 {
		return 255
	}
	return uint8(alpha * 255)
}
