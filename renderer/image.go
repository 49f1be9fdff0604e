package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

// kappa places cubic Bézier control points so four arcs approximate a circle.
const kappa = 0.5522847498

// ImageSurface is a software Surface backed by an *image.RGBA.
type ImageSurface struct {
	img  *image.RGBA
	z    *vector.Rasterizer
	mask *image.Alpha
}

// NewImageSurface creates a transparent surface of the given size.
func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{
		img:  image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0))),
		z:    vector.NewRasterizer(1, 1),
		mask: image.NewAlpha(image.Rect(0, 0, 1, 1)),
	}
}

// Image returns the backing image. It is reused across frames.
func (s *ImageSurface) Image() *image.RGBA {
	return s.img
}

// Size implements Surface.
func (s *ImageSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Resize replaces the backing image, keeping the overlapping top-left region.
func (s *ImageSurface) Resize(width, height int) {
	old := s.img
	s.img = image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
	draw.Copy(s.img, image.Point{}, old, old.Bounds(), draw.Src, nil)
}

// Clear implements Surface.
func (s *ImageSurface) Clear(c color.NRGBA) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// FadeToward implements Surface.
func (s *ImageSurface) FadeToward(c color.NRGBA, alpha float64) {
	c.A = fadeAlpha(alpha)
	if c.A == 0 {
		return
	}
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Over)
}

// DrawFilledCircle implements Surface. Circles are anti-aliased and
// composited with source-over; parts outside the surface are clipped.
func (s *ImageSurface) DrawFilledCircle(center r2.Vec, radius float64, c color.NRGBA) {
	if !(radius > 0) || c.A == 0 || math.IsNaN(center.X) || math.IsNaN(center.Y) {
		return
	}

	rect := image.Rect(
		int(math.Floor(center.X-radius)), int(math.Floor(center.Y-radius)),
		int(math.Ceil(center.X+radius)), int(math.Ceil(center.Y+radius)),
	)
	clip := rect.Intersect(s.img.Bounds())
	if clip.Empty() {
		return
	}

	w, h := rect.Dx(), rect.Dy()
	mask := s.maskFor(w, h)

	cx := float32(center.X - float64(rect.Min.X))
	cy := float32(center.Y - float64(rect.Min.Y))
	r := float32(radius)
	k := r * kappa

	s.z.Reset(w, h)
	s.z.MoveTo(cx+r, cy)
	s.z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	s.z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	s.z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	s.z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	s.z.ClosePath()
	s.z.DrawOp = draw.Src
	s.z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	draw.DrawMask(s.img, clip, image.NewUniform(c), image.Point{}, mask, clip.Min.Sub(rect.Min), draw.Over)
}

// maskFor returns a cleared w x h mask, reusing the previous allocation.
func (s *ImageSurface) maskFor(w, h int) *image.Alpha {
	n := w * h
	if cap(s.mask.Pix) < n {
		s.mask.Pix = make([]uint8, n)
	}
	s.mask.Pix = s.mask.Pix[:n]
	clear(s.mask.Pix)
	s.mask.Stride = w
	s.mask.Rect = image.Rect(0, 0, w, h)
	return s.mask
}

// Snapshot implements Surface.
func (s *ImageSurface) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
