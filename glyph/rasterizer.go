// Package glyph rasterizes text into an off-screen alpha mask and samples it
// into a sparse point set used to seed text-bound particles.
package glyph

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Font selects the face used to rasterize text.
type Font struct {
	Size float64 // Pixel size (72 DPI)
	Bold bool
}

// Rasterizer draws a single line of text into an alpha mask, centred
// horizontally on x with its em box vertically centred on y.
type Rasterizer interface {
	RasterizeText(dst *image.Alpha, text string, f Font, x, y float64) error
}

// FaceRasterizer renders text with the Go fonts via x/image/font.
// Faces are created lazily per Font and cached. Not safe for concurrent use.
type FaceRasterizer struct {
	regular *opentype.Font
	bold    *opentype.Font
	faces   map[Font]font.Face
}

// NewFaceRasterizer parses the bundled Go Regular and Go Bold fonts.
func NewFaceRasterizer() (*FaceRasterizer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	return &FaceRasterizer{
		regular: regular,
		bold:    bold,
		faces:   make(map[Font]font.Face),
	}, nil
}

func (r *FaceRasterizer) face(f Font) (font.Face, error) {
	if face, ok := r.faces[f]; ok {
		return face, nil
	}
	if f.Size <= 0 || math.IsNaN(f.Size) {
		return nil, fmt.Errorf("invalid font size %v", f.Size)
	}

	src := r.regular
	if f.Bold {
		src = r.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    f.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("creating face: %w", err)
	}
	r.faces[f] = face
	return face, nil
}

// RasterizeText implements Rasterizer.
func (r *FaceRasterizer) RasterizeText(dst *image.Alpha, text string, f Font, x, y float64) error {
	face, err := r.face(f)
	if err != nil {
		return err
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Opaque,
		Face: face,
	}

	// Middle baseline: em box spans [baseline-ascent, baseline+descent]
	m := face.Metrics()
	baseline := y + float64(m.Ascent-m.Descent)/128
	width := d.MeasureString(text)

	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(math.Round(x*64)) - width/2,
		Y: fixed.Int26_6(math.Round(baseline * 64)),
	}
	d.DrawString(text)
	return nil
}

// Close releases all cached faces.
func (r *FaceRasterizer) Close() error {
	var firstErr error
	for f, face := range r.faces {
		if err := face.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.faces, f)
	}
	return firstErr
}
