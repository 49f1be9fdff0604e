package glyph

import (
	"image"
	"iter"
	"log/slog"
	"slices"
	"strings"
)

// AlphaThreshold is the exclusive lower bound for a sampled pixel to count as
// part of a glyph (more than half of full opacity).
const AlphaThreshold = 127

// Sampler turns text into glyph sample points.
type Sampler struct {
	Rasterizer Rasterizer
	Logger     *slog.Logger
}

// NewSampler creates a sampler. A nil logger uses slog.Default().
func NewSampler(r Rasterizer, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{Rasterizer: r, Logger: logger}
}

func (s *Sampler) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Mask rasterizes text into a width x height alpha mask. Words (split on
// single spaces) are stacked vertically wordSpacing pixels apart, the block
// centred on the canvas. Returns nil and logs on invalid input or
// rasterizer failure.
func (s *Sampler) Mask(text string, f Font, width, height int, wordSpacing float64) *image.Alpha {
	if width <= 0 || height <= 0 {
		s.logger().Error("glyph: invalid canvas dimensions", "width", width, "height", height)
		return nil
	}
	if s.Rasterizer == nil {
		s.logger().Error("glyph: no text rasterizer available")
		return nil
	}

	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	words := strings.Split(text, " ")
	cx := float64(width) / 2
	top := float64(height)/2 - float64(len(words)-1)*wordSpacing/2

	for i, word := range words {
		y := top + wordSpacing*float64(i)
		if err := s.Rasterizer.RasterizeText(mask, word, f, cx, y); err != nil {
			s.logger().Error("glyph: rasterizing text", "word", word, "error", err)
			return nil
		}
	}
	return mask
}

// Sample rasterizes text and returns the qualifying points on a stride grid
// in row-major order. Returns nil (never an error) when sampling is not
// possible.
func (s *Sampler) Sample(text string, f Font, width, height int, wordSpacing float64, stride int) []image.Point {
	if stride <= 0 {
		s.logger().Error("glyph: invalid sampling stride", "stride", stride)
		return nil
	}
	mask := s.Mask(text, f, width, height, wordSpacing)
	if mask == nil {
		return nil
	}
	return slices.Collect(Points(mask, stride))
}

// Points yields the grid points of mask, stride apart in both axes starting
// at the top-left corner, whose alpha exceeds AlphaThreshold. Points are
// produced top-to-bottom, left-to-right.
func Points(mask *image.Alpha, stride int) iter.Seq[image.Point] {
	return func(yield func(image.Point) bool) {
		if mask == nil || stride <= 0 {
			return
		}
		b := mask.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y += stride {
			row := mask.Pix[(y-b.Min.Y)*mask.Stride:]
			for x := b.Min.X; x < b.Max.X; x += stride {
				if row[x-b.Min.X] > AlphaThreshold {
					if !yield(image.Point{X: x, Y: y}) {
						return
					}
				}
			}
		}
	}
}
