// Package palette maps a continuously growing phase onto colours drawn from
// an ordered list of stop sequences, blending each sequence into the next.
package palette

import (
	"image/color"
	"log/slog"
	"math"
	"math/rand"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultSequences are the built-in stop sequences used when none are supplied.
var DefaultSequences = [][]string{
	{"#3498db", "#2980b9", "#1abc9c", "#16a085"}, // Blue to Teal
	{"#e74c3c", "#c0392b", "#f39c12", "#d35400"}, // Red to Orange
	{"#9b59b6", "#8e44ad", "#3498db", "#2980b9"}, // Purple to Blue
	{"#f1c40f", "#f39c12", "#e67e22", "#d35400"}, // Yellow to Orange
	{"#1abc9c", "#16a085", "#2ecc71", "#27ae60"}, // Teal to Green
}

// Palette holds parsed stop sequences. It is immutable after construction.
type Palette struct {
	seqs [][]color.NRGBA
}

// New parses the given hex stop sequences. Empty sequences are dropped and
// unparsable stops become black. If nothing usable remains the default
// sequences are used instead; both cases are reported through logger.
func New(seqs [][]string, logger *slog.Logger) *Palette {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Palette{}
	for i, seq := range seqs {
		if len(seq) == 0 {
			logger.Warn("palette: dropping empty stop sequence", "index", i)
			continue
		}
		stops := make([]color.NRGBA, len(seq))
		for j, hex := range seq {
			stops[j] = parseHex(hex, logger)
		}
		p.seqs = append(p.seqs, stops)
	}

	if len(p.seqs) == 0 {
		if len(seqs) > 0 {
			logger.Warn("palette: no usable stop sequences, using defaults")
		}
		return Default()
	}

	for i := 1; i < len(p.seqs); i++ {
		if len(p.seqs[i]) != len(p.seqs[0]) {
			logger.Warn("palette: stop sequences differ in length; indices clamp to the shorter sequence",
				"first", len(p.seqs[0]), "index", i, "length", len(p.seqs[i]))
			break
		}
	}

	return p
}

// Default returns a palette built from DefaultSequences.
func Default() *Palette {
	p := &Palette{seqs: make([][]color.NRGBA, len(DefaultSequences))}
	for i, seq := range DefaultSequences {
		p.seqs[i] = make([]color.NRGBA, len(seq))
		for j, hex := range seq {
			p.seqs[i][j] = parseHex(hex, nil)
		}
	}
	return p
}

// parseHex reads a #rrggbb or #rgb stop; the leading '#' is optional.
func parseHex(hex string, logger *slog.Logger) color.NRGBA {
	c, err := colorful.Hex("#" + strings.TrimPrefix(strings.TrimSpace(hex), "#"))
	if err != nil {
		if logger != nil {
			logger.Warn("palette: invalid stop, using black", "stop", hex, "error", err)
		}
		return color.NRGBA{A: 255}
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Len returns the number of stop sequences.
func (p *Palette) Len() int {
	return len(p.seqs)
}

// Stops returns the number of stops in sequence i (modulo Len).
func (p *Palette) Stops(i int) int {
	return len(p.seqs[mod(i, len(p.seqs))])
}

// ColorAt returns stop i of the sequence selected by phase, blended toward
// stop i of the following sequence by the fractional part of phase.
// Channels are interpolated linearly and truncated.
func (p *Palette) ColorAt(phase float64, i int) color.NRGBA {
	if phase < 0 || math.IsNaN(phase) || math.IsInf(phase, 0) {
		phase = 0
	}

	n := float64(len(p.seqs))
	whole := math.Floor(phase)
	t := phase - whole
	cur := p.seqs[int(math.Mod(whole, n))]
	next := p.seqs[int(math.Mod(whole+1, n))]

	limit := min(len(cur), len(next)) - 1
	if i > limit {
		i = limit
	}
	if i < 0 {
		i = 0
	}

	a, b := cur[i], next[i]
	return color.NRGBA{
		R: lerpFloor(a.R, b.R, t),
		G: lerpFloor(a.G, b.G, t),
		B: lerpFloor(a.B, b.B, t),
		A: 255,
	}
}

// CurrentColor returns the first stop of the current blend.
func (p *Palette) CurrentColor(phase float64) color.NRGBA {
	return p.ColorAt(phase, 0)
}

// Pick returns a random stop of the current blend.
func (p *Palette) Pick(phase float64, rng *rand.Rand) color.NRGBA {
	if phase < 0 || math.IsNaN(phase) || math.IsInf(phase, 0) {
		phase = 0
	}
	cur := p.seqs[int(math.Mod(math.Floor(phase), float64(len(p.seqs))))]
	return p.ColorAt(phase, rng.Intn(len(cur)))
}

// Advance returns phase moved forward by speed per tick over dt ticks.
// Phase is never wrapped; sequence selection wraps at read time.
func Advance(phase, dt, speed float64) float64 {
	return phase + speed*dt
}

func lerpFloor(a, b uint8, t float64) uint8 {
	return uint8(math.Floor(float64(a)*(1-t) + float64(b)*t))
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
