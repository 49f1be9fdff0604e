package palette

import (
	"bytes"
	"image/color"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"testing"
)

func TestCurrentColorAtZero(t *testing.T) {
	p := Default()
	got := p.CurrentColor(0)
	want := color.NRGBA{R: 0x34, G: 0x98, B: 0xdb, A: 255}
	if got != want {
		t.Errorf("CurrentColor(0) = %v, want %v", got, want)
	}
}

func TestNegativePhaseClamps(t *testing.T) {
	p := Default()
	if got, want := p.CurrentColor(-3.7), p.CurrentColor(0); got != want {
		t.Errorf("CurrentColor(-3.7) = %v, want %v", got, want)
	}
	if got, want := p.CurrentColor(math.NaN()), p.CurrentColor(0); got != want {
		t.Errorf("CurrentColor(NaN) = %v, want %v", got, want)
	}
}

func TestInterpolationTruncates(t *testing.T) {
	p := New([][]string{{"#000000"}, {"#030303"}}, nil)

	// 0*0.5 + 3*0.5 = 1.5 -> 1, not 2
	got := p.ColorAt(0.5, 0)
	if got.R != 1 || got.G != 1 || got.B != 1 {
		t.Errorf("ColorAt(0.5) = %v, want channels truncated to 1", got)
	}

	// 3*0.9 = 2.7 -> 2
	got = p.ColorAt(0.9, 0)
	if got.R != 2 {
		t.Errorf("ColorAt(0.9).R = %d, want 2", got.R)
	}
}

func TestSequenceSelectionWraps(t *testing.T) {
	p := Default()
	n := float64(p.Len())

	for k := 0.0; k < 3*n; k++ {
		got := p.CurrentColor(k)
		want := p.seqs[int(math.Mod(k, n))][0]
		if got != want {
			t.Errorf("CurrentColor(%v) = %v, want %v", k, got, want)
		}
	}
}

func TestContinuousAtBoundaries(t *testing.T) {
	p := Default()

	for k := 1; k <= p.Len(); k++ {
		at := p.CurrentColor(float64(k))
		before := p.CurrentColor(float64(k) - 1e-9)

		for _, d := range []int{
			int(at.R) - int(before.R),
			int(at.G) - int(before.G),
			int(at.B) - int(before.B),
		} {
			if d < -1 || d > 1 {
				t.Errorf("discontinuity at phase %d: %v vs %v", k, before, at)
				break
			}
		}
	}
}

func TestMismatchedLengthsClamp(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := New([][]string{
		{"#ff0000", "#00ff00", "#0000ff"},
		{"#ffffff"},
	}, logger)

	if !strings.Contains(buf.String(), "differ in length") {
		t.Errorf("expected length mismatch diagnostic, got %q", buf.String())
	}

	// Index 2 clamps to index 0 on both sides
	got := p.ColorAt(0, 2)
	want := color.NRGBA{R: 255, A: 255}
	if got != want {
		t.Errorf("ColorAt(0, 2) = %v, want %v", got, want)
	}

	// Any index and phase must be safe
	for i := -2; i < 5; i++ {
		for phase := 0.0; phase < 4; phase += 0.25 {
			_ = p.ColorAt(phase, i)
		}
	}
}

func TestNewFallsBackToDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := New([][]string{{}, {}}, logger)
	if p.Len() != len(DefaultSequences) {
		t.Errorf("Len() = %d, want %d", p.Len(), len(DefaultSequences))
	}
	if !strings.Contains(buf.String(), "using defaults") {
		t.Errorf("expected fallback diagnostic, got %q", buf.String())
	}

	if New(nil, logger).Len() != len(DefaultSequences) {
		t.Error("nil sequences should use defaults")
	}
}

func TestInvalidStopIsBlack(t *testing.T) {
	p := New([][]string{{"not-a-colour"}}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if got := p.CurrentColor(0); got != (color.NRGBA{A: 255}) {
		t.Errorf("invalid stop = %v, want opaque black", got)
	}
}

func TestStopsWithoutHash(t *testing.T) {
	var buf bytes.Buffer
	p := New([][]string{{"3498db", "#2980b9", " 1abc9c"}}, slog.New(slog.NewTextHandler(&buf, nil)))

	tests := []struct {
		i    int
		want color.NRGBA
	}{
		{0, color.NRGBA{R: 52, G: 152, B: 219, A: 255}},
		{1, color.NRGBA{R: 0x29, G: 0x80, B: 0xb9, A: 255}},
		{2, color.NRGBA{R: 0x1a, G: 0xbc, B: 0x9c, A: 255}},
	}
	for _, tt := range tests {
		if got := p.ColorAt(0, tt.i); got != tt.want {
			t.Errorf("ColorAt(0, %d) = %v, want %v", tt.i, got, tt.want)
		}
	}
	if strings.Contains(buf.String(), "invalid stop") {
		t.Errorf("unexpected diagnostic: %q", buf.String())
	}
}

func TestPickStaysInBlend(t *testing.T) {
	p := Default()
	rng := rand.New(rand.NewSource(7))

	allowed := make(map[color.NRGBA]bool)
	for i := 0; i < p.Stops(0); i++ {
		allowed[p.ColorAt(0.25, i)] = true
	}

	for i := 0; i < 200; i++ {
		if c := p.Pick(0.25, rng); !allowed[c] {
			t.Fatalf("Pick returned %v, not one of the blended stops", c)
		}
	}
}

func TestAdvance(t *testing.T) {
	phase := 0.0
	for i := 0; i < 10; i++ {
		phase = Advance(phase, 1, 0.5)
	}
	if math.Abs(phase-5) > 1e-12 {
		t.Errorf("phase = %v, want 5", phase)
	}
	if Advance(4.9, 2, 0) != 4.9 {
		t.Error("zero speed must not move phase")
	}
}
