package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of frames.
type WindowStats struct {
	WindowStartFrame int64   `csv:"-"`
	WindowEndFrame   int64   `csv:"window_end"`
	ElapsedSec       float64 `csv:"elapsed"`

	// Population at window end
	Population int `csv:"population"`
	Text       int `csv:"text"`
	Floating   int `csv:"floating"`
	Transient  int `csv:"transient"`

	// Transient turnover during the window
	Emitted       int `csv:"emitted"`
	Expired       int `csv:"expired"`
	PeakTransient int `csv:"peak_transient"`

	// Frame work time distribution
	FrameMeanMS float64 `csv:"frame_mean_ms"`
	FrameStdMS  float64 `csv:"frame_std_ms"`
	FrameP50MS  float64 `csv:"frame_p50_ms"`
	FrameP90MS  float64 `csv:"frame_p90_ms"`

	// Palette phase at window end
	Phase float64 `csv:"phase"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeFrameStats calculates mean, sample standard deviation and
// percentiles of frame durations.
func ComputeFrameStats(values []float64) (mean, std, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	mean, std = stat.MeanStdDev(values, nil)
	if n < 2 {
		std = 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartFrame),
		slog.Int64("window_end", s.WindowEndFrame),
		slog.Float64("elapsed", s.ElapsedSec),
		slog.Int("population", s.Population),
		slog.Int("text", s.Text),
		slog.Int("floating", s.Floating),
		slog.Int("transient", s.Transient),
		slog.Int("emitted", s.Emitted),
		slog.Int("expired", s.Expired),
		slog.Int("peak_transient", s.PeakTransient),
		slog.Float64("frame_mean_ms", s.FrameMeanMS),
		slog.Float64("frame_std_ms", s.FrameStdMS),
		slog.Float64("frame_p50_ms", s.FrameP50MS),
		slog.Float64("frame_p90_ms", s.FrameP90MS),
		slog.Float64("phase", s.Phase),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndFrame,
		"elapsed", s.ElapsedSec,
		"population", s.Population,
		"text", s.Text,
		"floating", s.Floating,
		"transient", s.Transient,
		"emitted", s.Emitted,
		"expired", s.Expired,
		"peak_transient", s.PeakTransient,
		"frame_mean_ms", s.FrameMeanMS,
		"frame_p90_ms", s.FrameP90MS,
		"phase", s.Phase,
	)
}
