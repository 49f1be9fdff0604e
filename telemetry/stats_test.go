package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeFrameStats(t *testing.T) {
	values := []float64{4, 2, 6, 8}
	mean, std, p50, p90 := ComputeFrameStats(values)

	if math.Abs(mean-5) > 1e-9 {
		t.Errorf("mean = %v, want 5", mean)
	}

	// Sample std of {2,4,6,8} is sqrt(20/3)
	if math.Abs(std-math.Sqrt(20.0/3)) > 1e-9 {
		t.Errorf("std = %v, want %v", std, math.Sqrt(20.0/3))
	}

	if math.Abs(p50-5) > 1e-9 {
		t.Errorf("p50 = %v, want 5", p50)
	}

	// idx 2.7 between 6 and 8
	if math.Abs(p90-7.4) > 1e-9 {
		t.Errorf("p90 = %v, want 7.4", p90)
	}

	// Input must not be reordered
	if values[0] != 4 {
		t.Error("ComputeFrameStats sorted its input in place")
	}
}

func TestComputeFrameStatsSmall(t *testing.T) {
	mean, std, p50, p90 := ComputeFrameStats(nil)
	if mean != 0 || std != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty slice should return all zeros")
	}

	mean, std, _, _ = ComputeFrameStats([]float64{3})
	if mean != 3 || std != 0 {
		t.Errorf("single value: mean %v std %v, want 3 0", mean, std)
	}
}
