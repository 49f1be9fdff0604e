package systems

import (
	"math"
	"math/rand"
)

// wrap maps v into [0, size). NaN and infinities collapse to 0.
func wrap(v, size float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	// v+size can round up to size for tiny negative v
	if v >= size {
		v = 0
	}
	return v
}

// uniform returns a value in [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// jitter returns a value in [-scale/2, scale/2).
func jitter(rng *rand.Rand, scale float64) float64 {
	return (rng.Float64() - 0.5) * scale
}
