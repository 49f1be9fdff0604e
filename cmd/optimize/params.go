// Package main provides CMA-ES tuning of the force and spark parameters
// against target interaction feel.
package main

import (
	"github.com/pthm-cable/inkdust/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Force model
			{Name: "interaction_distance", Path: "physics.interaction_distance", Min: 20, Max: 200, Default: 100},
			{Name: "return_speed", Path: "physics.return_speed", Min: 2, Max: 40, Default: 10},
			{Name: "friction", Path: "physics.friction", Min: 0.85, Max: 0.999, Default: 0.98},
			// Sparks
			{Name: "spacing", Path: "smudge.spacing", Min: 2, Max: 20, Default: 5},
			{Name: "life_min", Path: "smudge.life_min", Min: 10, Max: 150, Default: 50},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Physics.InteractionDistance = clamped[0]
	cfg.Physics.ReturnSpeed = clamped[1]
	cfg.Physics.Friction = clamped[2]
	cfg.Smudge.Spacing = clamped[3]
	cfg.Smudge.LifeMin = int(clamped[4])
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Physics.InteractionDistance,
		cfg.Physics.ReturnSpeed,
		cfg.Physics.Friction,
		cfg.Smudge.Spacing,
		float64(cfg.Smudge.LifeMin),
	}
}
