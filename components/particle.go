// Package components defines the particle record shared by the systems and
// renderer packages.
package components

import (
	"image/color"

	"gonum.org/v1/gonum/spatial/r2"
)

// MinSize is the smallest radius a particle can be created with.
const MinSize = 0.1

// Behavior selects the force model applied to a particle.
type Behavior uint8

const (
	TextBound    Behavior = iota // Springs back to its origin, repelled by the pointer
	FreeFloating                 // Drifts along a fixed heading, wraps at the edges
	Transient                    // Coasts with friction and fades out
)

func (b Behavior) String() string {
	switch b {
	case TextBound:
		return "text"
	case FreeFloating:
		return "floating"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// Particle is a single animated dot.
//
// Origin is only meaningful for TextBound, Angle and Speed for FreeFloating,
// Vel and Age/MaxLife for Transient.
type Particle struct {
	Pos    r2.Vec
	Origin r2.Vec
	Vel    r2.Vec

	Size    float64
	Color   color.NRGBA
	Density float64 // Repulsion strength multiplier

	Angle float64 // Radians
	Speed float64 // Pixels per step

	Age     uint32 // Remaining steps; counts down to 0
	MaxLife uint32

	Behavior Behavior
}

func clampSize(size float64) float64 {
	if !(size >= MinSize) {
		return MinSize
	}
	return size
}

// NewTextParticle creates a particle anchored at origin.
func NewTextParticle(origin r2.Vec, size, density float64, c color.NRGBA) Particle {
	return Particle{
		Pos:      origin,
		Origin:   origin,
		Size:     clampSize(size),
		Color:    c,
		Density:  density,
		Behavior: TextBound,
	}
}

// NewFloatingParticle creates a particle drifting from pos along angle.
func NewFloatingParticle(pos r2.Vec, size, angle, speed float64, c color.NRGBA) Particle {
	return Particle{
		Pos:      pos,
		Size:     clampSize(size),
		Color:    c,
		Angle:    angle,
		Speed:    speed,
		Behavior: FreeFloating,
	}
}

// NewSpark creates a transient particle that lives for life steps.
func NewSpark(pos, vel r2.Vec, size float64, life uint32, c color.NRGBA) Particle {
	return Particle{
		Pos:      pos,
		Vel:      vel,
		Size:     clampSize(size),
		Color:    c,
		Age:      life,
		MaxLife:  life,
		Behavior: Transient,
	}
}

// Opacity returns the remaining life fraction of a transient particle in
// [0, 1]. Non-transient particles are always fully opaque.
func (p *Particle) Opacity() float64 {
	if p.Behavior != Transient {
		return 1
	}
	if p.MaxLife == 0 {
		return 0
	}
	age := min(p.Age, p.MaxLife)
	return float64(age) / float64(p.MaxLife)
}

// Alive reports whether the particle should stay in the population.
func (p *Particle) Alive() bool {
	return p.Behavior != Transient || p.Age > 0
}

// RenderColor returns the particle colour with its alpha scaled by Opacity.
func (p *Particle) RenderColor() color.NRGBA {
	c := p.Color
	if p.Behavior == Transient {
		c.A = uint8(float64(c.A) * p.Opacity())
	}
	return c
}
