package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/inkdust/components"
)

// Pointer is the latest known pointer position.
type Pointer struct {
	Pos     r2.Vec
	Present bool // False when no pointer is over the canvas
}

// Bounds represents the canvas bounds.
type Bounds struct {
	Width, Height float64
}

// Area returns Width*Height, or 0 for degenerate bounds.
func (b Bounds) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// ForceConfig holds parameters shared by all force policies.
type ForceConfig struct {
	InteractionDistance float64 // Pointer repulsion radius
	ReturnSpeed         float64 // Spring divisor; values below 1 are treated as 1
	Friction            float64 // Transient velocity multiplier per step
}

// DefaultForceConfig returns the stock force tuning.
func DefaultForceConfig() ForceConfig {
	return ForceConfig{
		InteractionDistance: 100,
		ReturnSpeed:         10,
		Friction:            0.98,
	}
}

// Env is everything a force policy may read during one step.
type Env struct {
	Pointer Pointer
	Bounds  Bounds
	Config  ForceConfig
}

// ForceModel advances one particle by one step.
type ForceModel interface {
	Apply(p *components.Particle, env *Env)
}

// Repel pushes text particles away from a nearby pointer and otherwise
// springs them back toward their origin. Repulsion displaces position
// directly; there is no velocity integration.
type Repel struct{}

// Drift moves free-floating particles along their fixed heading with
// toroidal wraparound.
type Drift struct{}

// Decay integrates velocity with friction and counts down remaining life.
type Decay struct{}

var (
	repel ForceModel = Repel{}
	drift ForceModel = Drift{}
	decay ForceModel = Decay{}
)

// ForceFor returns the policy for a behavior.
func ForceFor(b components.Behavior) ForceModel {
	switch b {
	case components.FreeFloating:
		return drift
	case components.Transient:
		return decay
	default:
		return repel
	}
}

// Apply implements ForceModel.
func (Repel) Apply(p *components.Particle, env *Env) {
	radius := env.Config.InteractionDistance
	if env.Pointer.Present && radius > 0 {
		d := r2.Sub(env.Pointer.Pos, p.Pos)
		dist := r2.Norm(d)
		if dist > 0 && dist < radius {
			force := (radius - dist) / radius
			p.Pos = r2.Sub(p.Pos, r2.Scale(force*p.Density/dist, d))
			return
		}
	}

	rs := env.Config.ReturnSpeed
	if !(rs >= 1) {
		rs = 1
	}
	if p.Pos.X != p.Origin.X {
		p.Pos.X -= (p.Pos.X - p.Origin.X) / rs
	}
	if p.Pos.Y != p.Origin.Y {
		p.Pos.Y -= (p.Pos.Y - p.Origin.Y) / rs
	}
}

// Apply implements ForceModel.
func (Drift) Apply(p *components.Particle, env *Env) {
	p.Pos.X += math.Cos(p.Angle) * p.Speed
	p.Pos.Y += math.Sin(p.Angle) * p.Speed

	if env.Bounds.Width > 0 {
		p.Pos.X = wrap(p.Pos.X, env.Bounds.Width)
	}
	if env.Bounds.Height > 0 {
		p.Pos.Y = wrap(p.Pos.Y, env.Bounds.Height)
	}
}

// Apply implements ForceModel.
func (Decay) Apply(p *components.Particle, env *Env) {
	p.Pos = r2.Add(p.Pos, p.Vel)
	p.Vel = r2.Scale(env.Config.Friction, p.Vel)

	if p.Age > p.MaxLife {
		p.Age = p.MaxLife
	}
	if p.Age > 0 {
		p.Age--
	}
}

// SettleSteps returns how many spring-return steps bring an offset of the
// given magnitude within eps of the origin.
func SettleSteps(offset, eps, returnSpeed float64) int {
	if offset <= eps {
		return 0
	}
	if returnSpeed <= 1 {
		return 1
	}
	keep := 1 - 1/returnSpeed
	return int(math.Ceil(math.Log(eps/offset) / math.Log(keep)))
}
