// Package systems advances and draws the particle population.
package systems

import (
	"image"
	"image/color"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/inkdust/components"
	"github.com/pthm-cable/inkdust/palette"
)

// TextStyle configures particles seeded from glyph samples.
type TextStyle struct {
	Size       float64
	Color      color.NRGBA
	DensityMin float64
	DensityMax float64
}

// FloatingStyle configures the ambient background particles.
type FloatingStyle struct {
	Density         float64 // Particles per AreaPerParticle px²
	AreaPerParticle float64
	Color           color.NRGBA
	SizeMin         float64
	SizeMax         float64
	SpeedMin        float64
	SpeedMax        float64
}

// SparkStyle configures transient sparks emitted along a drag path.
type SparkStyle struct {
	Spacing        float64 // Pixels of travel per group
	GroupMin       int
	GroupMax       int
	PositionJitter float64
	VelocityJitter float64
	Spread         float64 // Per-group velocity randomness
	TangentSpeed   float64
	LifeMin        int
	LifeSpan       int
	Size           float64
	Growth         float64 // Extra radius at full opacity
}

// Config is the full parameter set of a ParticleSystem. It is replaced
// wholesale via SetConfig, never mutated in place.
type Config struct {
	Force        ForceConfig
	MaxParticles int // 0 = unlimited
	Text         TextStyle
	Floating     FloatingStyle
	Spark        SparkStyle
}

// DefaultConfig returns the stock tuning, matching config/defaults.yaml.
func DefaultConfig() Config {
	return Config{
		Force: DefaultForceConfig(),
		Text: TextStyle{
			Size:       1.5,
			Color:      color.NRGBA{R: 255, G: 255, B: 255, A: 255},
			DensityMin: 5,
			DensityMax: 15,
		},
		Floating: FloatingStyle{
			Density:         1,
			AreaPerParticle: 5000,
			Color:           color.NRGBA{R: 255, G: 255, B: 255, A: 128},
			SizeMin:         0.5,
			SizeMax:         1.5,
			SpeedMin:        0.1,
			SpeedMax:        0.6,
		},
		Spark: SparkStyle{
			Spacing:        5,
			GroupMin:       3,
			GroupMax:       5,
			PositionJitter: 10,
			VelocityJitter: 2,
			Spread:         2,
			TangentSpeed:   2,
			LifeMin:        50,
			LifeSpan:       100,
			Size:           3,
			Growth:         5,
		},
	}
}

// Canvas is the drawing capability Render needs.
type Canvas interface {
	DrawFilledCircle(center r2.Vec, radius float64, c color.NRGBA)
}

// ParticleSystem owns the particle population.
type ParticleSystem struct {
	particles []components.Particle
	cfg       Config
	bounds    Bounds
	rng       *rand.Rand
	logger    *slog.Logger
}

// NewParticleSystem creates an empty particle system. A nil rng is seeded
// from 1, a nil logger uses slog.Default().
func NewParticleSystem(cfg Config, bounds Bounds, rng *rand.Rand, logger *slog.Logger) *ParticleSystem {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ParticleSystem{
		particles: make([]components.Particle, 0, 1024),
		cfg:       cfg,
		bounds:    bounds,
		rng:       rng,
		logger:    logger,
	}
}

// Config returns the current configuration.
func (s *ParticleSystem) Config() Config {
	return s.cfg
}

// SetConfig replaces the configuration. Existing particles keep the
// attributes they were created with.
func (s *ParticleSystem) SetConfig(cfg Config) {
	s.cfg = cfg
}

// Bounds returns the canvas bounds.
func (s *ParticleSystem) Bounds() Bounds {
	return s.bounds
}

// SetBounds updates the canvas bounds. Free-floating particles are wrapped
// into the new bounds on their next step.
func (s *ParticleSystem) SetBounds(b Bounds) {
	s.bounds = b
}

// Step advances every particle by one step and removes expired transients.
// Survivors keep their relative order. Returns the number removed.
func (s *ParticleSystem) Step(pointer Pointer) int {
	env := Env{Pointer: pointer, Bounds: s.bounds, Config: s.cfg.Force}

	alive := 0
	for i := range s.particles {
		p := &s.particles[i]

		ForceFor(p.Behavior).Apply(p, &env)
		if !p.Alive() {
			continue
		}

		// Keep particle
		s.particles[alive] = *p
		alive++
	}

	expired := len(s.particles) - alive
	clear(s.particles[alive:])
	s.particles = s.particles[:alive]
	return expired
}

// Render draws every particle as a filled disc in population order.
func (s *ParticleSystem) Render(c Canvas) {
	for i := range s.particles {
		p := &s.particles[i]
		col := p.RenderColor()
		if col.A == 0 {
			continue
		}
		c.DrawFilledCircle(p.Pos, s.radius(p), col)
	}
}

func (s *ParticleSystem) radius(p *components.Particle) float64 {
	if p.Behavior == components.Transient {
		return p.Size + p.Opacity()*s.cfg.Spark.Growth
	}
	return p.Size
}

func (s *ParticleSystem) full() bool {
	return s.cfg.MaxParticles > 0 && len(s.particles) >= s.cfg.MaxParticles
}

// EmitBurst creates sparks at count points spaced linearly from previous to
// origin (count is raised to at least 1). Each point gets a group of
// GroupMin..GroupMax sparks moving along the path tangent with jitter.
// Colours come from pal at phase; a nil palette uses the defaults.
// Returns the number of sparks created.
func (s *ParticleSystem) EmitBurst(origin, previous r2.Vec, count int, pal *palette.Palette, phase float64) int {
	if count < 1 {
		count = 1
	}
	if pal == nil {
		pal = palette.Default()
	}

	st := s.cfg.Spark
	d := r2.Sub(origin, previous)
	angle := math.Atan2(d.Y, d.X)
	tangent := r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}

	groupMin := max(st.GroupMin, 1)
	groupSpan := max(st.GroupMax-groupMin+1, 1)

	created := 0
	for i := 0; i < count; i++ {
		t := 0.0
		if count > 1 {
			t = float64(i) / float64(count-1)
		}
		at := r2.Add(previous, r2.Scale(t, d))

		base := r2.Scale(st.TangentSpeed, tangent)
		base.X += jitter(s.rng, st.Spread)
		base.Y += jitter(s.rng, st.Spread)

		n := groupMin + s.rng.Intn(groupSpan)
		for j := 0; j < n; j++ {
			if s.full() {
				return created
			}

			pos := r2.Vec{
				X: at.X + jitter(s.rng, st.PositionJitter),
				Y: at.Y + jitter(s.rng, st.PositionJitter),
			}
			vel := r2.Vec{
				X: base.X + jitter(s.rng, st.VelocityJitter),
				Y: base.Y + jitter(s.rng, st.VelocityJitter),
			}

			life := max(st.LifeMin, 0)
			if st.LifeSpan > 0 {
				life += s.rng.Intn(st.LifeSpan)
			}

			s.particles = append(s.particles,
				components.NewSpark(pos, vel, st.Size, uint32(life), pal.Pick(phase, s.rng)))
			created++
		}
	}
	return created
}

// EmitStroke emits sparks along the segment from previous to origin, one
// group per Spacing pixels of travel and at least one group.
func (s *ParticleSystem) EmitStroke(origin, previous r2.Vec, pal *palette.Palette, phase float64) int {
	count := 1
	if s.cfg.Spark.Spacing > 0 {
		count = max(int(math.Floor(r2.Norm(r2.Sub(origin, previous))/s.cfg.Spark.Spacing)), 1)
	}
	return s.EmitBurst(origin, previous, count, pal, phase)
}

// SeedFromSamples replaces all text-bound particles with one per sample
// point. Other particles are untouched. Returns the number created.
func (s *ParticleSystem) SeedFromSamples(points []image.Point) int {
	s.removeBehavior(components.TextBound)
	if len(points) == 0 {
		s.logger.Debug("particles: no glyph samples to seed")
		return 0
	}

	st := s.cfg.Text
	created := 0
	for _, pt := range points {
		if s.full() {
			s.logger.Warn("particles: population cap reached while seeding text",
				"cap", s.cfg.MaxParticles, "samples", len(points), "seeded", created)
			break
		}
		origin := r2.Vec{X: float64(pt.X), Y: float64(pt.Y)}
		density := uniform(s.rng, st.DensityMin, st.DensityMax)
		s.particles = append(s.particles, components.NewTextParticle(origin, st.Size, density, st.Color))
		created++
	}
	return created
}

// SeedFloating replaces all free-floating particles with a uniform random
// field sized to the canvas area. Returns the number created.
func (s *ParticleSystem) SeedFloating() int {
	s.removeBehavior(components.FreeFloating)

	st := s.cfg.Floating
	area := s.bounds.Area()
	if area == 0 || st.AreaPerParticle <= 0 {
		s.logger.Warn("particles: cannot seed background on a zero-area canvas",
			"width", s.bounds.Width, "height", s.bounds.Height)
		return 0
	}

	n := int(math.Floor(area / st.AreaPerParticle * st.Density))
	created := 0
	for i := 0; i < n; i++ {
		if s.full() {
			break
		}
		pos := r2.Vec{X: s.rng.Float64() * s.bounds.Width, Y: s.rng.Float64() * s.bounds.Height}
		s.particles = append(s.particles, components.NewFloatingParticle(
			pos,
			uniform(s.rng, st.SizeMin, st.SizeMax),
			s.rng.Float64()*2*math.Pi,
			uniform(s.rng, st.SpeedMin, st.SpeedMax),
			st.Color,
		))
		created++
	}
	return created
}

func (s *ParticleSystem) removeBehavior(b components.Behavior) {
	kept := 0
	for i := range s.particles {
		if s.particles[i].Behavior == b {
			continue
		}
		s.particles[kept] = s.particles[i]
		kept++
	}
	clear(s.particles[kept:])
	s.particles = s.particles[:kept]
}

// Clear empties the population.
func (s *ParticleSystem) Clear() {
	clear(s.particles)
	s.particles = s.particles[:0]
}

// Count returns the current number of particles.
func (s *ParticleSystem) Count() int {
	return len(s.particles)
}

// CountBy returns the number of particles with the given behavior.
func (s *ParticleSystem) CountBy(b components.Behavior) int {
	n := 0
	for i := range s.particles {
		if s.particles[i].Behavior == b {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the population in render order.
func (s *ParticleSystem) Snapshot() []components.Particle {
	out := make([]components.Particle, len(s.particles))
	copy(out, s.particles)
	return out
}
