package main

import (
	"image"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/inkdust/components"
	"github.com/pthm-cable/inkdust/config"
	"github.com/pthm-cable/inkdust/game"
	"github.com/pthm-cable/inkdust/glyph"
	"github.com/pthm-cable/inkdust/palette"
	"github.com/pthm-cable/inkdust/systems"
)

// Evaluation canvas and swipe shape.
const (
	canvasWidth  = 400
	canvasHeight = 200
	swipeFrames  = 30
	settleEps    = 0.5 // Mean text displacement (px) that counts as settled
)

// Targets describe the interaction feel being tuned for.
type Targets struct {
	RecoveryFrames float64 // Frames from swipe end until the text settles
	Scatter        float64 // Peak mean text displacement during the swipe
	SparkBudget    float64 // Peak live sparks before a penalty applies
}

// FitnessEvaluator runs offscreen swipes and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxFrames  int
	seeds      []int64
	baseConfig *config.Config
	targets    Targets
	samples    []image.Point

	mu          sync.Mutex
	lastMetrics runResult
}

// NewFitnessEvaluator samples the configured text once and creates an
// evaluator. Text sampling does not depend on the tuned parameters.
func NewFitnessEvaluator(params *ParamVector, maxFrames int, seeds []int64, baseCfg *config.Config, targets Targets) (*FitnessEvaluator, error) {
	r, err := glyph.NewFaceRasterizer()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	sampler := glyph.NewSampler(r, slog.Default())
	font := glyph.Font{Size: baseCfg.Text.FontSize, Bold: baseCfg.Text.Bold}
	samples := sampler.Sample(baseCfg.Text.Content, font, canvasWidth, canvasHeight, baseCfg.Text.WordSpacing, baseCfg.Text.Stride)

	return &FitnessEvaluator{
		params:     params,
		maxFrames:  maxFrames,
		seeds:      seeds,
		baseConfig: baseCfg,
		targets:    targets,
		samples:    samples,
	}, nil
}

// runResult holds the measurements from a single swipe.
type runResult struct {
	recoveryFrames int     // Frames after the swipe until settled (maxFrames if never)
	peakScatter    float64 // Largest mean text displacement
	peakSparks     int     // Largest live spark count
}

// LastMetrics returns the seed-averaged measurements from the most recent
// evaluation.
func (fe *FitnessEvaluator) LastMetrics() runResult {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMetrics
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	sysCfg := game.SystemConfig(cfg)

	// Run all seeds in parallel
	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSwipe(sysCfg, s)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	var avg runResult
	for _, r := range results {
		total += fe.computeFitness(r)
		avg.recoveryFrames += r.recoveryFrames
		avg.peakScatter += r.peakScatter
		avg.peakSparks += r.peakSparks
	}
	n := len(results)
	avg.recoveryFrames /= n
	avg.peakScatter /= float64(n)
	avg.peakSparks /= n

	fe.mu.Lock()
	fe.lastMetrics = avg
	fe.mu.Unlock()

	return total / float64(n)
}

// runSwipe drags the pointer across the middle of the text, then lets it
// settle with the pointer gone.
func (fe *FitnessEvaluator) runSwipe(cfg systems.Config, seed int64) runResult {
	logger := slog.New(slog.DiscardHandler)
	sys := systems.NewParticleSystem(cfg, systems.Bounds{Width: canvasWidth, Height: canvasHeight},
		rand.New(rand.NewSource(seed)), logger)
	sys.SeedFromSamples(fe.samples)
	pal := palette.Default()

	var res runResult
	y := float64(canvasHeight) / 2
	prev := r2.Vec{X: 0, Y: y}

	for f := 0; f < swipeFrames; f++ {
		pos := r2.Vec{X: float64(f+1) / swipeFrames * canvasWidth, Y: y}
		sys.EmitStroke(pos, prev, pal, 0)
		sys.Step(systems.Pointer{Pos: pos, Present: true})
		prev = pos

		res.peakScatter = max(res.peakScatter, meanDisplacement(sys.Snapshot()))
		res.peakSparks = max(res.peakSparks, sys.CountBy(components.Transient))
	}

	res.recoveryFrames = fe.maxFrames
	for f := 0; f < fe.maxFrames; f++ {
		sys.Step(systems.Pointer{})
		res.peakSparks = max(res.peakSparks, sys.CountBy(components.Transient))
		if meanDisplacement(sys.Snapshot()) < settleEps {
			res.recoveryFrames = f + 1
			break
		}
	}
	return res
}

// meanDisplacement returns the mean distance of text particles from their
// origins.
func meanDisplacement(ps []components.Particle) float64 {
	d := make([]float64, 0, len(ps))
	for i := range ps {
		if ps[i].Behavior != components.TextBound {
			continue
		}
		d = append(d, r2.Norm(r2.Sub(ps[i].Pos, ps[i].Origin)))
	}
	if len(d) == 0 {
		return 0
	}
	return stat.Mean(d, nil)
}

// computeFitness sums squared relative errors against the targets, with
// a one-sided penalty for exceeding the spark budget.
func (fe *FitnessEvaluator) computeFitness(r runResult) float64 {
	t := fe.targets
	fitness := 0.0
	if t.RecoveryFrames > 0 {
		e := (float64(r.recoveryFrames) - t.RecoveryFrames) / t.RecoveryFrames
		fitness += e * e
	}
	if t.Scatter > 0 {
		e := (r.peakScatter - t.Scatter) / t.Scatter
		fitness += e * e
	}
	if t.SparkBudget > 0 {
		over := math.Max(float64(r.peakSparks)/t.SparkBudget-1, 0)
		fitness += over * over
	}
	return fitness
}

// copyConfig returns a shallow copy of the base config. The tuned fields
// are all scalars, so sharing slices is safe.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
