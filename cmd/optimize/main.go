package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/inkdust/config"
)

// EvalRecord is one row of optimize_log.csv.
type EvalRecord struct {
	Eval                int     `csv:"eval"`
	Fitness             float64 `csv:"fitness"`
	RecoveryFrames      int     `csv:"recovery_frames"`
	PeakScatter         float64 `csv:"peak_scatter"`
	PeakSparks          int     `csv:"peak_sparks"`
	InteractionDistance float64 `csv:"interaction_distance"`
	ReturnSpeed         float64 `csv:"return_speed"`
	Friction            float64 `csv:"friction"`
	Spacing             float64 `csv:"spacing"`
	LifeMin             float64 `csv:"life_min"`
}

func newEvalRecord(specs []ParamSpec, values []float64) EvalRecord {
	var r EvalRecord
	for i, spec := range specs {
		switch spec.Name {
		case "interaction_distance":
			r.InteractionDistance = values[i]
		case "return_speed":
			r.ReturnSpeed = values[i]
		case "friction":
			r.Friction = values[i]
		case "spacing":
			r.Spacing = values[i]
		case "life_min":
			r.LifeMin = values[i]
		}
	}
	return r
}

// tuner wraps the evaluator with progress reporting and the CSV log.
type tuner struct {
	params    *ParamVector
	evaluator *FitnessEvaluator
	logFile   *os.File
	maxEvals  int

	evals       int
	bestFitness float64
	bestParams  []float64
	start       time.Time
}

func (t *tuner) evaluate(x []float64) float64 {
	values := t.params.Clamp(t.params.Denormalize(x))
	fitness := t.evaluator.Evaluate(values)
	m := t.evaluator.LastMetrics()

	t.evals++
	if t.bestParams == nil || fitness < t.bestFitness {
		t.bestFitness = fitness
		t.bestParams = values
	}

	rec := newEvalRecord(t.params.Specs, values)
	rec.Eval = t.evals
	rec.Fitness = fitness
	rec.RecoveryFrames = m.recoveryFrames
	rec.PeakScatter = m.peakScatter
	rec.PeakSparks = m.peakSparks
	if err := t.writeRecord(rec); err != nil {
		log.Printf("writing eval %d: %v", t.evals, err)
	}

	elapsed := time.Since(t.start)
	eta := time.Duration(t.maxEvals-t.evals) * (elapsed / time.Duration(t.evals))
	fmt.Printf("[%d/%d] fitness=%.4f best=%.4f recovery=%d scatter=%.1fpx sparks=%d elapsed=%s eta=%s\n",
		t.evals, t.maxEvals, fitness, t.bestFitness, m.recoveryFrames, m.peakScatter, m.peakSparks,
		formatDuration(elapsed), formatDuration(eta))

	return fitness
}

func (t *tuner) writeRecord(rec EvalRecord) error {
	rows := []EvalRecord{rec}
	if t.evals == 1 {
		return gocsv.Marshal(rows, t.logFile)
	}
	return gocsv.MarshalWithoutHeaders(rows, t.logFile)
}

// formatDuration renders d as 1h02m03s, or 2m03s under an hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

type options struct {
	configPath string
	maxFrames  int
	seeds      int
	maxEvals   int
	population int
	targets    Targets
	outputDir  string
}

func run(opts options) error {
	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := config.Init(opts.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	base := config.Cfg()

	seeds := make([]int64, opts.seeds)
	for i := range seeds {
		seeds[i] = int64(42 + 1000*i)
	}

	params := NewParamVector()
	evaluator, err := NewFitnessEvaluator(params, opts.maxFrames, seeds, base, opts.targets)
	if err != nil {
		return fmt.Errorf("creating evaluator: %w", err)
	}
	if len(evaluator.samples) == 0 {
		return fmt.Errorf("text %q produced no glyph samples", base.Text.Content)
	}

	logFile, err := os.Create(filepath.Join(opts.outputDir, "optimize_log.csv"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	t := &tuner{
		params:    params,
		evaluator: evaluator,
		logFile:   logFile,
		maxEvals:  opts.maxEvals,
		start:     time.Now(),
	}

	pop := opts.population
	if pop <= 0 {
		pop = 4 + 3*params.Dim()/2
	}

	fmt.Printf("CMA-ES over %d parameters: population=%d max_evals=%d seeds=%d samples=%d\n",
		params.Dim(), pop, opts.maxEvals, opts.seeds, len(evaluator.samples))

	// Start from the loaded config, not the parameter defaults
	x0 := params.Normalize(params.Clamp(params.ExtractFromConfig(base)))
	result, err := optimize.Minimize(
		optimize.Problem{Func: t.evaluate},
		x0,
		&optimize.Settings{FuncEvaluations: opts.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: pop},
	)
	if err != nil {
		log.Printf("optimization stopped: %v", err)
	}

	best := t.bestParams
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return errors.New("no evaluations completed")
	}

	fmt.Printf("\n%d evaluations in %s, best fitness %.4f\n", t.evals, formatDuration(time.Since(t.start)), t.bestFitness)
	for i, spec := range params.Specs {
		fmt.Printf("  %-28s %.6f\n", spec.Path, best[i])
	}

	out, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	params.ApplyToConfig(out, best)
	path := filepath.Join(opts.outputDir, "best_config.yaml")
	if err := out.WriteYAML(path); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	fmt.Printf("best config: %s\n", path)
	return nil
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.IntVar(&opts.maxFrames, "max-frames", 600, "Frames allowed for text to settle after a swipe")
	flag.IntVar(&opts.seeds, "seeds", 3, "Seeds per evaluation")
	flag.IntVar(&opts.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.IntVar(&opts.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.Float64Var(&opts.targets.RecoveryFrames, "recovery-frames", 45, "Target frames for text to settle after a swipe")
	flag.Float64Var(&opts.targets.Scatter, "scatter", 15, "Target peak mean text displacement in pixels")
	flag.Float64Var(&opts.targets.SparkBudget, "spark-budget", 1500, "Live sparks allowed before a penalty applies")
	flag.StringVar(&opts.outputDir, "output", "", "Output directory for results")
	flag.Parse()

	if opts.outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}
