package telemetry

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Phase is one stage of an animation frame.
type Phase uint8

const (
	PhaseReseed    Phase = iota // Glyph sampling and layer seeding
	PhaseComposite              // Trail fade or clear
	PhaseStep                   // Force models and compaction
	PhaseRender                 // Drawing particles
	numPhases
)

var phaseNames = [numPhases]string{"reseed", "composite", "step", "render"}

func (p Phase) String() string {
	if p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// frameTiming is the work time of one frame, split by phase.
type frameTiming struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector keeps per-phase frame timings over a rolling window.
// Not safe for concurrent use; the loop calls it under its own lock.
type PerfCollector struct {
	frames []frameTiming
	next   int
	filled int

	current    frameTiming
	frameStart time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	lastPresent time.Time
	interval    time.Duration
}

// NewPerfCollector creates a collector averaging over window frames
// (60 when window < 1).
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{frames: make([]frameTiming, window)}
}

// StartFrame begins timing a new frame.
func (p *PerfCollector) StartFrame() {
	p.frameStart = time.Now()
	p.current = frameTiming{}
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phase = phase
	p.phaseStart = now
	p.inPhase = phase < numPhases
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase {
		p.current.phases[p.phase] += now.Sub(p.phaseStart)
		p.inPhase = false
	}
}

// EndFrame closes the running phase and records the frame.
func (p *PerfCollector) EndFrame() {
	now := time.Now()
	p.closePhase(now)
	p.current.total = now.Sub(p.frameStart)
	p.record(p.current)
}

func (p *PerfCollector) record(f frameTiming) {
	p.frames[p.next] = f
	p.next = (p.next + 1) % len(p.frames)
	p.filled = min(p.filled+1, len(p.frames))
}

// RecordPresent records the wall-clock interval since the previous
// presented frame.
func (p *PerfCollector) RecordPresent() {
	now := time.Now()
	if !p.lastPresent.IsZero() {
		p.interval = now.Sub(p.lastPresent)
	}
	p.lastPresent = now
}

// DurationStats summarizes a set of durations.
type DurationStats struct {
	Mean time.Duration
	Std  time.Duration // Sample standard deviation; 0 for fewer than 2 frames
	P90  time.Duration
	Max  time.Duration
}

func summarize(us []float64) DurationStats {
	if len(us) == 0 {
		return DurationStats{}
	}
	mean, std := stat.MeanStdDev(us, nil)
	if len(us) < 2 || math.IsNaN(std) {
		std = 0
	}
	sorted := slices.Clone(us)
	slices.Sort(sorted)
	return DurationStats{
		Mean: micros(mean),
		Std:  micros(std),
		P90:  micros(stat.Quantile(0.9, stat.Empirical, sorted, nil)),
		Max:  micros(floats.Max(sorted)),
	}
}

func micros(us float64) time.Duration {
	return time.Duration(math.Round(us * float64(time.Microsecond)))
}

// PerfStats is the timing summary of the current window.
type PerfStats struct {
	Frames int
	Frame  DurationStats
	Phases [numPhases]DurationStats
	Share  [numPhases]float64 // Percent of total frame time per phase

	Headroom float64 // Frames per second the mean work time would allow
	Interval time.Duration
	FPS      float64
}

// Phase returns the timing summary of one phase.
func (s PerfStats) Phase(p Phase) DurationStats {
	if p >= numPhases {
		return DurationStats{}
	}
	return s.Phases[p]
}

// Stats summarizes the frames in the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{Frames: p.filled, Interval: p.interval}
	if p.interval > 0 {
		s.FPS = float64(time.Second) / float64(p.interval)
	}
	if p.filled == 0 {
		return s
	}

	totals := make([]float64, p.filled)
	var phases [numPhases][]float64
	for ph := range phases {
		phases[ph] = make([]float64, p.filled)
	}
	for i, f := range p.frames[:p.filled] {
		totals[i] = float64(f.total) / float64(time.Microsecond)
		for ph, d := range f.phases {
			phases[ph][i] = float64(d) / float64(time.Microsecond)
		}
	}

	s.Frame = summarize(totals)
	sum := floats.Sum(totals)
	for ph := range phases {
		s.Phases[ph] = summarize(phases[ph])
		if sum > 0 {
			s.Share[ph] = floats.Sum(phases[ph]) / sum * 100
		}
	}
	if s.Frame.Mean > 0 {
		s.Headroom = float64(time.Second) / float64(s.Frame.Mean)
	}
	return s
}

// LogStats logs the summary at info level on the default logger.
func (s PerfStats) LogStats() {
	slog.Info("perf", "perf", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("frames", s.Frames),
		slog.Int64("frame_mean_us", s.Frame.Mean.Microseconds()),
		slog.Int64("frame_std_us", s.Frame.Std.Microseconds()),
		slog.Int64("frame_p90_us", s.Frame.P90.Microseconds()),
		slog.Int64("frame_max_us", s.Frame.Max.Microseconds()),
		slog.Int("headroom_fps", int(s.Headroom)),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Int("fps", int(math.Round(s.FPS))))
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		if s.Share[ph] < 0.1 {
			continue
		}
		attrs = append(attrs, slog.Group(ph.String(),
			slog.Float64("pct", math.Round(s.Share[ph]*10)/10),
			slog.Int64("mean_us", s.Phases[ph].Mean.Microseconds()),
			slog.Int64("std_us", s.Phases[ph].Std.Microseconds()),
		))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd    int64   `csv:"window_end"`
	FrameMeanUS  int64   `csv:"frame_mean_us"`
	FrameStdUS   int64   `csv:"frame_std_us"`
	FrameP90US   int64   `csv:"frame_p90_us"`
	FrameMaxUS   int64   `csv:"frame_max_us"`
	HeadroomFPS  float64 `csv:"headroom_fps"`
	FPS          float64 `csv:"fps"`
	ReseedPct    float64 `csv:"reseed_pct"`
	CompositePct float64 `csv:"composite_pct"`
	StepPct      float64 `csv:"step_pct"`
	StepStdUS    int64   `csv:"step_std_us"`
	RenderPct    float64 `csv:"render_pct"`
	RenderStdUS  int64   `csv:"render_std_us"`
}

// ToCSV flattens the summary into a perf.csv row.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		FrameMeanUS:  s.Frame.Mean.Microseconds(),
		FrameStdUS:   s.Frame.Std.Microseconds(),
		FrameP90US:   s.Frame.P90.Microseconds(),
		FrameMaxUS:   s.Frame.Max.Microseconds(),
		HeadroomFPS:  s.Headroom,
		FPS:          s.FPS,
		ReseedPct:    s.Share[PhaseReseed],
		CompositePct: s.Share[PhaseComposite],
		StepPct:      s.Share[PhaseStep],
		StepStdUS:    s.Phases[PhaseStep].Std.Microseconds(),
		RenderPct:    s.Share[PhaseRender],
		RenderStdUS:  s.Phases[PhaseRender].Std.Microseconds(),
	}
}
