// Package game drives the particle system once per frame and adapts host
// input, resize and rendering surfaces to it.
package game

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/inkdust/components"
	"github.com/pthm-cable/inkdust/config"
	"github.com/pthm-cable/inkdust/glyph"
	"github.com/pthm-cable/inkdust/palette"
	"github.com/pthm-cable/inkdust/renderer"
	"github.com/pthm-cable/inkdust/systems"
	"github.com/pthm-cable/inkdust/telemetry"
)

var errNoSurface = errors.New("no rendering surface")

// Loop is a single-threaded cooperative animation driver. Every exported
// method takes the same lock, so hosts may deliver input from any goroutine
// without interleaving with a frame.
type Loop struct {
	mu sync.Mutex

	sys     *systems.ParticleSystem
	surface renderer.Surface
	sampler *glyph.Sampler
	pal     *palette.Palette
	scene   Scene
	logger  *slog.Logger

	// Input state
	pointer systems.Pointer
	drawing bool

	// Lifecycle
	active         bool
	stale          bool // Glyph samples need recomputing
	floatingSeeded bool
	phase          float64
	frame          int64

	// Telemetry
	perfCollector *telemetry.PerfCollector
	collector     *telemetry.Collector
	outputManager *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.WindowStats)
}

// NewLoop creates a loop drawing onto surface. The loop starts active if
// the surface is usable. rasterizer may be nil, in which case no text is
// seeded.
func NewLoop(cfg *config.Config, surface renderer.Surface, rasterizer glyph.Rasterizer, opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := &Loop{
		surface:       surface,
		sampler:       glyph.NewSampler(rasterizer, logger),
		pal:           palette.New(cfg.Palette.Sequences, logger),
		scene:         SceneFromConfig(cfg),
		logger:        logger,
		stale:         true,
		phase:         cfg.Smudge.InitialPhase,
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:     telemetry.NewCollector(cfg.Derived.StatsWindowFrames),
		outputManager: opts.Output,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}

	var bounds systems.Bounds
	if surface != nil {
		w, h := surface.Size()
		bounds = systems.Bounds{Width: float64(w), Height: float64(h)}
	}
	l.sys = systems.NewParticleSystem(SystemConfig(cfg), bounds, rand.New(rand.NewSource(opts.Seed)), logger)

	l.active = l.surfaceUsable()
	if l.active {
		l.paintBackground()
	} else {
		logger.Warn("loop: rendering surface unavailable")
	}
	return l
}

// surfaceUsable reports whether the surface can be drawn to.
func (l *Loop) surfaceUsable() bool {
	if l.surface == nil {
		return false
	}
	if v, ok := l.surface.(renderer.Validator); ok && !v.Valid() {
		return false
	}
	w, h := l.surface.Size()
	return w > 0 && h > 0
}

// Frame runs one composite, step and render pass. elapsed is the wall time
// since the previous frame and drives the palette clock. Returns whether
// another frame should be scheduled.
func (l *Loop) Frame(elapsed time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active {
		return false
	}
	if !l.surfaceUsable() {
		l.active = false
		l.logger.Warn("loop: rendering surface lost, stopping")
		return false
	}

	start := time.Now()
	l.perfCollector.StartFrame()

	l.perfCollector.StartPhase(telemetry.PhaseReseed)
	l.syncBounds()
	l.seed()

	if l.scene.PhaseTick > 0 && elapsed > 0 {
		ticks := float64(elapsed) / float64(l.scene.PhaseTick)
		l.phase = palette.Advance(l.phase, ticks, l.scene.EvolutionSpeed)
	}

	framer, _ := l.surface.(renderer.Framer)
	if framer != nil {
		framer.BeginFrame()
	}

	l.perfCollector.StartPhase(telemetry.PhaseComposite)
	l.composite()

	l.perfCollector.StartPhase(telemetry.PhaseStep)
	expired := l.sys.Step(l.pointer)

	l.perfCollector.StartPhase(telemetry.PhaseRender)
	l.sys.Render(l.surface)

	if framer != nil {
		framer.EndFrame()
	}

	l.perfCollector.EndFrame()
	l.perfCollector.RecordPresent()
	l.frame++

	l.collector.RecordExpired(expired)
	l.collector.RecordFrame(time.Since(start), elapsed, l.sys.CountBy(components.Transient))
	l.flushTelemetry()

	return true
}

// syncBounds picks up surface size changes the host did not report.
func (l *Loop) syncBounds() {
	w, h := l.surface.Size()
	b := systems.Bounds{Width: float64(w), Height: float64(h)}
	if b != l.sys.Bounds() {
		l.sys.SetBounds(b)
		l.stale = true
	}
}

// seed rebuilds the text layer when stale and the floating layer once.
func (l *Loop) seed() {
	if l.stale {
		w, h := l.surface.Size()
		points := l.sampler.Sample(l.scene.Text, l.scene.Font, w, h, l.scene.WordSpacing, l.scene.Stride)
		n := l.sys.SeedFromSamples(points)
		l.logger.Debug("loop: seeded text", "particles", n, "width", w, "height", h)
		l.stale = false
	}
	if !l.floatingSeeded {
		l.sys.SeedFloating()
		l.floatingSeeded = true
	}
}

// composite applies the trail fade, or a full clear when fading is off.
func (l *Loop) composite() {
	switch {
	case l.scene.FadeSpeed > 0:
		l.surface.FadeToward(l.scene.Background, l.scene.FadeSpeed)
	case l.scene.TransparentBG:
		l.surface.Clear(color.NRGBA{})
	default:
		l.surface.Clear(l.scene.Background)
	}
}

func (l *Loop) paintBackground() {
	if l.scene.TransparentBG {
		l.surface.Clear(color.NRGBA{})
		return
	}
	l.surface.Clear(l.scene.Background)
}

// Run drives frames from ticks until ctx is cancelled, ticks is closed or
// the loop goes inactive. Only cancellation is reported as an error, even
// when ticks closes because of it.
func (l *Loop) Run(ctx context.Context, ticks <-chan time.Time) error {
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-ticks:
			if !ok {
				return ctx.Err()
			}
			var elapsed time.Duration
			if !last.IsZero() {
				elapsed = now.Sub(last)
			}
			last = now

			if !l.Frame(elapsed) {
				return nil
			}
		}
	}
}

// Start resumes frame scheduling. Returns false if the surface is unusable.
func (l *Loop) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = l.surfaceUsable()
	return l.active
}

// Stop halts frame scheduling after the current frame.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = false
}

// Active reports whether frames are being scheduled.
func (l *Loop) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// PointerMove records the latest pointer position. While drawing, sparks
// are emitted along the segment from the previous position.
func (l *Loop) PointerMove(x, y float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos := r2.Vec{X: x, Y: y}
	prev := l.pointer.Pos
	l.pointer = systems.Pointer{Pos: pos, Present: true}

	if l.drawing && l.scene.Smudge && l.active {
		n := l.sys.EmitStroke(pos, prev, l.pal, l.phase)
		l.collector.RecordEmitted(n)
	}
}

// PointerDown starts a drag at (x, y).
func (l *Loop) PointerDown(x, y float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pointer = systems.Pointer{Pos: r2.Vec{X: x, Y: y}, Present: true}
	l.drawing = true
}

// PointerUp ends a drag.
func (l *Loop) PointerUp() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.drawing = false
}

// PointerLeave ends a drag and forgets the pointer so text particles
// settle back to their origins.
func (l *Loop) PointerLeave() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.drawing = false
	l.pointer.Present = false
}

// Drawing reports whether a drag is in progress.
func (l *Loop) Drawing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.drawing
}

// SetSmudge turns drag-to-paint on or off.
func (l *Loop) SetSmudge(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scene.Smudge = on
}

// Smudge reports whether dragging emits sparks.
func (l *Loop) Smudge() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scene.Smudge
}

// Resize adopts new canvas dimensions. Text samples are recomputed on the
// next frame; floating and transient particles stay where they are and are
// wrapped into the new bounds as they move.
func (l *Loop) Resize(width, height int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r, ok := l.surface.(renderer.Resizer); ok {
		r.Resize(width, height)
	}
	l.sys.SetBounds(systems.Bounds{Width: float64(width), Height: float64(height)})
	l.stale = true

	if l.surfaceUsable() {
		l.paintBackground()
	}
}

// SetText replaces the sampled text.
func (l *Loop) SetText(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scene.Text = text
	l.stale = true
}

// Configure replaces the scene and system parameters wholesale. Existing
// particles keep their attributes; the seeded layers are rebuilt.
func (l *Loop) Configure(cfg *config.Config) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.scene = SceneFromConfig(cfg)
	l.pal = palette.New(cfg.Palette.Sequences, l.logger)
	l.sys.SetConfig(SystemConfig(cfg))
	l.stale = true
	l.floatingSeeded = false
}

// Clear drops every particle and repaints the background. The text and
// floating layers are rebuilt on the next frame.
func (l *Loop) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sys.Clear()
	l.stale = true
	l.floatingSeeded = false
	if l.surfaceUsable() {
		l.paintBackground()
	}
}

// Export encodes the current frame as PNG.
func (l *Loop) Export() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.surface == nil {
		return nil, errNoSurface
	}
	return l.surface.Snapshot()
}

// ExportName returns the file name for a frame saved now.
func (l *Loop) ExportName(now time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ExportName(l.scene.DownloadPrefix, now)
}

// Save exports the current frame under its ExportName. The file goes to
// out's directory, or the working directory when out is nil.
func (l *Loop) Save(out *telemetry.OutputManager, now time.Time) (string, error) {
	data, err := l.Export()
	if err != nil {
		return "", fmt.Errorf("exporting frame: %w", err)
	}
	name := l.ExportName(now)
	if out != nil {
		return out.WriteImage(name, data)
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return name, nil
}

// Phase returns the palette phase.
func (l *Loop) Phase() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Blend returns the stops of the current palette blend.
func (l *Loop) Blend() []color.NRGBA {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.pal.Stops(int(math.Floor(max(l.phase, 0))))
	out := make([]color.NRGBA, n)
	for i := range out {
		out[i] = l.pal.ColorAt(l.phase, i)
	}
	return out
}

// FrameCount returns the number of frames run.
func (l *Loop) FrameCount() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frame
}

// Population returns particle counts by behavior.
func (l *Loop) Population() telemetry.Population {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.population()
}

func (l *Loop) population() telemetry.Population {
	return telemetry.Population{
		Text:      l.sys.CountBy(components.TextBound),
		Floating:  l.sys.CountBy(components.FreeFloating),
		Transient: l.sys.CountBy(components.Transient),
	}
}

func (l *Loop) canvasSize() (float64, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.sys.Bounds()
	return b.Width, b.Height
}

// Particles returns a copy of the population.
func (l *Loop) Particles() []components.Particle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sys.Snapshot()
}

// PerfStats returns frame timing over the rolling window.
func (l *Loop) PerfStats() telemetry.PerfStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perfCollector.Stats()
}
