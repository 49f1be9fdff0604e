package game

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/inkdust/components"
	"github.com/pthm-cable/inkdust/config"
	"github.com/pthm-cable/inkdust/glyph"
	"github.com/pthm-cable/inkdust/renderer"
	"github.com/pthm-cable/inkdust/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Text.Content = "HI"
	cfg.Text.FontSize = 40
	cfg.Text.Stride = 2
	return cfg
}

func testRasterizer(t *testing.T) glyph.Rasterizer {
	t.Helper()
	r, err := glyph.NewFaceRasterizer()
	if err != nil {
		t.Fatalf("NewFaceRasterizer: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func newTestLoop(t *testing.T, w, h int) (*Loop, *renderer.ImageSurface) {
	t.Helper()
	surface := renderer.NewImageSurface(w, h)
	l := NewLoop(testConfig(t), surface, testRasterizer(t), Options{Seed: 1, Logger: quietLogger()})
	return l, surface
}

// lostSurface reports itself invalid.
type lostSurface struct {
	*renderer.ImageSurface
	valid bool
}

func (s *lostSurface) Valid() bool { return s.valid }

func TestFrameSeedsLayers(t *testing.T) {
	l, _ := newTestLoop(t, 200, 100)

	if !l.Frame(16 * time.Millisecond) {
		t.Fatal("Frame returned false on a usable surface")
	}

	pop := l.Population()
	if pop.Text == 0 {
		t.Error("expected text particles after the first frame")
	}
	// 200*100/5000 * 1
	if pop.Floating != 4 {
		t.Errorf("floating = %d, want 4", pop.Floating)
	}
	if pop.Transient != 0 {
		t.Errorf("transient = %d, want 0 without input", pop.Transient)
	}

	// Seeding happens once
	l.Frame(16 * time.Millisecond)
	if got := l.Population(); got.Text != pop.Text || got.Floating != pop.Floating {
		t.Errorf("population changed without resize: %+v -> %+v", pop, got)
	}
}

func TestFrameInactiveSurfaces(t *testing.T) {
	cfg := testConfig(t)
	r := testRasterizer(t)

	tests := []struct {
		name    string
		surface renderer.Surface
	}{
		{"nil", nil},
		{"zero size", renderer.NewImageSurface(0, 50)},
		{"lost", &lostSurface{ImageSurface: renderer.NewImageSurface(10, 10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoop(cfg, tt.surface, r, Options{Logger: quietLogger()})
			if l.Active() {
				t.Error("loop active on unusable surface")
			}
			if l.Frame(time.Millisecond) {
				t.Error("Frame returned true on unusable surface")
			}
			if l.Start() {
				t.Error("Start succeeded on unusable surface")
			}
		})
	}
}

func TestSurfaceLostMidRun(t *testing.T) {
	cfg := testConfig(t)
	s := &lostSurface{ImageSurface: renderer.NewImageSurface(50, 50), valid: true}
	l := NewLoop(cfg, s, testRasterizer(t), Options{Logger: quietLogger()})

	if !l.Frame(time.Millisecond) {
		t.Fatal("first frame failed")
	}
	s.valid = false
	if l.Frame(time.Millisecond) || l.Active() {
		t.Error("loop kept running after surface was lost")
	}

	s.valid = true
	if !l.Start() || !l.Frame(time.Millisecond) {
		t.Error("loop did not resume after surface came back")
	}
}

func TestDragEmitsSparks(t *testing.T) {
	l, _ := newTestLoop(t, 200, 100)
	l.Frame(0)

	l.PointerMove(10, 10)
	if n := l.Population().Transient; n != 0 {
		t.Errorf("hover emitted %d sparks", n)
	}

	l.PointerDown(10, 10)
	if !l.Drawing() {
		t.Fatal("PointerDown did not start drawing")
	}
	l.PointerMove(60, 10)
	// 50 px at 5 px spacing = 10 groups of 3..5
	n := l.Population().Transient
	if n < 30 || n > 50 {
		t.Errorf("drag emitted %d sparks, want 30..50", n)
	}

	l.PointerUp()
	l.PointerMove(100, 10)
	if got := l.Population().Transient; got != n {
		t.Errorf("moving after PointerUp emitted %d more sparks", got-n)
	}
}

func TestDragStationaryStillEmits(t *testing.T) {
	l, _ := newTestLoop(t, 200, 100)
	l.PointerDown(30, 30)
	l.PointerMove(30, 30)
	if n := l.Population().Transient; n < 3 {
		t.Errorf("stationary drag emitted %d sparks, want >= 3", n)
	}
}

func TestPointerLeaveStopsDrawing(t *testing.T) {
	l, _ := newTestLoop(t, 200, 100)
	l.PointerDown(30, 30)
	l.PointerLeave()
	if l.Drawing() {
		t.Error("still drawing after PointerLeave")
	}
	l.PointerMove(80, 30)
	if n := l.Population().Transient; n != 0 {
		t.Errorf("emitted %d sparks after leave", n)
	}
}

func TestSparksExpire(t *testing.T) {
	l, _ := newTestLoop(t, 200, 100)
	l.PointerDown(10, 50)
	l.PointerMove(100, 50)

	var maxLife uint32
	for _, p := range l.Particles() {
		maxLife = max(maxLife, p.MaxLife)
	}
	for i := uint32(0); i < maxLife; i++ {
		l.Frame(16 * time.Millisecond)
	}
	if n := l.Population().Transient; n != 0 {
		t.Errorf("%d sparks alive after %d frames", n, maxLife)
	}
}

func TestResizeKeepsMovingParticles(t *testing.T) {
	l, _ := newTestLoop(t, 200, 100)
	l.Frame(0)
	l.PointerDown(10, 50)
	l.PointerMove(100, 50)
	before := l.Population()

	l.Resize(300, 120)
	l.Frame(16 * time.Millisecond)
	after := l.Population()

	if after.Floating != before.Floating {
		t.Errorf("floating %d -> %d across resize", before.Floating, after.Floating)
	}
	if after.Transient != before.Transient {
		t.Errorf("transient %d -> %d across resize", before.Transient, after.Transient)
	}
	if after.Text == 0 {
		t.Error("text not reseeded after resize")
	}

	for _, p := range l.Particles() {
		if p.Behavior != components.TextBound {
			continue
		}
		if p.Origin.X >= 300 || p.Origin.Y >= 120 {
			t.Fatalf("text origin %v outside resized canvas", p.Origin)
		}
	}
}

func TestSetTextReseeds(t *testing.T) {
	l, _ := newTestLoop(t, 200, 100)
	l.Frame(0)
	hi := l.Population().Text

	l.SetText("")
	l.Frame(0)
	if n := l.Population().Text; n != 0 {
		t.Errorf("empty text left %d text particles (was %d)", n, hi)
	}
}

func TestClearRebuildsSeededLayers(t *testing.T) {
	l, surface := newTestLoop(t, 200, 100)
	l.Frame(0)
	l.PointerDown(10, 50)
	l.PointerMove(100, 50)
	seeded := l.Population()

	l.Clear()
	if n := l.Population().Total(); n != 0 {
		t.Errorf("population %d after Clear", n)
	}
	if got := surface.Image().RGBAAt(50, 50); got != (color.RGBA{A: 255}) {
		t.Errorf("background not repainted: %v", got)
	}

	l.Frame(0)
	got := l.Population()
	if got.Text != seeded.Text || got.Floating != seeded.Floating || got.Transient != 0 {
		t.Errorf("after Clear+Frame population = %+v, want text %d floating %d transient 0",
			got, seeded.Text, seeded.Floating)
	}
}

func TestPhaseAdvancesWithTime(t *testing.T) {
	l, _ := newTestLoop(t, 50, 50)
	// 1s = 10 palette ticks at 0.005 per tick
	l.Frame(time.Second)
	if got := l.Phase(); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("phase = %v, want 0.05", got)
	}
}

func TestRun(t *testing.T) {
	l, _ := newTestLoop(t, 50, 50)

	ticks := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background(), ticks) }()

	now := time.Now()
	for i := 0; i < 5; i++ {
		ticks <- now.Add(time.Duration(i) * 16 * time.Millisecond)
	}
	close(ticks)

	if err := <-done; err != nil {
		t.Errorf("Run = %v, want nil on closed ticks", err)
	}
	if n := l.FrameCount(); n != 5 {
		t.Errorf("frames = %d, want 5", n)
	}
}

func TestRunCancel(t *testing.T) {
	l, _ := newTestLoop(t, 50, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Run(ctx, make(chan time.Time)); err != context.Canceled {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

// hookSurface runs onPaint once, the first time the background is painted
// after onPaint is set.
type hookSurface struct {
	*renderer.ImageSurface
	once    sync.Once
	onPaint func()
}

func (s *hookSurface) painted() {
	if s.onPaint != nil {
		s.once.Do(s.onPaint)
	}
}

func (s *hookSurface) Clear(c color.NRGBA) {
	s.painted()
	s.ImageSurface.Clear(c)
}

func (s *hookSurface) FadeToward(c color.NRGBA, alpha float64) {
	s.painted()
	s.ImageSurface.FadeToward(c, alpha)
}

func TestRunCancelledDuringFrame(t *testing.T) {
	// Cancellation and the tick source closing land in the same frame, so
	// both select cases are ready afterwards. Either must report ctx.Err().
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ticks := make(chan time.Time, 1)
		surface := &hookSurface{ImageSurface: renderer.NewImageSurface(50, 50)}
		l := NewLoop(testConfig(t), surface, testRasterizer(t), Options{Seed: 1, Logger: quietLogger()})
		surface.onPaint = func() {
			cancel()
			close(ticks)
		}

		ticks <- time.Now()
		if err := l.Run(ctx, ticks); err != context.Canceled {
			t.Fatalf("iteration %d: Run = %v, want context.Canceled", i, err)
		}
		if l.FrameCount() != 1 {
			t.Fatalf("iteration %d: frames = %d, want 1", i, l.FrameCount())
		}
	}
}

func TestRunStopsWhenInactive(t *testing.T) {
	l, _ := newTestLoop(t, 50, 50)
	l.Stop()

	ticks := make(chan time.Time, 1)
	ticks <- time.Now()
	if err := l.Run(context.Background(), ticks); err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
	if l.FrameCount() != 0 {
		t.Error("stopped loop ran a frame")
	}
}

func TestConcurrentInput(t *testing.T) {
	l, _ := newTestLoop(t, 200, 100)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			l.Frame(time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		l.PointerDown(0, 0)
		for i := 0; i < 100; i++ {
			l.PointerMove(float64(i), float64(i%50))
		}
		l.PointerUp()
	}()
	wg.Wait()

	if l.FrameCount() != 100 {
		t.Errorf("frames = %d, want 100", l.FrameCount())
	}
}

func TestExport(t *testing.T) {
	l, _ := newTestLoop(t, 64, 32)
	l.Frame(0)

	data, err := l.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Errorf("export size = %v", b)
	}

	noSurface := NewLoop(testConfig(t), nil, nil, Options{Logger: quietLogger()})
	if _, err := noSurface.Export(); err == nil {
		t.Error("Export without surface should fail")
	}
}

func TestExportName(t *testing.T) {
	at := time.Date(2026, 3, 9, 15, 4, 5, 0, time.UTC)
	if got := ExportName("evolving-smudge", at); got != "evolving-smudge-2026-03-09.png" {
		t.Errorf("ExportName = %q", got)
	}
	if got := ExportName("", at); got != "inkdust-2026-03-09.png" {
		t.Errorf("ExportName empty prefix = %q", got)
	}
}

func TestStatsCallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.Derived.StatsWindowFrames = 3

	var windows []telemetry.WindowStats
	l := NewLoop(cfg, renderer.NewImageSurface(50, 50), testRasterizer(t), Options{
		Logger:        quietLogger(),
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})

	for i := 0; i < 7; i++ {
		l.Frame(16 * time.Millisecond)
	}
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	if windows[1].WindowStartFrame != 3 || windows[1].WindowEndFrame != 6 {
		t.Errorf("second window = [%d, %d], want [3, 6]", windows[1].WindowStartFrame, windows[1].WindowEndFrame)
	}
	if windows[0].Population == 0 {
		t.Error("window population not recorded")
	}
}

func TestFadeLeavesTrails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Text.Content = ""
	cfg.Background.Density = 0

	surface := renderer.NewImageSurface(40, 40)
	l := NewLoop(cfg, surface, testRasterizer(t), Options{Logger: quietLogger()})

	// Paint a white disc, then fade with nothing drawn on top
	surface.DrawFilledCircle(r2.Vec{X: 20, Y: 20}, 5, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	l.Frame(0)

	got := surface.Image().RGBAAt(20, 20)
	if got.R < 200 || got.R == 255 {
		t.Errorf("after one fade R = %d, want slightly dimmed", got.R)
	}

	cfg.Smudge.FadeSpeed = 0
	l.Configure(cfg)
	l.Frame(0)
	if got := surface.Image().RGBAAt(20, 20); got.R != 0 {
		t.Errorf("full clear left R = %d", got.R)
	}
}

func TestSaveWritesToOutputDir(t *testing.T) {
	out, err := telemetry.NewOutputManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	l, _ := newTestLoop(t, 32, 32)
	l.Frame(0)

	path, err := l.Save(out, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if want := filepath.Join(out.Dir(), "evolving-smudge-2026-01-02.png"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("saved file is not a PNG: %v", err)
	}
}

func TestSmudgeToggle(t *testing.T) {
	l, _ := newTestLoop(t, 100, 100)
	l.SetSmudge(false)
	l.PointerDown(10, 10)
	l.PointerMove(60, 60)
	if n := l.Population().Transient; n != 0 {
		t.Errorf("smudge off emitted %d sparks", n)
	}
	if l.Smudge() {
		t.Error("Smudge() = true after SetSmudge(false)")
	}
}

func TestBlendMatchesPalette(t *testing.T) {
	l, _ := newTestLoop(t, 10, 10)
	blend := l.Blend()
	if len(blend) != 4 {
		t.Fatalf("blend has %d stops, want 4", len(blend))
	}
	if blend[0] != (color.NRGBA{R: 0x34, G: 0x98, B: 0xdb, A: 255}) {
		t.Errorf("first stop = %v", blend[0])
	}
}
