package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/inkdust/config"
	"github.com/pthm-cable/inkdust/game"
	"github.com/pthm-cable/inkdust/glyph"
	"github.com/pthm-cable/inkdust/renderer"
	"github.com/pthm-cable/inkdust/telemetry"
	"github.com/pthm-cable/inkdust/terminal"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Render offscreen without a window")
	term := flag.Bool("terminal", false, "Render in the terminal")
	text := flag.String("text", "", "Text to draw (empty = use config)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config snapshot and saved frames")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N frames (0 = unlimited)")
	export := flag.Bool("export", false, "Save the final frame as PNG on exit (headless)")
	stroke := flag.Bool("stroke", false, "Drag a demo stroke across the canvas (headless)")
	realtime := flag.Bool("realtime", false, "Pace headless frames at the target FPS")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *text != "" {
		cfg.Text.Content = *text
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
		cfg.Derived.StatsWindowFrames = max(int(*statsWindow*float64(max(cfg.Screen.TargetFPS, 1))), 1)
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	// Set up slog (JSON to stdout for structured logging). The terminal
	// host owns stdout, so it logs to a file in the output dir or nowhere.
	var logOut io.Writer = os.Stdout
	if *term {
		logOut = io.Discard
		if output != nil {
			f, err := os.Create(filepath.Join(output.Dir(), "inkdust.log"))
			if err == nil {
				defer f.Close()
				logOut = f
			}
		}
	}
	logger := slog.New(slog.NewJSONHandler(logOut, nil))
	slog.SetDefault(logger)

	rasterizer, err := glyph.NewFaceRasterizer()
	if err != nil {
		slog.Error("failed to load fonts", "error", err)
		os.Exit(1)
	}
	defer rasterizer.Close()

	opts := game.Options{
		Seed:     rngSeed,
		LogStats: *logStats,
		Output:   output,
		Logger:   logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *headless:
		surface := renderer.NewImageSurface(cfg.Screen.Width, cfg.Screen.Height)
		loop := game.NewLoop(cfg, surface, rasterizer, opts)

		slog.Info("starting headless run",
			"seed", rngSeed,
			"width", cfg.Screen.Width,
			"height", cfg.Screen.Height,
			"max_ticks", *maxTicks,
		)

		err := game.RunHeadless(ctx, loop, game.HeadlessOptions{
			MaxTicks: *maxTicks,
			FPS:      cfg.Screen.TargetFPS,
			Stroke:   *stroke,
			Realtime: *realtime,
		})
		if err != nil {
			slog.Info("headless run interrupted", "error", err)
		}
		slog.Info("headless run finished", "frames", loop.FrameCount(), "particles", loop.Population().Total())

		if *export {
			path, err := loop.Save(output, time.Now())
			if err != nil {
				slog.Error("failed to save frame", "error", err)
				os.Exit(1)
			}
			slog.Info("frame saved", "path", path)
		}

	case *term:
		screen, err := tcell.NewScreen()
		if err != nil {
			slog.Error("failed to open terminal", "error", err)
			os.Exit(1)
		}
		if err := screen.Init(); err != nil {
			slog.Error("failed to initialize terminal", "error", err)
			os.Exit(1)
		}
		defer screen.Fini()

		host := terminal.NewHost(screen, cfg, rasterizer, opts)

		fps := max(cfg.Screen.TargetFPS, 1)
		ticker := time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()

		ticks := ticker.C
		if *maxTicks > 0 {
			ticks = limitTicks(ctx, ticker.C, *maxTicks)
		}
		if err := host.Run(ctx, ticks); err != nil && err != context.Canceled {
			slog.Error("terminal run failed", "error", err)
		}

	default:
		if cfg.Screen.Fullscreen {
			rl.SetConfigFlags(rl.FlagFullscreenMode)
		}
		rl.SetConfigFlags(rl.FlagWindowResizable)
		rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), cfg.Screen.Title)
		defer rl.CloseWindow()

		rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

		w := game.NewWindow(cfg, rasterizer, opts)
		defer w.Unload()

		for !rl.WindowShouldClose() && ctx.Err() == nil {
			w.Update()
			w.Draw()

			if *maxTicks > 0 && int(w.Loop().FrameCount()) >= *maxTicks {
				break
			}
		}
	}
}

// limitTicks forwards the first n ticks from in and then closes.
func limitTicks(ctx context.Context, in <-chan time.Time, n int) <-chan time.Time {
	out := make(chan time.Time)
	go func() {
		defer close(out)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case t := <-in:
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
