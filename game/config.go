package game

import (
	"image/color"
	"log/slog"
	"time"

	"github.com/pthm-cable/inkdust/config"
	"github.com/pthm-cable/inkdust/glyph"
	"github.com/pthm-cable/inkdust/systems"
	"github.com/pthm-cable/inkdust/telemetry"
)

// Options holds configuration for loop construction that does not come from
// the YAML config.
type Options struct {
	Seed          int64
	LogStats      bool
	Output        *telemetry.OutputManager    // nil = no CSV output
	StatsCallback func(telemetry.WindowStats) // Runs inside Frame; must not call back into the Loop
	Logger        *slog.Logger
}

// Scene is the per-loop presentation state derived from config.
type Scene struct {
	Text        string
	Font        glyph.Font
	WordSpacing float64
	Stride      int

	Background    color.NRGBA
	TransparentBG bool
	FadeSpeed     float64 // 0 = full clear each frame

	Smudge         bool // Emit sparks while the pointer is down
	EvolutionSpeed float64
	PhaseTick      time.Duration
	DownloadPrefix string
}

// SceneFromConfig extracts the loop's scene settings from cfg.
func SceneFromConfig(cfg *config.Config) Scene {
	return Scene{
		Text:        cfg.Text.Content,
		Font:        glyph.Font{Size: cfg.Text.FontSize, Bold: cfg.Text.Bold},
		WordSpacing: cfg.Text.WordSpacing,
		Stride:      cfg.Text.Stride,

		Background:    cfg.Derived.Background,
		TransparentBG: cfg.Derived.TransparentBG,
		FadeSpeed:     cfg.Smudge.FadeSpeed,

		Smudge:         cfg.Smudge.Enabled,
		EvolutionSpeed: cfg.Smudge.ColorEvolutionSpeed,
		PhaseTick:      time.Duration(cfg.Smudge.PhaseTickMS) * time.Millisecond,
		DownloadPrefix: cfg.Smudge.DownloadPrefix,
	}
}

// SystemConfig converts cfg into particle system parameters.
func SystemConfig(cfg *config.Config) systems.Config {
	return systems.Config{
		Force: systems.ForceConfig{
			InteractionDistance: cfg.Physics.InteractionDistance,
			ReturnSpeed:         cfg.Physics.ReturnSpeed,
			Friction:            cfg.Physics.Friction,
		},
		MaxParticles: cfg.Physics.MaxParticles,
		Text: systems.TextStyle{
			Size:       cfg.Text.ParticleSize,
			Color:      cfg.Derived.TextColor,
			DensityMin: cfg.Text.DensityMin,
			DensityMax: cfg.Text.DensityMax,
		},
		Floating: systems.FloatingStyle{
			Density:         cfg.Background.Density,
			AreaPerParticle: cfg.Background.AreaPerParticle,
			Color:           cfg.Derived.BackgroundColor,
			SizeMin:         cfg.Background.SizeMin,
			SizeMax:         cfg.Background.SizeMax,
			SpeedMin:        cfg.Background.SpeedMin,
			SpeedMax:        cfg.Background.SpeedMax,
		},
		Spark: systems.SparkStyle{
			Spacing:        cfg.Smudge.Spacing,
			GroupMin:       cfg.Smudge.GroupMin,
			GroupMax:       cfg.Smudge.GroupMax,
			PositionJitter: cfg.Smudge.PositionJitter,
			VelocityJitter: cfg.Smudge.VelocityJitter,
			Spread:         cfg.Smudge.Spread,
			TangentSpeed:   cfg.Smudge.TangentSpeed,
			LifeMin:        cfg.Smudge.LifeMin,
			LifeSpan:       cfg.Smudge.LifeSpan,
			Size:           cfg.Smudge.SparkSize,
			Growth:         cfg.Smudge.SparkGrowth,
		},
	}
}

// ExportName returns the file name for a saved frame taken at t.
func ExportName(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = "inkdust"
	}
	return prefix + "-" + t.Format("2006-01-02") + ".png"
}
