// Package config provides configuration loading and access for the animations.
package config

import (
	_ "embed"
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all animation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Text       TextConfig       `yaml:"text"`
	Background BackgroundConfig `yaml:"background"`
	Smudge     SmudgeConfig     `yaml:"smudge"`
	Palette    PaletteConfig    `yaml:"palette"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	TargetFPS  int    `yaml:"target_fps"`
	Title      string `yaml:"title"`
	Background string `yaml:"background"` // "transparent" clears instead of filling
	Fullscreen bool   `yaml:"fullscreen"`
}

// PhysicsConfig holds the force model parameters shared by all particles.
type PhysicsConfig struct {
	InteractionDistance float64 `yaml:"interaction_distance"` // Pointer repulsion radius in pixels
	ReturnSpeed         float64 `yaml:"return_speed"`         // Spring divisor; higher = slower return
	Friction            float64 `yaml:"friction"`             // Spark velocity multiplier per step
	MaxParticles        int     `yaml:"max_particles"`        // 0 = unlimited
}

// TextConfig holds glyph sampling and text particle styling.
type TextConfig struct {
	Content      string  `yaml:"content"`
	FontSize     float64 `yaml:"font_size"`
	Bold         bool    `yaml:"bold"`
	WordSpacing  float64 `yaml:"word_spacing"` // Vertical distance between stacked words
	Stride       int     `yaml:"stride"`       // Sampling step; smaller = more particles
	Color        string  `yaml:"color"`
	ParticleSize float64 `yaml:"particle_size"`
	DensityMin   float64 `yaml:"density_min"` // Per-particle repulsion strength range
	DensityMax   float64 `yaml:"density_max"`
}

// BackgroundConfig holds free-floating particle parameters.
type BackgroundConfig struct {
	Density         float64 `yaml:"density"`           // Particles per area_per_particle px²
	AreaPerParticle float64 `yaml:"area_per_particle"` // Area unit for density
	Color           string  `yaml:"color"`
	SizeMin         float64 `yaml:"size_min"`
	SizeMax         float64 `yaml:"size_max"`
	SpeedMin        float64 `yaml:"speed_min"`
	SpeedMax        float64 `yaml:"speed_max"`
}

// SmudgeConfig holds drag-to-paint spark parameters.
type SmudgeConfig struct {
	Enabled             bool    `yaml:"enabled"`
	FadeSpeed           float64 `yaml:"fade_speed"`            // Trail overwrite alpha per frame (0 = full clear)
	ColorEvolutionSpeed float64 `yaml:"color_evolution_speed"` // Palette phase gained per palette tick
	InitialPhase        float64 `yaml:"initial_phase"`
	PhaseTickMS         int     `yaml:"phase_tick_ms"`
	Spacing             float64 `yaml:"spacing"` // Pixels of pointer travel per spark group
	GroupMin            int     `yaml:"group_min"`
	GroupMax            int     `yaml:"group_max"`
	PositionJitter      float64 `yaml:"position_jitter"`
	VelocityJitter      float64 `yaml:"velocity_jitter"`
	Spread              float64 `yaml:"spread"`
	TangentSpeed        float64 `yaml:"tangent_speed"`
	LifeMin             int     `yaml:"life_min"`
	LifeSpan            int     `yaml:"life_span"`
	SparkSize           float64 `yaml:"spark_size"`
	SparkGrowth         float64 `yaml:"spark_growth"` // Extra radius at full opacity
	DownloadPrefix      string  `yaml:"download_prefix"`
}

// PaletteConfig holds custom colour stop sequences. Empty = built-in defaults.
type PaletteConfig struct {
	Sequences [][]string `yaml:"sequences"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // Seconds of frames per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Background        color.NRGBA
	TransparentBG     bool
	TextColor         color.NRGBA
	BackgroundColor   color.NRGBA
	StatsWindowFrames int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	var err error

	c.Derived.TransparentBG = IsTransparent(c.Screen.Background)
	if c.Derived.Background, err = ParseColor(c.Screen.Background); err != nil {
		return fmt.Errorf("screen.background: %w", err)
	}
	if c.Derived.TextColor, err = ParseColor(c.Text.Color); err != nil {
		return fmt.Errorf("text.color: %w", err)
	}
	if c.Derived.BackgroundColor, err = ParseColor(c.Background.Color); err != nil {
		return fmt.Errorf("background.color: %w", err)
	}

	// Keep ranges ordered so uniform sampling never sees a negative span
	if c.Text.DensityMax < c.Text.DensityMin {
		c.Text.DensityMin, c.Text.DensityMax = c.Text.DensityMax, c.Text.DensityMin
	}
	if c.Background.SizeMax < c.Background.SizeMin {
		c.Background.SizeMin, c.Background.SizeMax = c.Background.SizeMax, c.Background.SizeMin
	}
	if c.Background.SpeedMax < c.Background.SpeedMin {
		c.Background.SpeedMin, c.Background.SpeedMax = c.Background.SpeedMax, c.Background.SpeedMin
	}
	if c.Smudge.GroupMax < c.Smudge.GroupMin {
		c.Smudge.GroupMax = c.Smudge.GroupMin
	}
	if c.Smudge.PhaseTickMS <= 0 {
		c.Smudge.PhaseTickMS = 100
	}

	fps := c.Screen.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	c.Derived.StatsWindowFrames = int(c.Telemetry.StatsWindow * float64(fps))
	if c.Derived.StatsWindowFrames < 1 {
		c.Derived.StatsWindowFrames = 1
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
