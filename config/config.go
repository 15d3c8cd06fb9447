// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/signals/engine"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Engine     EngineConfig     `yaml:"engine"`
	Sphere     SphereConfig     `yaml:"sphere"`
	Population PopulationConfig `yaml:"population"`
	Background BackgroundConfig `yaml:"background"`
	Camera     CameraConfig     `yaml:"camera"`
	Layout     LayoutConfig     `yaml:"layout"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Store      StoreConfig      `yaml:"store"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// EngineConfig mirrors the engine tunables.
type EngineConfig struct {
	NumNodes               int     `yaml:"num_nodes"`
	MaxGroupLevels         int     `yaml:"max_group_levels"`
	EmitRate               float64 `yaml:"emit_rate"`
	DecayRate              float64 `yaml:"decay_rate"`
	NodeGroupThreshold     int     `yaml:"node_group_threshold"`
	NodeHealth             float64 `yaml:"node_health"`
	SignalWeight           float64 `yaml:"signal_weight"`
	SignalCost             float64 `yaml:"signal_cost"`
	LinkStrong             float64 `yaml:"link_strong"`
	LinkPermaBond          bool    `yaml:"link_perma_bond"`
	LinkPermaBondThreshold float64 `yaml:"link_perma_bond_threshold"`
	LinkingEnabled         bool    `yaml:"linking_enabled"`
	GreedyRemoval          bool    `yaml:"greedy_removal"`
	BaseNodeRadius         float64 `yaml:"base_node_radius"`
	MergeChance            float64 `yaml:"merge_chance"`
	RecalibrateChance      float64 `yaml:"recalibrate_chance"`
	EmitTTL                float64 `yaml:"emit_ttl"` // seconds a drawn emit lives
	Geometry               string  `yaml:"geometry"` // planar | sphere
}

// SphereConfig sizes the sphere geometry.
type SphereConfig struct {
	Radius float64 `yaml:"radius"`
}

// PopulationConfig holds population management parameters.
type PopulationConfig struct {
	AddFraction    float64 `yaml:"add_fraction"`    // share of the deficit added per frame
	RemoveFraction float64 `yaml:"remove_fraction"` // share of the excess removed per frame
}

// BackgroundConfig holds background particle mode parameters.
type BackgroundConfig struct {
	Enabled              bool    `yaml:"enabled"`
	ParticleDensity      float64 `yaml:"particle_density"` // screen pixels per particle
	ParticleRadiusFactor float64 `yaml:"particle_radius_factor"`
	ParticleSpeed        float64 `yaml:"particle_speed"`
	MaxAddPerUpdate      int     `yaml:"max_add_per_update"`
}

// CameraConfig holds viewer camera behaviour.
type CameraConfig struct {
	AutoZoom    bool    `yaml:"auto_zoom"`
	FitInterval float64 `yaml:"fit_interval"` // seconds between zoom-to-fit
	FitMargin   float64 `yaml:"fit_margin"`   // world units around the node bounds
	MinZoom     float64 `yaml:"min_zoom"`
	MaxZoom     float64 `yaml:"max_zoom"`
}

// LayoutConfig holds the force-directed layout parameters.
type LayoutConfig struct {
	Enabled       bool    `yaml:"enabled"`
	RestFactor    float64 `yaml:"rest_factor"`    // spring rest length per summed radii
	Charge        float64 `yaml:"charge"`         // many-body strength per radius unit
	VelocityDecay float64 `yaml:"velocity_decay"` // fraction of velocity lost per step
	Centering     float64 `yaml:"centering"`      // pull toward the origin per step
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindowTicks    int `yaml:"stats_window_ticks"`
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// StoreConfig selects the state store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite | file | memory
	Path   string `yaml:"path"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ScreenW32   float32       // Screen.Width as float32
	ScreenH32   float32       // Screen.Height as float32
	FrameTime   time.Duration // 1 / Screen.TargetFPS
	FitInterval time.Duration // Camera.FitInterval
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
		// Only overwrites fields present in the file.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Engine.Geometry {
	case "", "planar", "sphere":
	default:
		return fmt.Errorf("config: unknown geometry %q", c.Engine.Geometry)
	}
	switch c.Store.Driver {
	case "sqlite", "file", "memory":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Screen.TargetFPS <= 0 {
		return fmt.Errorf("config: target_fps must be positive, got %d", c.Screen.TargetFPS)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
	c.Derived.FrameTime = time.Second / time.Duration(c.Screen.TargetFPS)
	c.Derived.FitInterval = time.Duration(c.Camera.FitInterval * float64(time.Second))

	if c.Camera.MinZoom <= 0 {
		c.Camera.MinZoom = 0.05
	}
	if c.Camera.MaxZoom < c.Camera.MinZoom {
		c.Camera.MaxZoom = c.Camera.MinZoom
	}
	if c.Population.AddFraction <= 0 {
		c.Population.AddFraction = 0.02
	}
	if c.Population.RemoveFraction <= 0 {
		c.Population.RemoveFraction = 0.1
	}
}

// EngineConfig converts the loaded values into an engine configuration.
// The viewport follows the screen and the background flags follow the
// background section.
func (c *Config) EngineConfig() engine.Config {
	e := c.Engine
	out := engine.DefaultConfig()
	out.NumNodes = e.NumNodes
	out.MaxGroupLevels = e.MaxGroupLevels
	out.EmitRate = e.EmitRate
	out.DecayRate = e.DecayRate
	out.NodeGroupThreshold = e.NodeGroupThreshold
	out.NodeHealth = e.NodeHealth
	out.SignalWeight = e.SignalWeight
	out.SignalCost = e.SignalCost
	out.LinkStrong = e.LinkStrong
	out.LinkPermaBond = e.LinkPermaBond
	out.LinkPermaBondThreshold = e.LinkPermaBondThreshold
	out.LinkingEnabled = e.LinkingEnabled
	out.GreedyRemoval = e.GreedyRemoval
	out.BaseNodeRadius = e.BaseNodeRadius
	out.MergeChance = e.MergeChance
	out.RecalibrateChance = e.RecalibrateChance
	if e.EmitTTL > 0 {
		out.EmitTTLMillis = int64(e.EmitTTL * 1000)
	}
	out.ViewportWidth = float64(c.Screen.Width)
	out.ViewportHeight = float64(c.Screen.Height)
	out.BackgroundEnabled = c.Background.Enabled
	out.ParticleDensity = c.Background.ParticleDensity
	out.Clamp()
	return out
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
