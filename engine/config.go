package engine

import "math"

// Config holds the engine tunables. Display hints (link and emit
// visibility, background mode) travel with the config so a saved state
// restores the view it was saved with.
type Config struct {
	NumNodes               int
	MaxGroupLevels         int
	EmitRate               float64 // chance per tick that a live node emits
	DecayRate              float64 // strength lost per tick by non-perma links
	NodeGroupThreshold     int     // strong same-level links needed to merge
	NodeHealth             float64
	SignalWeight           float64
	SignalCost             float64
	LinkStrong             float64
	LinkPermaBond          bool
	LinkPermaBondThreshold float64
	LinkingEnabled         bool
	GreedyRemoval          bool
	BaseNodeRadius         float64
	EmitsEnabled           bool
	ParticleDensity        float64
	ViewportWidth          float64
	ViewportHeight         float64

	MergeChance       float64 // per-tick chance of a merge attempt
	RecalibrateChance float64 // per-tick chance of decay recalibration
	EmitTTLMillis     int64

	LinksWeakVisible   bool
	LinksStrongVisible bool
	LinksPermaVisible  bool
	EmitsVisible       bool
	BackgroundEnabled  bool
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		NumNodes:               50,
		MaxGroupLevels:         3,
		EmitRate:               0.02,
		DecayRate:              0.05,
		NodeGroupThreshold:     3,
		NodeHealth:             200,
		SignalWeight:           100,
		SignalCost:             1,
		LinkStrong:             10000,
		LinkPermaBond:          true,
		LinkPermaBondThreshold: 100000,
		LinkingEnabled:         true,
		GreedyRemoval:          false,
		BaseNodeRadius:         30,
		EmitsEnabled:           true,
		ParticleDensity:        100000,
		ViewportWidth:          1280,
		ViewportHeight:         800,
		MergeChance:            0.1,
		RecalibrateChance:      0.01,
		EmitTTLMillis:          2000,
		LinksWeakVisible:       true,
		LinksStrongVisible:     true,
		LinksPermaVisible:      true,
		EmitsVisible:           true,
	}
}

// Clamp forces every field into its valid range.
func (c *Config) Clamp() {
	c.NumNodes = max(c.NumNodes, 0)
	c.MaxGroupLevels = max(c.MaxGroupLevels, 1)
	c.EmitRate = clampFloat(c.EmitRate, 0, 1)
	c.DecayRate = math.Max(finite(c.DecayRate), 0)
	c.NodeGroupThreshold = max(c.NodeGroupThreshold, 1)
	c.NodeHealth = math.Max(finite(c.NodeHealth), 1)
	c.SignalWeight = math.Max(finite(c.SignalWeight), 0)
	c.SignalCost = math.Max(finite(c.SignalCost), 0)
	c.LinkStrong = math.Max(finite(c.LinkStrong), 1)
	if c.LinkPermaBondThreshold <= 0 || math.IsNaN(c.LinkPermaBondThreshold) {
		c.LinkPermaBondThreshold = c.LinkStrong * 10
	}
	c.BaseNodeRadius = math.Max(finite(c.BaseNodeRadius), 1)
	c.ParticleDensity = math.Max(finite(c.ParticleDensity), 1)
	c.ViewportWidth = math.Max(finite(c.ViewportWidth), 1)
	c.ViewportHeight = math.Max(finite(c.ViewportHeight), 1)
	c.MergeChance = clampFloat(c.MergeChance, 0, 1)
	c.RecalibrateChance = clampFloat(c.RecalibrateChance, 0, 1)
	c.EmitTTLMillis = max(c.EmitTTLMillis, 0)
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ConfigPatch is a partial config update keyed by the persisted names.
// Nil fields are left untouched.
type ConfigPatch struct {
	NumNodes               *int     `json:"NUM_NODES,omitempty" yaml:"NUM_NODES,omitempty"`
	EmitRate               *float64 `json:"EMIT_RATE,omitempty" yaml:"EMIT_RATE,omitempty"`
	DecayRate              *float64 `json:"DECAY_RATE,omitempty" yaml:"DECAY_RATE,omitempty"`
	MaxGroupLevels         *int     `json:"MAX_GROUP_LEVELS,omitempty" yaml:"MAX_GROUP_LEVELS,omitempty"`
	NodeGroupThreshold     *int     `json:"NODE_GROUP_THRESHOLD,omitempty" yaml:"NODE_GROUP_THRESHOLD,omitempty"`
	NodeHealth             *float64 `json:"NODE_HEALTH,omitempty" yaml:"NODE_HEALTH,omitempty"`
	SignalWeight           *float64 `json:"SIGNAL_WEIGHT,omitempty" yaml:"SIGNAL_WEIGHT,omitempty"`
	SignalCost             *float64 `json:"SIGNAL_COST,omitempty" yaml:"SIGNAL_COST,omitempty"`
	LinkStrong             *float64 `json:"LINK_STRONG,omitempty" yaml:"LINK_STRONG,omitempty"`
	BaseNodeRadius         *float64 `json:"BASE_NODE_RADIUS,omitempty" yaml:"BASE_NODE_RADIUS,omitempty"`
	LinkingEnabled         *bool    `json:"LINKING_ENABLED,omitempty" yaml:"LINKING_ENABLED,omitempty"`
	LinkPermaBond          *bool    `json:"LINK_PERMA_BOND,omitempty" yaml:"LINK_PERMA_BOND,omitempty"`
	LinkPermaBondThreshold *float64 `json:"LINK_PERMA_BOND_THRESHOLD,omitempty" yaml:"LINK_PERMA_BOND_THRESHOLD,omitempty"`
	GreedyRemoval          *bool    `json:"GREEDY_REMOVAL,omitempty" yaml:"GREEDY_REMOVAL,omitempty"`
	LinksWeakVisible       *bool    `json:"LINKS_WEAK_VISIBLE,omitempty" yaml:"LINKS_WEAK_VISIBLE,omitempty"`
	LinksStrongVisible     *bool    `json:"LINKS_STRONG_VISIBLE,omitempty" yaml:"LINKS_STRONG_VISIBLE,omitempty"`
	LinksPermaVisible      *bool    `json:"LINKS_PERMA_VISIBLE,omitempty" yaml:"LINKS_PERMA_VISIBLE,omitempty"`
	EmitsVisible           *bool    `json:"EMITS_VISIBLE,omitempty" yaml:"EMITS_VISIBLE,omitempty"`
	BackgroundEnabled      *bool    `json:"BACKGROUND_ENABLED,omitempty" yaml:"BACKGROUND_ENABLED,omitempty"`

	// Older saves used a single link toggle and EMITS_ENABLED.
	LinksVisible *bool `json:"LINKS_VISIBLE,omitempty" yaml:"LINKS_VISIBLE,omitempty"`
	EmitsEnabled *bool `json:"EMITS_ENABLED,omitempty" yaml:"EMITS_ENABLED,omitempty"`
}

// Apply copies every set field of p onto c and clamps the result.
func (c *Config) Apply(p ConfigPatch) {
	setInt(&c.NumNodes, p.NumNodes)
	setFloat(&c.EmitRate, p.EmitRate)
	setFloat(&c.DecayRate, p.DecayRate)
	setInt(&c.MaxGroupLevels, p.MaxGroupLevels)
	setInt(&c.NodeGroupThreshold, p.NodeGroupThreshold)
	setFloat(&c.NodeHealth, p.NodeHealth)
	setFloat(&c.SignalWeight, p.SignalWeight)
	setFloat(&c.SignalCost, p.SignalCost)
	setFloat(&c.LinkStrong, p.LinkStrong)
	setFloat(&c.BaseNodeRadius, p.BaseNodeRadius)
	setBool(&c.LinkingEnabled, p.LinkingEnabled)
	setBool(&c.LinkPermaBond, p.LinkPermaBond)
	setFloat(&c.LinkPermaBondThreshold, p.LinkPermaBondThreshold)
	setBool(&c.GreedyRemoval, p.GreedyRemoval)

	if p.LinksVisible != nil {
		c.LinksWeakVisible = *p.LinksVisible
		c.LinksStrongVisible = *p.LinksVisible
		c.LinksPermaVisible = *p.LinksVisible
	}
	if p.EmitsEnabled != nil {
		c.EmitsVisible = *p.EmitsEnabled
	}
	setBool(&c.LinksWeakVisible, p.LinksWeakVisible)
	setBool(&c.LinksStrongVisible, p.LinksStrongVisible)
	setBool(&c.LinksPermaVisible, p.LinksPermaVisible)
	setBool(&c.EmitsVisible, p.EmitsVisible)
	setBool(&c.BackgroundEnabled, p.BackgroundEnabled)
	c.Clamp()
}

// Patch returns the persisted subset of c.
func (c Config) Patch() ConfigPatch {
	return ConfigPatch{
		NumNodes:           &c.NumNodes,
		EmitRate:           &c.EmitRate,
		DecayRate:          &c.DecayRate,
		MaxGroupLevels:     &c.MaxGroupLevels,
		LinkingEnabled:     &c.LinkingEnabled,
		LinksWeakVisible:   &c.LinksWeakVisible,
		LinksStrongVisible: &c.LinksStrongVisible,
		LinksPermaVisible:  &c.LinksPermaVisible,
		EmitsVisible:       &c.EmitsVisible,
		BackgroundEnabled:  &c.BackgroundEnabled,
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
