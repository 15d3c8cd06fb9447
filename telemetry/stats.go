package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/signals/engine"
)

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	LiveNodes      int `csv:"live_nodes"`
	ContainedNodes int `csv:"contained_nodes"`
	Containers     int `csv:"containers"`
	MaxLevel       int `csv:"max_level"`

	// Node events during window
	NodesCreated int `csv:"nodes_created"`
	NodesDied    int `csv:"nodes_died"`
	NodesRemoved int `csv:"nodes_removed"`
	Merges       int `csv:"merges"`
	MergedNodes  int `csv:"merged_nodes"`
	DownLevels   int `csv:"down_levels"`
	Released     int `csv:"released"`

	// Signals
	SignalsEmitted int     `csv:"signals_emitted"`
	SignalsHit     int     `csv:"signals_hit"`
	HitRate        float64 `csv:"hit_rate"`

	// Link events during window
	LinksCreated int `csv:"links_created"`
	LinksPruned  int `csv:"links_pruned"`
	PermaBonds   int `csv:"perma_bonds"`

	// Links at window end
	WeakLinks    int     `csv:"weak_links"`
	StrongLinks  int     `csv:"strong_links"`
	PermaLinks   int     `csv:"perma_links"`
	StrengthMean float64 `csv:"strength_mean"`
	StrengthP50  float64 `csv:"strength_p50"`
	StrengthP90  float64 `csv:"strength_p90"`
	DecayRate    float64 `csv:"decay_rate"`
	HealthMean   float64 `csv:"health_mean"`
	HealthStd    float64 `csv:"health_std"`
	TickErrors   int     `csv:"tick_errors"`
}

// GraphSample is the engine state folded into a window's stats.
type GraphSample struct {
	LiveNodes      int
	ContainedNodes int
	Containers     int
	MaxLevel       int
	WeakLinks      int
	StrongLinks    int
	PermaLinks     int
	Strengths      []float64
	Healths        []float64
	DecayRate      float64
}

// SampleGraph reads the population and link figures from e.
func SampleGraph(e *engine.Engine) GraphSample {
	cfg := e.Config()
	s := GraphSample{DecayRate: cfg.DecayRate}
	for _, n := range e.Nodes() {
		if n.IsContained {
			s.ContainedNodes++
			continue
		}
		s.LiveNodes++
		s.Healths = append(s.Healths, n.Health)
		if n.IsContainer() {
			s.Containers++
		}
		s.MaxLevel = max(s.MaxLevel, n.Level)
	}
	for _, l := range e.Links() {
		switch l.Class(cfg.LinkStrong) {
		case engine.LinkPerma:
			s.PermaLinks++
		case engine.LinkStrongClass:
			s.StrongLinks++
		default:
			s.WeakLinks++
		}
		s.Strengths = append(s.Strengths, l.Strength)
	}
	return s
}

// ComputeStrengthStats returns the mean, median and 90th percentile of
// values. All are zero for an empty slice.
func ComputeStrengthStats(values []float64) (mean, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mean = stat.Mean(sorted, nil)
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return mean, p50, p90
}

// ComputeHealthStats returns the mean and standard deviation of values.
func ComputeHealthStats(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("live_nodes", s.LiveNodes),
		slog.Int("contained_nodes", s.ContainedNodes),
		slog.Int("containers", s.Containers),
		slog.Int("max_level", s.MaxLevel),
		slog.Int("nodes_created", s.NodesCreated),
		slog.Int("nodes_died", s.NodesDied),
		slog.Int("nodes_removed", s.NodesRemoved),
		slog.Int("merges", s.Merges),
		slog.Int("down_levels", s.DownLevels),
		slog.Int("signals_emitted", s.SignalsEmitted),
		slog.Float64("hit_rate", s.HitRate),
		slog.Int("links_created", s.LinksCreated),
		slog.Int("links_pruned", s.LinksPruned),
		slog.Int("perma_bonds", s.PermaBonds),
		slog.Int("weak_links", s.WeakLinks),
		slog.Int("strong_links", s.StrongLinks),
		slog.Int("perma_links", s.PermaLinks),
		slog.Float64("strength_p50", s.StrengthP50),
		slog.Float64("strength_p90", s.StrengthP90),
		slog.Float64("decay_rate", s.DecayRate),
		slog.Int("tick_errors", s.TickErrors),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"live", s.LiveNodes,
		"contained", s.ContainedNodes,
		"max_level", s.MaxLevel,
		"merges", s.Merges,
		"died", s.NodesDied,
		"hit_rate", s.HitRate,
		"links", s.WeakLinks+s.StrongLinks+s.PermaLinks,
		"perma", s.PermaLinks,
		"strength_p50", s.StrengthP50,
		"decay_rate", s.DecayRate,
	)
}
