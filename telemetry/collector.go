// Package telemetry provides graph health tracking, bookmarking and
// performance timing for a running engine.
package telemetry

import (
	"github.com/pthm-cable/signals/engine"
)

// Collector accumulates engine events within fixed windows of ticks and
// produces WindowStats. It is an engine.Recorder and is not safe for
// concurrent use; it belongs to the goroutine that ticks the engine.
type Collector struct {
	windowTicks     uint64
	dt              float64
	windowStartTick uint64

	nodesCreated   int
	nodesDied      int
	nodesRemoved   int
	linksCreated   int
	linksPruned    int
	permaBonds     int
	merges         int
	mergedNodes    int
	downLevels     int
	released       int
	signalsEmitted int
	signalsHit     int
	tickErrors     int
}

var _ engine.Recorder = (*Collector)(nil)

// NewCollector creates a collector flushing every windowTicks ticks.
// dt is the wall time per tick used to report simulated seconds.
func NewCollector(windowTicks int, dt float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: uint64(windowTicks), dt: dt}
}

func (c *Collector) RecordSignal(hit bool) {
	c.signalsEmitted++
	if hit {
		c.signalsHit++
	}
}

func (c *Collector) RecordNodeCreated()      { c.nodesCreated++ }
func (c *Collector) RecordNodeDied()         { c.nodesDied++ }
func (c *Collector) RecordNodeRemoved()      { c.nodesRemoved++ }
func (c *Collector) RecordLinkCreated()      { c.linksCreated++ }
func (c *Collector) RecordLinksPruned(n int) { c.linksPruned += n }
func (c *Collector) RecordPermaBond()        { c.permaBonds++ }
func (c *Collector) RecordTickError()        { c.tickErrors++ }

func (c *Collector) RecordMerge(level, members int) {
	c.merges++
	c.mergedNodes += members
}

func (c *Collector) RecordDownLevel(released int) {
	c.downLevels++
	c.released += released
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(tick uint64) bool {
	return tick-c.windowStartTick >= c.windowTicks
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() uint64 { return c.windowTicks }

// Flush produces a WindowStats from the counters and the graph sample, then
// resets the counters for the next window.
func (c *Collector) Flush(tick uint64, g GraphSample) WindowStats {
	var hitRate float64
	if c.signalsEmitted > 0 {
		hitRate = float64(c.signalsHit) / float64(c.signalsEmitted)
	}
	mean, p50, p90 := ComputeStrengthStats(g.Strengths)
	hMean, hStd := ComputeHealthStats(g.Healths)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   tick,
		SimTimeSec:      float64(tick) * c.dt,

		LiveNodes:      g.LiveNodes,
		ContainedNodes: g.ContainedNodes,
		Containers:     g.Containers,
		MaxLevel:       g.MaxLevel,

		NodesCreated: c.nodesCreated,
		NodesDied:    c.nodesDied,
		NodesRemoved: c.nodesRemoved,
		Merges:       c.merges,
		MergedNodes:  c.mergedNodes,
		DownLevels:   c.downLevels,
		Released:     c.released,

		SignalsEmitted: c.signalsEmitted,
		SignalsHit:     c.signalsHit,
		HitRate:        hitRate,

		LinksCreated: c.linksCreated,
		LinksPruned:  c.linksPruned,
		PermaBonds:   c.permaBonds,

		WeakLinks:    g.WeakLinks,
		StrongLinks:  g.StrongLinks,
		PermaLinks:   g.PermaLinks,
		StrengthMean: mean,
		StrengthP50:  p50,
		StrengthP90:  p90,
		DecayRate:    g.DecayRate,
		HealthMean:   hMean,
		HealthStd:    hStd,
		TickErrors:   c.tickErrors,
	}

	*c = Collector{windowTicks: c.windowTicks, dt: c.dt, windowStartTick: tick}
	return stats
}
