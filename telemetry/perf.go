package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/signals/engine"
)

// Phase names for a frame. The engine reports its own phases through
// StartPhase; the host adds the rest.
const (
	PhasePopulation  = "population"
	PhaseEmission    = engine.PhaseEmission
	PhaseDecay       = engine.PhaseDecay
	PhaseMerge       = engine.PhaseMerge
	PhaseRecalibrate = engine.PhaseRecalibrate
	PhaseLayout      = "layout"
	PhaseParticles   = "particles"
	PhaseTelemetry   = "telemetry"
)

// knownPhases get fixed slots, in frame order. Other names are appended
// as they are first seen.
var knownPhases = []string{
	PhasePopulation, PhaseEmission, PhaseDecay, PhaseMerge,
	PhaseRecalibrate, PhaseLayout, PhaseParticles, PhaseTelemetry,
}

// frameSample is one timed frame. phases and seen are indexed by phase
// slot.
type frameSample struct {
	total  time.Duration
	phases []time.Duration
	seen   []bool
}

// PerfCollector times frames and their phases over a ring of the last
// windowSize frames. It is an engine.PhaseTimer.
type PerfCollector struct {
	now func() time.Time

	names []string
	slot  map[string]int

	ring  []frameSample
	next  int
	count int

	cur        []time.Duration
	seen       []bool
	frameStart time.Time
	phaseStart time.Time
	phase      int // -1 outside a phase

	lastFrame time.Time
	frameGap  time.Duration
}

var _ engine.PhaseTimer = (*PerfCollector)(nil)

// NewPerfCollector creates a collector averaging over windowSize frames
// (60 when windowSize < 1).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	p := &PerfCollector{
		now:   time.Now,
		slot:  make(map[string]int, len(knownPhases)),
		ring:  make([]frameSample, windowSize),
		phase: -1,
	}
	for _, name := range knownPhases {
		p.slotOf(name)
	}
	return p
}

func (p *PerfCollector) slotOf(name string) int {
	if i, ok := p.slot[name]; ok {
		return i
	}
	i := len(p.names)
	p.names = append(p.names, name)
	p.slot[name] = i
	return i
}

// StartTick begins timing a frame.
func (p *PerfCollector) StartTick() {
	p.frameStart = p.now()
	p.cur = make([]time.Duration, len(p.names))
	p.seen = make([]bool, len(p.names))
	p.phase = -1
}

// StartPhase closes the running phase, if any, and opens name.
func (p *PerfCollector) StartPhase(name string) {
	now := p.now()
	p.closePhase(now)
	p.phase = p.slotOf(name)
	for len(p.cur) < len(p.names) {
		p.cur = append(p.cur, 0)
		p.seen = append(p.seen, false)
	}
	p.seen[p.phase] = true
	p.phaseStart = now
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase >= 0 {
		p.cur[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick closes the frame and stores it in the ring.
func (p *PerfCollector) EndTick() {
	now := p.now()
	p.closePhase(now)
	p.phase = -1
	p.ring[p.next] = frameSample{total: now.Sub(p.frameStart), phases: p.cur, seen: p.seen}
	p.next = (p.next + 1) % len(p.ring)
	p.count = min(p.count+1, len(p.ring))
}

// RecordFrame marks a rendered frame for the FPS figure.
func (p *PerfCollector) RecordFrame() {
	now := p.now()
	if !p.lastFrame.IsZero() {
		p.frameGap = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats summarizes the frames in the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	P95TickDuration time.Duration

	// Average time per phase and its share of the average frame.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64

	order []string
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frameGap,
		order:         slices.Clone(p.names),
	}
	if p.frameGap > 0 {
		s.FPS = float64(time.Second) / float64(p.frameGap)
	}
	if p.count == 0 {
		return s
	}

	totals := make([]float64, p.count)
	sums := make([]time.Duration, len(p.names))
	seen := make([]bool, len(p.names))
	for i, f := range p.ring[:p.count] {
		totals[i] = float64(f.total)
		for j, d := range f.phases {
			sums[j] += d
			seen[j] = seen[j] || f.seen[j]
		}
	}
	slices.Sort(totals)

	n := time.Duration(p.count)
	s.AvgTickDuration = time.Duration(stat.Mean(totals, nil))
	s.MinTickDuration = time.Duration(totals[0])
	s.MaxTickDuration = time.Duration(totals[len(totals)-1])
	s.P95TickDuration = time.Duration(stat.Quantile(0.95, stat.Empirical, totals, nil))
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}

	for j, sum := range sums {
		if !seen[j] {
			continue
		}
		name := p.names[j]
		s.PhaseAvg[name] = sum / n
		if s.AvgTickDuration > 0 {
			s.PhasePct[name] = float64(s.PhaseAvg[name]) / float64(s.AvgTickDuration) * 100
		}
	}
	return s
}

// LogStats logs the summary at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "perf", s)
}

// LogValue implements slog.LogValuer. Phases below 0.1% are left out.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("p95_tick_us", s.P95TickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Int("fps", int(s.FPS)))
	}
	order := s.order
	if order == nil {
		order = knownPhases
	}
	for _, name := range order {
		if pct := s.PhasePct[name]; pct > 0.1 {
			attrs = append(attrs, slog.Float64(name+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd      uint64  `csv:"window_end"`
	AvgTickUS      int64   `csv:"avg_tick_us"`
	MinTickUS      int64   `csv:"min_tick_us"`
	MaxTickUS      int64   `csv:"max_tick_us"`
	P95TickUS      int64   `csv:"p95_tick_us"`
	TicksPerSec    float64 `csv:"ticks_per_sec"`
	FPS            float64 `csv:"fps"`
	PopulationPct  float64 `csv:"population_pct"`
	EmissionPct    float64 `csv:"emission_pct"`
	DecayPct       float64 `csv:"decay_pct"`
	MergePct       float64 `csv:"merge_pct"`
	RecalibratePct float64 `csv:"recalibrate_pct"`
	LayoutPct      float64 `csv:"layout_pct"`
	ParticlesPct   float64 `csv:"particles_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
}

// ToCSV flattens s into a row for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd uint64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgTickUS:      s.AvgTickDuration.Microseconds(),
		MinTickUS:      s.MinTickDuration.Microseconds(),
		MaxTickUS:      s.MaxTickDuration.Microseconds(),
		P95TickUS:      s.P95TickDuration.Microseconds(),
		TicksPerSec:    s.TicksPerSecond,
		FPS:            s.FPS,
		PopulationPct:  s.PhasePct[PhasePopulation],
		EmissionPct:    s.PhasePct[PhaseEmission],
		DecayPct:       s.PhasePct[PhaseDecay],
		MergePct:       s.PhasePct[PhaseMerge],
		RecalibratePct: s.PhasePct[PhaseRecalibrate],
		LayoutPct:      s.PhasePct[PhaseLayout],
		ParticlesPct:   s.PhasePct[PhaseParticles],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
	}
}
