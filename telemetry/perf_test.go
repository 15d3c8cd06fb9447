package telemetry

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/pthm-cable/signals/engine"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTimedCollector(window int) (*PerfCollector, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	pc := NewPerfCollector(window)
	pc.now = clock.now
	return pc, clock
}

// frame runs one frame with the given phase durations, in order.
func frame(pc *PerfCollector, clock *fakeClock, phases ...any) {
	pc.StartTick()
	for i := 0; i < len(phases); i += 2 {
		pc.StartPhase(phases[i].(string))
		clock.advance(phases[i+1].(time.Duration))
	}
	pc.EndTick()
}

func TestPerfPhaseBreakdown(t *testing.T) {
	pc, clock := newTimedCollector(10)
	for i := 0; i < 4; i++ {
		frame(pc, clock, PhaseEmission, 300*time.Microsecond, PhaseDecay, 100*time.Microsecond)
	}

	s := pc.Stats()
	if s.AvgTickDuration != 400*time.Microsecond {
		t.Errorf("avg = %v, want 400µs", s.AvgTickDuration)
	}
	if s.PhaseAvg[PhaseEmission] != 300*time.Microsecond {
		t.Errorf("emission avg = %v, want 300µs", s.PhaseAvg[PhaseEmission])
	}
	if got := s.PhasePct[PhaseDecay]; got != 25 {
		t.Errorf("decay pct = %v, want 25", got)
	}
	if _, ok := s.PhaseAvg[PhaseMerge]; ok {
		t.Error("merge reported but never started")
	}
	if s.TicksPerSecond != 2500 {
		t.Errorf("ticks/s = %v, want 2500", s.TicksPerSecond)
	}
}

func TestPerfRollingWindow(t *testing.T) {
	pc, clock := newTimedCollector(5)
	for i := 0; i < 5; i++ {
		frame(pc, clock, PhaseEmission, time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		frame(pc, clock, PhaseEmission, 2*time.Millisecond)
	}

	s := pc.Stats()
	if s.MinTickDuration != 2*time.Millisecond || s.MaxTickDuration != 2*time.Millisecond {
		t.Errorf("min %v max %v, want the older frames evicted", s.MinTickDuration, s.MaxTickDuration)
	}
}

func TestPerfPercentile(t *testing.T) {
	pc, clock := newTimedCollector(20)
	for i := 1; i <= 20; i++ {
		frame(pc, clock, PhaseEmission, time.Duration(i)*time.Millisecond)
	}

	s := pc.Stats()
	if s.P95TickDuration != 19*time.Millisecond {
		t.Errorf("p95 = %v, want 19ms", s.P95TickDuration)
	}
	if s.MinTickDuration != time.Millisecond || s.MaxTickDuration != 20*time.Millisecond {
		t.Errorf("min %v max %v", s.MinTickDuration, s.MaxTickDuration)
	}
}

func TestPerfAdHocPhase(t *testing.T) {
	pc, clock := newTimedCollector(10)
	frame(pc, clock, PhaseEmission, time.Millisecond)
	frame(pc, clock, PhaseEmission, time.Millisecond, "snapshot", 3*time.Millisecond)

	s := pc.Stats()
	if s.PhaseAvg["snapshot"] != 1500*time.Microsecond {
		t.Errorf("snapshot avg = %v, want 1.5ms", s.PhaseAvg["snapshot"])
	}
}

func TestPerfEmptyStats(t *testing.T) {
	s := NewPerfCollector(10).Stats()
	if s.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}
	if s.PhaseAvg == nil || s.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfFrameTiming(t *testing.T) {
	pc, clock := newTimedCollector(10)
	pc.RecordFrame()
	clock.advance(20 * time.Millisecond)
	pc.RecordFrame()

	s := pc.Stats()
	if s.FrameDuration != 20*time.Millisecond || s.FPS != 50 {
		t.Errorf("frame %v fps %v, want 20ms and 50", s.FrameDuration, s.FPS)
	}
}

func TestPerfEnginePhases(t *testing.T) {
	pc := NewPerfCollector(10)
	cfg := engine.DefaultConfig()
	cfg.NumNodes = 10
	cfg.MergeChance = 1
	cfg.RecalibrateChance = 1
	e := engine.New(cfg,
		engine.WithRand(rand.New(rand.NewSource(3))),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithPhaseTimer(pc),
	)
	e.Init(true)

	for i := 0; i < 3; i++ {
		pc.StartTick()
		pc.StartPhase(PhasePopulation)
		if err := e.Tick(); err != nil {
			t.Fatal(err)
		}
		pc.EndTick()
	}

	s := pc.Stats()
	for _, phase := range []string{PhasePopulation, PhaseEmission, PhaseDecay, PhaseMerge, PhaseRecalibrate} {
		if _, ok := s.PhaseAvg[phase]; !ok {
			t.Errorf("phase %s not recorded", phase)
		}
	}

	row := s.ToCSV(42)
	if row.WindowEnd != 42 || row.EmissionPct != s.PhasePct[PhaseEmission] {
		t.Errorf("csv row = %+v", row)
	}
}
