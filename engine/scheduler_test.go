package engine

import (
	"testing"
	"time"
)

func TestSchedulerRunDue(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock.Now)

	var ran []string
	s.After(time.Second, func() { ran = append(ran, "a") })
	b := s.After(2*time.Second, func() { ran = append(ran, "b") })
	s.After(3*time.Second, func() { ran = append(ran, "c") })

	if n := s.RunDue(); n != 0 {
		t.Fatalf("ran %d tasks before any deadline", n)
	}
	clock.Advance(time.Second)
	if n := s.RunDue(); n != 1 {
		t.Fatalf("ran %d tasks at 1s, want 1", n)
	}
	b.Cancel()
	clock.Advance(5 * time.Second)
	s.RunDue()

	if len(ran) != 2 || ran[0] != "a" || ran[1] != "c" {
		t.Errorf("ran %v, want [a c]", ran)
	}
	if s.Len() != 0 {
		t.Errorf("pending = %d", s.Len())
	}
	if b.Pending() {
		t.Error("cancelled task still pending")
	}
}

func TestSchedulerCancelAll(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock.Now)
	fired := false
	task := s.After(time.Millisecond, func() { fired = true })

	s.CancelAll()
	clock.Advance(time.Second)
	s.RunDue()

	if fired || task.Pending() {
		t.Error("task ran after CancelAll")
	}
}

func TestPulseReverts(t *testing.T) {
	cfg := testConfig()
	cfg.DecayRate = 0.05
	e, clock := newTestEngine(t, cfg)

	if err := e.Control(Pulse{Duration: time.Second, DecayRate: 50}); err != nil {
		t.Fatalf("pulse: %v", err)
	}
	if got := e.Config().DecayRate; got != 50 {
		t.Fatalf("decay during pulse = %v", got)
	}
	if !e.PulseActive() {
		t.Error("pulse not reported active")
	}

	clock.Advance(999 * time.Millisecond)
	_ = e.Tick()
	if got := e.Config().DecayRate; got != 50 {
		t.Errorf("reverted early: %v", got)
	}

	clock.Advance(time.Millisecond)
	_ = e.Tick()
	if got := e.Config().DecayRate; got != 0.05 {
		t.Errorf("decay after pulse = %v, want 0.05", got)
	}
	if e.PulseActive() {
		t.Error("pulse still active")
	}
}

func TestOverlappingPulses(t *testing.T) {
	cfg := testConfig()
	cfg.DecayRate = 0.05
	e, clock := newTestEngine(t, cfg)

	e.Pulse(time.Second, 50)
	clock.Advance(500 * time.Millisecond)
	e.Pulse(time.Second, 70)

	clock.Advance(600 * time.Millisecond)
	_ = e.Tick()
	if got := e.Config().DecayRate; got != 70 {
		t.Errorf("older pulse reverted the newer one: %v", got)
	}

	clock.Advance(500 * time.Millisecond)
	_ = e.Tick()
	if got := e.Config().DecayRate; got != 0.05 {
		t.Errorf("decay after both pulses = %v, want the original 0.05", got)
	}
}

func TestDecayRatePatchEndsPulse(t *testing.T) {
	cfg := testConfig()
	cfg.DecayRate = 0.05
	e, clock := newTestEngine(t, cfg)

	e.Pulse(time.Second, 50)
	rate := 0.3
	if err := e.Control(ApplyConfig{Patch: ConfigPatch{DecayRate: &rate}}); err != nil {
		t.Fatalf("Control: %v", err)
	}
	if e.PulseActive() {
		t.Error("pulse still active after explicit decay rate")
	}

	clock.Advance(2 * time.Second)
	_ = e.Tick()
	if got := e.Config().DecayRate; got != 0.3 {
		t.Errorf("decay after pulse window = %v, want the patched 0.3", got)
	}
}

func TestUnrelatedPatchKeepsPulse(t *testing.T) {
	cfg := testConfig()
	cfg.DecayRate = 0.05
	e, clock := newTestEngine(t, cfg)

	e.Pulse(time.Second, 50)
	emit := 0.1
	e.ApplyConfig(ConfigPatch{EmitRate: &emit})
	if !e.PulseActive() || e.Config().DecayRate != 50 {
		t.Fatalf("pulse disturbed: active=%v rate=%v", e.PulseActive(), e.Config().DecayRate)
	}

	clock.Advance(time.Second)
	_ = e.Tick()
	if got := e.Config().DecayRate; got != 0.05 {
		t.Errorf("decay after pulse = %v, want 0.05", got)
	}
}

func TestResetCancelsPulse(t *testing.T) {
	cfg := testConfig()
	cfg.DecayRate = 0.05
	e, clock := newTestEngine(t, cfg)

	e.Pulse(time.Second, 50)
	e.Reset()
	if got := e.Config().DecayRate; got != 0.05 {
		t.Errorf("decay after reset = %v", got)
	}
	if e.sched.Len() != 0 {
		t.Errorf("pending tasks after reset = %d", e.sched.Len())
	}

	e.Init(false)
	e.cfg.DecayRate = 0.2
	clock.Advance(2 * time.Second)
	_ = e.Tick()
	if got := e.Config().DecayRate; got != 0.2 {
		t.Errorf("stale revert fired after reset: %v", got)
	}
}

func TestPulseSuppressesRecalibration(t *testing.T) {
	cfg := testConfig()
	cfg.RecalibrateChance = 1
	e, _ := newTestEngine(t, cfg)
	addAt(e, 0, 0)
	e.Start()

	e.Pulse(time.Minute, 50)
	_ = e.Tick()
	if got := e.Config().DecayRate; got != 50 {
		t.Errorf("recalibration overrode the pulse: %v", got)
	}
}
