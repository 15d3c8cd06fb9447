package engine

import (
	"fmt"
	"math"
	"time"
)

// Command is an instruction to the engine. The set is closed.
type Command interface {
	command()
}

type (
	// Start resumes the simulation, initializing it first if needed.
	Start struct{}
	// Stop pauses the simulation.
	Stop struct{}
	// Reset clears the graph; the next Start re-initializes.
	Reset struct{}
	// SetNumNodes changes the target population.
	SetNumNodes struct{ N int }
	// SetEmitRate takes a percentage, clamped to 1..20.
	SetEmitRate struct{ Percent float64 }
	// SetMaxGroupLevels changes the merge cap.
	SetMaxGroupLevels struct{ Levels int }
	// AddNodes inserts N random leaf nodes.
	AddNodes struct{ N int }
	// Pulse overrides the decay rate for a while.
	Pulse struct {
		Duration  time.Duration
		DecayRate float64
	}
	// ApplyConfig applies a partial config.
	ApplyConfig struct{ Patch ConfigPatch }
	// ToggleLinking flips link growth and decay on or off.
	ToggleLinking struct{}
	// ToggleEmits flips recording of emitted signals.
	ToggleEmits struct{}
	// ToggleBackground flips the particle background mode.
	ToggleBackground struct{}
	// SetLinkVisibility shows or hides one class of link.
	SetLinkVisibility struct {
		Class   LinkClass
		Visible bool
	}
)

func (Start) command()             {}
func (Stop) command()              {}
func (Reset) command()             {}
func (SetNumNodes) command()       {}
func (SetEmitRate) command()       {}
func (SetMaxGroupLevels) command() {}
func (AddNodes) command()          {}
func (Pulse) command()             {}
func (ApplyConfig) command()       {}
func (ToggleLinking) command()     {}
func (ToggleEmits) command()       {}
func (ToggleBackground) command()  {}
func (SetLinkVisibility) command() {}

// DefaultPulse is the pulse the front end sends.
var DefaultPulse = Pulse{Duration: time.Second, DecayRate: 50}

// Control applies cmd between ticks.
func (e *Engine) Control(cmd Command) error {
	e.sched.RunDue()

	switch c := cmd.(type) {
	case Start:
		e.Start()
	case Stop:
		return e.Stop()
	case Reset:
		e.Reset()
	case SetNumNodes:
		e.cfg.NumNodes = max(c.N, 0)
	case SetEmitRate:
		e.cfg.EmitRate = math.Max(1, math.Min(20, c.Percent)) / 100
	case SetMaxGroupLevels:
		if e.state == StateUninitialized {
			return ErrNotInitialized
		}
		e.SetMaxGroupLevels(c.Levels)
	case AddNodes:
		if e.state == StateUninitialized {
			return ErrNotInitialized
		}
		for i := 0; i < c.N; i++ {
			e.AddNode(nil, nil)
		}
	case Pulse:
		if e.state == StateUninitialized {
			return ErrNotInitialized
		}
		e.Pulse(c.Duration, c.DecayRate)
	case ApplyConfig:
		e.ApplyConfig(c.Patch)
	case ToggleLinking:
		e.cfg.LinkingEnabled = !e.cfg.LinkingEnabled
	case ToggleEmits:
		e.cfg.EmitsEnabled = !e.cfg.EmitsEnabled
		e.cfg.EmitsVisible = e.cfg.EmitsEnabled
		if !e.cfg.EmitsEnabled {
			e.emits = nil
		}
	case ToggleBackground:
		e.cfg.BackgroundEnabled = !e.cfg.BackgroundEnabled
	case SetLinkVisibility:
		switch c.Class {
		case LinkWeak:
			e.cfg.LinksWeakVisible = c.Visible
		case LinkStrongClass:
			e.cfg.LinksStrongVisible = c.Visible
		case LinkPerma:
			e.cfg.LinksPermaVisible = c.Visible
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	return nil
}

// Pulse sets DecayRate to rate for d, then restores the rate in force before
// the first of any overlapping pulses. A newer pulse replaces the pending
// revert of an older one.
func (e *Engine) Pulse(d time.Duration, rate float64) {
	if e.pulseTask.Pending() {
		e.pulseTask.Cancel()
	} else {
		e.pulseBaseline = e.cfg.DecayRate
	}
	e.cfg.DecayRate = math.Max(0, rate)

	var task *Task
	task = e.sched.After(d, func() {
		// Only the latest pulse may revert.
		if e.pulseTask != task {
			return
		}
		e.revertPulse()
	})
	e.pulseTask = task
	e.log.Info("pulse", "rate", rate, "duration", d)
}

// PulseActive reports whether a pulse override is in force.
func (e *Engine) PulseActive() bool {
	return e.pulseTask.Pending()
}

// revertPulse restores the pre-pulse decay rate if an override is active.
func (e *Engine) revertPulse() {
	if e.pulseTask == nil {
		return
	}
	e.pulseTask.Cancel()
	e.pulseTask = nil
	e.cfg.DecayRate = e.pulseBaseline
}
