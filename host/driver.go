// Package host drives an engine: it runs the frame loop, keeps the
// population near its target, feeds telemetry, publishes snapshots for
// renderers and persists states and chunks.
package host

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/signals/config"
	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/store"
	"github.com/pthm-cable/signals/systems"
	"github.com/pthm-cable/signals/telemetry"
)

var (
	// ErrNoStore is returned by persistence calls on a driver without a store.
	ErrNoStore = errors.New("host: no store configured")
	// ErrBusy is returned by Post when the command queue is full.
	ErrBusy = errors.New("host: command queue full")
)

// queueSize bounds the pending command queue.
const queueSize = 64

// Options holds driver construction parameters.
type Options struct {
	Seed     int64 // 0 = time-based
	RunID    string
	Store    store.Store
	Output   *telemetry.OutputManager
	LogStats bool
	Logger   *slog.Logger

	// Unthrottled runs frames back to back instead of at the target fps.
	Unthrottled bool
	// MaxTicks stops Run after that many engine ticks (0 = unlimited).
	MaxTicks uint64
	// SaveOnBookmark stores a state whenever telemetry raises a bookmark.
	SaveOnBookmark bool
	// OnWindow, if set, receives every closed stats window on the frame
	// goroutine.
	OnWindow func(telemetry.WindowStats)
}

type request struct {
	fn   func(*engine.Engine) error
	done chan error
}

// Driver owns an engine and everything that runs around it each frame.
// Frame and the functions passed to Do run on one goroutine; Post, Do,
// Snapshot and the persistence calls are safe from any goroutine.
type Driver struct {
	cfg   *config.Config
	opts  Options
	eng   *engine.Engine
	geom  engine.Geometry
	rng   *rand.Rand
	log   *slog.Logger
	store store.Store

	layout     *systems.Layout
	particles  *systems.ParticleLayer
	refill     bool
	background bool

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager
	lastStats telemetry.WindowStats
	lastPerf  telemetry.PerfStats

	yaw    float64
	frames uint64

	requests chan request
	snap     atomic.Pointer[Snapshot]
}

// New builds a driver and an uninitialized engine from cfg.
func New(cfg *config.Config, opts Options) (*Driver, error) {
	geom, err := NewGeometry(cfg)
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	d := &Driver{
		cfg:       cfg,
		opts:      opts,
		geom:      geom,
		rng:       rand.New(rand.NewSource(seed)),
		log:       logger,
		store:     opts.Store,
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindowTicks, cfg.Derived.FrameTime.Seconds()),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarks: telemetry.NewBookmarkDetector(10),
		output:    opts.Output,
		requests:  make(chan request, queueSize),
	}

	d.eng = engine.New(cfg.EngineConfig(),
		engine.WithGeometry(geom),
		engine.WithRand(d.rng),
		engine.WithLogger(logger),
		engine.WithRecorder(d.collector),
		engine.WithPhaseTimer(d.perf),
		engine.WithRunID(runID),
	)

	if cfg.Layout.Enabled {
		d.layout = systems.NewLayout(layoutConfig(cfg))
	}
	if _, planar := geom.(engine.Planar); planar {
		ecfg := d.eng.Config()
		pcfg := systems.DefaultParticleConfig(float32(ecfg.ViewportWidth), float32(ecfg.ViewportHeight))
		pcfg.Speed = float32(cfg.Background.ParticleSpeed / float64(cfg.Screen.TargetFPS))
		pcfg.MaxAddPerUpdate = cfg.Background.MaxAddPerUpdate
		d.particles = systems.NewParticleLayer(pcfg, d.rng)
	}

	d.publish()
	return d, nil
}

func layoutConfig(cfg *config.Config) systems.LayoutConfig {
	lc := systems.DefaultLayoutConfig()
	lc.RestFactor = cfg.Layout.RestFactor
	lc.Charge = cfg.Layout.Charge
	lc.VelocityDecay = cfg.Layout.VelocityDecay
	lc.Centering = cfg.Layout.Centering
	return lc
}

// Init seeds the engine. Call before the loop starts.
func (d *Driver) Init(start bool) {
	d.eng.Init(start)
	d.publish()
}

// Frame runs one host frame: queued commands, population control, one
// engine tick, layout and telemetry, then a fresh snapshot.
func (d *Driver) Frame() {
	d.drain()

	d.perf.StartTick()
	d.perf.RecordFrame()
	d.syncBackground()

	running := d.eng.State() == engine.StateRunning
	if running {
		d.perf.StartPhase(telemetry.PhasePopulation)
		d.controlPopulation()
	}

	if err := d.eng.Tick(); err != nil {
		d.log.Error("tick failed", "tick", d.eng.Ticks(), "error", err)
	}

	if running {
		if d.layout != nil {
			d.perf.StartPhase(telemetry.PhaseLayout)
			d.layout.Step(d.eng)
		}
		d.perf.StartPhase(telemetry.PhaseTelemetry)
		d.flushTelemetry()
		d.yaw += sphereSpin
	}
	d.perf.EndTick()

	d.frames++
	d.publish()
}

// Run calls Frame at the target frame rate (or back to back when
// Unthrottled) until ctx is done or MaxTicks is reached. Reaching MaxTicks
// returns nil.
func (d *Driver) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if !d.opts.Unthrottled {
		ticker := time.NewTicker(d.cfg.Derived.FrameTime)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		d.Frame()
		if d.opts.MaxTicks > 0 && d.eng.Ticks() >= d.opts.MaxTicks {
			d.log.Info("max ticks reached", "tick", d.eng.Ticks())
			return nil
		}
	}
}

// Post queues cmd for the next frame without waiting for it.
func (d *Driver) Post(cmd engine.Command) error {
	select {
	case d.requests <- request{fn: func(e *engine.Engine) error { return e.Control(cmd) }}:
		return nil
	default:
		return ErrBusy
	}
}

// Do runs fn on the frame goroutine before the next frame and waits for
// its result. If ctx ends after fn was queued, fn still runs.
func (d *Driver) Do(ctx context.Context, fn func(*engine.Engine) error) error {
	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case d.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) drain() {
	for {
		select {
		case req := <-d.requests:
			err := req.fn(d.eng)
			if req.done != nil {
				req.done <- err
			} else if err != nil {
				d.log.Warn("command failed", "error", err)
			}
		default:
			return
		}
	}
}

// syncBackground refills the particle layer when background mode turns on
// and clears it after an engine reset.
func (d *Driver) syncBackground() {
	if d.particles == nil {
		return
	}
	on := d.eng.Config().BackgroundEnabled
	if on && !d.background {
		d.refill = true
	}
	d.background = on
	if d.eng.State() == engine.StateUninitialized && d.particles.Count() > 0 {
		d.particles.Reset()
		d.refill = true
	}
}

// Stats returns the most recent telemetry window.
func (d *Driver) Stats() telemetry.WindowStats { return d.lastStats }
