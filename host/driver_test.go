package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/pthm-cable/signals/config"
	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/store"
	"github.com/pthm-cable/signals/telemetry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Engine.NumNodes = 20
	cfg.Engine.MergeChance = 0
	cfg.Engine.RecalibrateChance = 0
	cfg.Engine.LinkingEnabled = false
	cfg.Layout.Enabled = false
	cfg.Telemetry.StatsWindowTicks = 10
	return cfg
}

func newDriver(t *testing.T, cfg *config.Config, opts Options) *Driver {
	t.Helper()
	opts.Seed = 1
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	d, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

// runLoop runs the driver in the background until the test ends.
func runLoop(t *testing.T, d *Driver) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	})
}

func TestPopulationControl(t *testing.T) {
	tests := []struct {
		name      string
		target    int
		wantAfter int
	}{
		{"deficit adds two percent", 120, 22},
		{"small deficit adds one", 21, 21},
		{"excess removes ten percent", 0, 18},
		{"small excess removes one", 19, 19},
		{"at target", 20, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDriver(t, testConfig(t), Options{})
			d.Init(true)
			if err := d.Post(engine.SetNumNodes{N: tt.target}); err != nil {
				t.Fatalf("Post: %v", err)
			}
			d.Frame()
			if got := d.eng.LiveCount(); got != tt.wantAfter {
				t.Errorf("live after one frame = %d, want %d", got, tt.wantAfter)
			}
		})
	}
}

func TestStoppedEngineIsLeftAlone(t *testing.T) {
	d := newDriver(t, testConfig(t), Options{})
	d.Init(false)
	if err := d.Post(engine.SetNumNodes{N: 200}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	d.Frame()
	if got := d.eng.LiveCount(); got != 20 {
		t.Errorf("live = %d, want 20 while stopped", got)
	}
	if d.eng.Ticks() != 0 {
		t.Errorf("ticks = %d, want 0", d.eng.Ticks())
	}
}

func TestCommandsApplyBetweenFrames(t *testing.T) {
	d := newDriver(t, testConfig(t), Options{})
	d.Init(true)
	d.Frame()
	if d.Snapshot().Tick != 1 {
		t.Fatalf("tick = %d, want 1", d.Snapshot().Tick)
	}

	if err := d.Post(engine.Stop{}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if d.Snapshot().State != engine.StateRunning {
		t.Error("command applied before the frame")
	}
	d.Frame()
	snap := d.Snapshot()
	if snap.State != engine.StateStopped || snap.Tick != 1 {
		t.Errorf("after stop: state %v tick %d", snap.State, snap.Tick)
	}
}

func TestPostQueueFull(t *testing.T) {
	d := newDriver(t, testConfig(t), Options{})
	for i := 0; i < queueSize; i++ {
		if err := d.Post(engine.ToggleEmits{}); err != nil {
			t.Fatalf("Post %d: %v", i, err)
		}
	}
	if err := d.Post(engine.ToggleEmits{}); !errors.Is(err, ErrBusy) {
		t.Errorf("Post on full queue = %v, want ErrBusy", err)
	}
}

func TestSnapshotMirrorsGraph(t *testing.T) {
	d := newDriver(t, testConfig(t), Options{})
	d.Init(true)
	for i := 0; i < 5; i++ {
		d.Frame()
	}
	snap := d.Snapshot()
	if len(snap.Nodes) != d.eng.LiveCount() {
		t.Errorf("snapshot nodes = %d, live = %d", len(snap.Nodes), d.eng.LiveCount())
	}
	if snap.Spherical {
		t.Error("planar run reported spherical")
	}
	for _, n := range snap.Nodes {
		if n.Depth != 1 {
			t.Fatalf("planar node depth = %v", n.Depth)
		}
	}

	// The published snapshot is a copy.
	before := snap.Nodes[0]
	d.Frame()
	if snap.Nodes[0] != before {
		t.Error("old snapshot changed after a frame")
	}
}

func TestSphereSnapshot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Geometry = "sphere"
	d := newDriver(t, cfg, Options{})
	d.Init(true)
	d.Frame()

	snap := d.Snapshot()
	if !snap.Spherical {
		t.Fatal("sphere run not reported spherical")
	}
	if len(snap.Particles) != 0 {
		t.Error("sphere run has particles")
	}
	r := cfg.Sphere.Radius
	for _, n := range snap.Nodes {
		if n.Depth < -1-1e-9 || n.Depth > 1+1e-9 {
			t.Errorf("depth %v out of range", n.Depth)
		}
		if n.X*n.X+n.Y*n.Y > r*r+1e-6 {
			t.Errorf("projected node (%v, %v) outside the disc", n.X, n.Y)
		}
	}
}

func TestBackgroundModeFillsParticles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Background.Enabled = true
	cfg.Background.ParticleDensity = 10000
	d := newDriver(t, cfg, Options{})
	d.Init(true)

	d.Frame()
	if got := len(d.Snapshot().Particles); got == 0 {
		t.Fatal("no particles after the first background frame")
	}
	if got := d.eng.LiveCount(); got > 20 {
		t.Errorf("live = %d; background mode must not add at target", got)
	}

	if err := d.Post(engine.Reset{}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	d.Frame()
	d.Frame()
	if d.particles.Count() != 0 {
		t.Errorf("particles = %d after reset, want 0", d.particles.Count())
	}
}

func TestTelemetryWindows(t *testing.T) {
	var ends []uint64
	d := newDriver(t, testConfig(t), Options{
		OnWindow: func(ws telemetry.WindowStats) { ends = append(ends, ws.WindowEndTick) },
	})
	d.Init(true)
	for i := 0; i < 25; i++ {
		d.Frame()
	}
	if diff := cmp.Diff([]uint64{10, 20}, ends); diff != "" {
		t.Errorf("window ends mismatch (-want +got):\n%s", diff)
	}
	stats := d.Stats()
	if stats.WindowEndTick != 20 {
		t.Errorf("last window ends at %d, want 20", stats.WindowEndTick)
	}
	if stats.LiveNodes == 0 {
		t.Error("window sampled no live nodes")
	}
	if d.Snapshot().Perf.AvgTickDuration <= 0 {
		t.Error("perf stats not published")
	}
}

func TestRunStopsAtMaxTicks(t *testing.T) {
	d := newDriver(t, testConfig(t), Options{Unthrottled: true, MaxTicks: 30})
	d.Init(true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.eng.Ticks() != 30 {
		t.Errorf("ticks = %d, want 30", d.eng.Ticks())
	}
}

func TestNewRejectsUnknownGeometry(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Geometry = "torus"
	if _, err := New(cfg, Options{}); err == nil {
		t.Error("New accepted an unknown geometry")
	}
}
