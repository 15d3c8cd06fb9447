// Package viewer is the raylib front end. The driver runs its frame loop on
// a background goroutine; the viewer draws the latest snapshot on the main
// thread and sends user input back as commands.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/signals/camera"
	"github.com/pthm-cable/signals/config"
	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/host"
	"github.com/pthm-cable/signals/ui"
)

// fitDuration is how long a zoom-to-fit transition takes.
const fitDuration = 0.5

// noteTTL is how long a status note stays on screen.
const noteTTL = 3 * time.Second

const controlsLegend = "[Space] start/stop  [P] pulse  [R] reset  [A] add 10  [S] save  [F] fit  [Tab] panel  [C] save chunk  [V] inject chunk  [Backspace] clear selection"

// note is a message from a background job to the draw loop.
type note struct {
	text  string
	chunk string // set when a chunk was saved
}

// Viewer owns the window and the UI state.
type Viewer struct {
	cfg    *config.Config
	driver *host.Driver
	log    *slog.Logger

	cam       *camera.Camera
	hud       *ui.HUD
	controls  *ui.ControlsPanel
	stats     *ui.StatsPanel
	perf      *ui.PerfPanel
	inspector *ui.Inspector
	overlays  *ui.Overlays

	width, height float32
	sinceFit      float32
	fitted        bool

	jobs      *errgroup.Group
	jobCtx    context.Context
	notes     chan note
	status    string
	statusEnd time.Time
	lastChunk string
}

// New creates a viewer for d. The window opens in Run.
func New(cfg *config.Config, d *host.Driver, log *slog.Logger) *Viewer {
	w, h := cfg.Derived.ScreenW32, cfg.Derived.ScreenH32
	cam := camera.New(w, h)
	cam.MinZoom = float32(cfg.Camera.MinZoom)
	cam.MaxZoom = float32(cfg.Camera.MaxZoom)

	return &Viewer{
		cfg:       cfg,
		driver:    d,
		log:       log,
		cam:       cam,
		hud:       ui.NewHUD(),
		controls:  ui.NewControlsPanel(int32(w)-230, 10, 220),
		stats:     ui.NewStatsPanel(10, 100, 300),
		perf:      ui.NewPerfPanel(10, 100),
		inspector: ui.NewInspector(int32(w)-230, 410, 220),
		overlays:  ui.NewOverlays(),
		width:     w,
		height:    h,
		notes:     make(chan note, 16),
	}
}

// Run opens the window and draws until it is closed or ctx ends. It must
// be called from the main goroutine.
func (v *Viewer) Run(ctx context.Context) error {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(v.width), int32(v.height), "signals")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(v.cfg.Screen.TargetFPS))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return v.driver.Run(gctx) })
	v.jobs, v.jobCtx = g, gctx

	for !rl.WindowShouldClose() && gctx.Err() == nil {
		snap := v.driver.Snapshot()
		v.update(snap, rl.GetFrameTime())
		v.draw(snap)
	}
	cancel()

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// post sends a command to the driver, dropping it if the queue is full.
func (v *Viewer) post(cmd engine.Command) {
	if err := v.driver.Post(cmd); err != nil {
		v.log.Warn("command dropped", "command", fmt.Sprintf("%T", cmd), "error", err)
	}
}

func (v *Viewer) setStatus(text string) {
	v.status = text
	v.statusEnd = time.Now().Add(noteTTL)
}

// background runs fn off the draw loop and reports its outcome as a note.
func (v *Viewer) background(fn func(ctx context.Context) (note, error)) {
	v.jobs.Go(func() error {
		n, err := fn(v.jobCtx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			v.log.Error("background job failed", "error", err)
			n = note{text: err.Error()}
		}
		select {
		case v.notes <- n:
		default:
		}
		return nil
	})
}

func (v *Viewer) update(snap *host.Snapshot, dt float32) {
	v.handleResize()

notes:
	for {
		select {
		case n := <-v.notes:
			v.setStatus(n.text)
			if n.chunk != "" {
				v.lastChunk = n.chunk
			}
		default:
			break notes
		}
	}

	v.handleKeys(snap)
	v.handleMouse(snap)
	v.inspector.Prune(snap.Nodes)
	v.autoFit(snap, dt)
	v.cam.Update(dt)
}

func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w, h := float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())
	if w == v.width && h == v.height {
		return
	}
	v.width, v.height = w, h
	v.cam.Resize(w, h)
	v.controls.SetPosition(int32(w)-230, 10)
	v.inspector.SetPosition(int32(w)-230, 410)
}

func (v *Viewer) handleKeys(snap *host.Snapshot) {
	v.overlays.HandleKeys()

	if rl.IsKeyPressed(rl.KeySpace) {
		if snap.State == engine.StateRunning {
			v.post(engine.Stop{})
		} else {
			v.post(engine.Start{})
		}
	}
	if rl.IsKeyPressed(rl.KeyP) {
		v.post(engine.DefaultPulse)
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.post(engine.Reset{})
		v.inspector.Clear()
	}
	if rl.IsKeyPressed(rl.KeyA) {
		v.post(engine.AddNodes{N: 10})
	}
	if rl.IsKeyPressed(rl.KeyS) {
		v.save()
	}
	if rl.IsKeyPressed(rl.KeyF) {
		v.fit(snap)
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyBackspace) {
		v.inspector.Clear()
	}
	if rl.IsKeyPressed(rl.KeyC) {
		v.saveChunk()
	}
	if rl.IsKeyPressed(rl.KeyV) {
		// Projected sphere coordinates are not engine coordinates.
		var wx, wy float32
		if !snap.Spherical {
			m := rl.GetMousePosition()
			wx, wy = v.cam.ScreenToWorld(m.X, m.Y)
		}
		v.injectChunk(float64(wx), float64(wy))
	}

	panSpeed := float32(8.0)
	if rl.IsKeyDown(rl.KeyRight) {
		v.cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.cam.Pan(0, -panSpeed)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.cam.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.cam.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Reset()
	}
}

func (v *Viewer) handleMouse(snap *host.Snapshot) {
	m := rl.GetMousePosition()
	if v.controls.Contains(m.X, m.Y) {
		return
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.ZoomAt(m.X, m.Y, 1+wheel*0.1)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Pan(-d.X, -d.Y)
	}
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		wx, wy := v.cam.ScreenToWorld(m.X, m.Y)
		id, ok := ui.Pick(snap.Nodes, float64(wx), float64(wy))
		extend := rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift)
		switch {
		case ok:
			v.inspector.Select(id, extend)
		case !extend:
			v.inspector.Clear()
		}
	}
}

// autoFit zooms to the node bounds every fit interval, and once as soon as
// there is something to fit.
func (v *Viewer) autoFit(snap *host.Snapshot, dt float32) {
	if !v.cfg.Camera.AutoZoom {
		return
	}
	v.sinceFit += dt
	if v.fitted && v.sinceFit < float32(v.cfg.Derived.FitInterval.Seconds()) {
		return
	}
	if len(snap.Nodes) == 0 {
		return
	}
	v.fit(snap)
	v.fitted = true
}

func (v *Viewer) fit(snap *host.Snapshot) {
	v.sinceFit = 0
	v.cam.FitTo(nodeBounds(snap), float32(v.cfg.Camera.FitMargin), fitDuration)
}

func nodeBounds(snap *host.Snapshot) camera.Bounds {
	var b camera.Bounds
	for _, n := range snap.Nodes {
		if snap.Spherical && n.Depth <= 0 {
			continue
		}
		b.Extend(float32(n.X), float32(n.Y), float32(n.Radius))
	}
	return b
}

func (v *Viewer) save() {
	v.background(func(ctx context.Context) (note, error) {
		meta, err := v.driver.Save(ctx, "")
		if err != nil {
			return note{}, err
		}
		return note{text: fmt.Sprintf("saved %s (%d nodes)", meta.ID, meta.Nodes)}, nil
	})
}

func (v *Viewer) saveChunk() {
	ids := v.inspector.Selected()
	if len(ids) == 0 {
		v.setStatus("select nodes to save a chunk")
		return
	}
	v.background(func(ctx context.Context) (note, error) {
		meta, err := v.driver.SaveChunk(ctx, "", ids)
		if err != nil {
			return note{}, err
		}
		return note{text: fmt.Sprintf("chunk %s saved (%d nodes)", meta.ID, meta.Nodes), chunk: meta.ID}, nil
	})
}

func (v *Viewer) injectChunk(x, y float64) {
	id := v.lastChunk
	if id == "" {
		v.setStatus("no chunk saved this session")
		return
	}
	v.background(func(ctx context.Context) (note, error) {
		ids, err := v.driver.InjectChunk(ctx, id, x, y)
		if err != nil {
			return note{}, err
		}
		return note{text: fmt.Sprintf("injected %d nodes from %s", len(ids), id)}, nil
	})
}
