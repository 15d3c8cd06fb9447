package host

import (
	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/geometry"
	"github.com/pthm-cable/signals/identity"
	"github.com/pthm-cable/signals/systems"
	"github.com/pthm-cable/signals/telemetry"
)

// sphereSpin is the yaw added to the sphere view per running frame.
const sphereSpin = 0.002

// emitLengthFactor is the drawn emit length per source radius; hits are
// drawn twice as long.
const emitLengthFactor = 4

// NodeView is a live node in view coordinates.
type NodeView struct {
	ID         engine.NodeID
	X, Y       float64
	Depth      float64 // 1 on the plane; sphere front is positive
	Radius     float64
	Color      identity.RGB
	Health     float64
	BaseHealth float64
	Level      int
	Contained  int
}

// LinkView is a link between two live nodes in view coordinates.
type LinkView struct {
	From, To       engine.NodeID
	X1, Y1, X2, Y2 float64
	Depth          float64
	Strength       float64
	Class          engine.LinkClass
}

// EmitView is a fading signal ray.
type EmitView struct {
	X1, Y1, X2, Y2 float64
	Color          identity.RGB
	Alpha          float64
	Hit            bool
}

// Snapshot is an immutable copy of everything a renderer draws for one
// frame.
type Snapshot struct {
	Frame     uint64
	Tick      uint64
	State     engine.RunState
	RunID     string
	Config    engine.Config
	Pulsing   bool
	Spherical bool

	Nodes     []NodeView
	Links     []LinkView
	Emits     []EmitView
	Particles []systems.ParticleView
	Sparks    []systems.SparkView

	Stats telemetry.WindowStats
	Perf  telemetry.PerfStats
}

// Snapshot returns the latest published frame. Never nil.
func (d *Driver) Snapshot() *Snapshot {
	return d.snap.Load()
}

// project maps engine coordinates to view coordinates.
func (d *Driver) project(x, y float64) (px, py, depth float64) {
	if s, ok := d.geom.(geometry.Sphere); ok {
		return s.Project(x, y, d.yaw)
	}
	return x, y, 1
}

func (d *Driver) publish() {
	cfg := d.eng.Config()
	_, spherical := d.geom.(geometry.Sphere)
	s := &Snapshot{
		Frame:     d.frames,
		Tick:      d.eng.Ticks(),
		State:     d.eng.State(),
		RunID:     d.eng.RunID(),
		Config:    cfg,
		Pulsing:   d.eng.PulseActive(),
		Spherical: spherical,
		Stats:     d.lastStats,
		Perf:      d.lastPerf,
	}

	data := d.eng.GetData()
	s.Nodes = make([]NodeView, 0, len(data.Nodes))
	for _, n := range data.Nodes {
		x, y, depth := d.project(n.X, n.Y)
		s.Nodes = append(s.Nodes, NodeView{
			ID:         n.ID,
			X:          x,
			Y:          y,
			Depth:      depth,
			Radius:     n.Radius,
			Color:      n.Color,
			Health:     n.Health,
			BaseHealth: n.BaseHealth,
			Level:      n.Level,
			Contained:  len(n.ContainedNodes),
		})
	}

	s.Links = make([]LinkView, 0, len(data.Links))
	for _, l := range data.Links {
		if !l.Source.Live() || !l.Target.Live() {
			continue
		}
		x1, y1, d1 := d.project(l.Source.X, l.Source.Y)
		x2, y2, d2 := d.project(l.Target.X, l.Target.Y)
		s.Links = append(s.Links, LinkView{
			From: l.Source.ID, To: l.Target.ID,
			X1: x1, Y1: y1, X2: x2, Y2: y2,
			Depth:    min(d1, d2),
			Strength: l.Strength,
			Class:    l.Class(cfg.LinkStrong),
		})
	}

	if cfg.EmitsVisible {
		s.Emits = d.emitViews(spherical)
	}
	if d.particles != nil && cfg.BackgroundEnabled {
		s.Particles = d.particles.Particles()
		s.Sparks = d.particles.Sparks()
	}
	d.snap.Store(s)
}

// emitViews draws rays from the source edge along the heading. On the
// sphere only hits are drawn, as chords to the target.
func (d *Driver) emitViews(spherical bool) []EmitView {
	emits := d.eng.Emits()
	out := make([]EmitView, 0, len(emits))
	for _, sig := range emits {
		src := d.eng.Node(sig.Source)
		if src == nil || sig.MaxH <= 0 {
			continue
		}
		alpha := 0.25
		if sig.Hit {
			alpha = 0.75
		}
		ev := EmitView{
			Color: sig.Identity.Color(),
			Alpha: alpha * sig.H / sig.MaxH,
			Hit:   sig.Hit,
		}

		if spherical {
			dst := d.eng.Node(sig.Target)
			if !sig.Hit || dst == nil {
				continue
			}
			ev.X1, ev.Y1, _ = d.project(src.X, src.Y)
			ev.X2, ev.Y2, _ = d.project(dst.X, dst.Y)
			out = append(out, ev)
			continue
		}

		length := src.Radius * emitLengthFactor
		if sig.Hit {
			length *= 2
		}
		ev.X1 = sig.Origin.X + sig.Dir.X*src.Radius
		ev.Y1 = sig.Origin.Y + sig.Dir.Y*src.Radius
		ev.X2 = sig.Origin.X + sig.Dir.X*length
		ev.Y2 = sig.Origin.Y + sig.Dir.Y*length
		out = append(out, ev)
	}
	return out
}
