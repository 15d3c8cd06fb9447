package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/signals/engine"
)

// LayoutConfig holds the force-directed layout parameters.
type LayoutConfig struct {
	RestFactor    float64 // spring rest length per summed radii
	Charge        float64 // many-body strength per base radius
	VelocityDecay float64 // fraction of velocity lost per step
	Centering     float64 // pull toward the origin per step
	Alpha         float64 // force scale per step
}

// DefaultLayoutConfig returns the stock layout settings.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		RestFactor:    1.3,
		Charge:        -30,
		VelocityDecay: 0.4,
		Centering:     0.01,
		Alpha:         0.3,
	}
}

// maxSpringStiffness caps how hard a link pulls per step.
const maxSpringStiffness = 1.0

// Layout relaxes live node positions on the plane: links act as springs,
// nodes repel each other and everything drifts toward the origin. Contained
// nodes are ignored. Positions are written through the engine geometry.
type Layout struct {
	cfg LayoutConfig
	vel map[engine.NodeID]r2.Vec
}

// NewLayout creates a layout with no velocity history.
func NewLayout(cfg LayoutConfig) *Layout {
	return &Layout{cfg: cfg, vel: make(map[engine.NodeID]r2.Vec)}
}

// Stiffness is the spring constant for a link of the given strength.
func Stiffness(strength float64) float64 {
	return math.Min(math.Sqrt(math.Max(strength, 0))/1200, maxSpringStiffness)
}

// Step runs one relaxation step. Engines on a non-planar geometry are left
// alone.
func (l *Layout) Step(e *engine.Engine) {
	if _, ok := e.Geometry().(engine.Planar); !ok {
		return
	}

	var live []*engine.Node
	for _, n := range e.Nodes() {
		if n.Live() {
			live = append(live, n)
		}
	}

	vel := make(map[engine.NodeID]r2.Vec, len(live))
	for _, n := range live {
		vel[n.ID] = l.vel[n.ID]
	}
	alpha := l.cfg.Alpha

	for _, link := range e.Links() {
		s, t := link.Source, link.Target
		if !s.Live() || !t.Live() {
			continue
		}
		d := r2.Sub(r2.Vec{X: t.X, Y: t.Y}, r2.Vec{X: s.X, Y: s.Y})
		dist := r2.Norm(d)
		if dist == 0 {
			continue
		}
		rest := (s.Radius + t.Radius) * l.cfg.RestFactor
		k := (dist - rest) / dist * Stiffness(link.Strength) * alpha
		pull := r2.Scale(k/2, d)
		vel[t.ID] = r2.Sub(vel[t.ID], pull)
		vel[s.ID] = r2.Add(vel[s.ID], pull)
	}

	base := e.Config().BaseNodeRadius
	if base <= 0 {
		base = 1
	}
	for i, a := range live {
		for j, b := range live {
			if i == j {
				continue
			}
			d := r2.Sub(r2.Vec{X: b.X, Y: b.Y}, r2.Vec{X: a.X, Y: a.Y})
			dist2 := r2.Norm2(d)
			if dist2 == 0 {
				// Coincident nodes are pushed apart along a fixed axis
				// ordered by insertion.
				d, dist2 = r2.Vec{X: float64(j - i)}, 1
			}
			dist2 = math.Max(dist2, 1)
			strength := l.cfg.Charge * b.Radius / base
			vel[a.ID] = r2.Add(vel[a.ID], r2.Scale(strength*alpha/dist2, d))
		}
	}

	geom := e.Geometry()
	for _, n := range live {
		v := vel[n.ID]
		v = r2.Sub(v, r2.Scale(l.cfg.Centering, r2.Vec{X: n.X, Y: n.Y}))
		v = r2.Scale(1-l.cfg.VelocityDecay, v)
		vel[n.ID] = v
		geom.Place(n, n.X+v.X, n.Y+v.Y)
	}
	l.vel = vel
}

// Velocity returns the last step's velocity for id.
func (l *Layout) Velocity(id engine.NodeID) (r2.Vec, bool) {
	v, ok := l.vel[id]
	return v, ok
}
