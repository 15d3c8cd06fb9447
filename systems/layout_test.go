package systems

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/signals/engine"
)

func layoutEngine(t *testing.T, geom engine.Geometry, nodes []*engine.Node, links []*engine.Link) *engine.Engine {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.NumNodes = 0
	opts := []engine.Option{
		engine.WithRand(rand.New(rand.NewSource(1))),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if geom != nil {
		opts = append(opts, engine.WithGeometry(geom))
	}
	e := engine.New(cfg, opts...)
	e.Init(false)
	e.SetData(nodes, links)
	return e
}

func node(id engine.NodeID, x, y float64) *engine.Node {
	return &engine.Node{ID: id, X: x, Y: y, Radius: 30, Level: 1, Health: 1, BaseHealth: 1}
}

func dist(a, b *engine.Node) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestLayoutLinkPulls(t *testing.T) {
	a, b := node(1, -400, 0), node(2, 400, 0)
	link := &engine.Link{Source: a, Target: b, Strength: 1e6}
	e := layoutEngine(t, nil, []*engine.Node{a, b}, []*engine.Link{link})

	cfg := DefaultLayoutConfig()
	cfg.Charge = 0
	cfg.Centering = 0
	l := NewLayout(cfg)

	before := dist(a, b)
	for i := 0; i < 10; i++ {
		l.Step(e)
	}
	if after := dist(a, b); after >= before {
		t.Errorf("linked nodes did not approach: %v -> %v", before, after)
	}
	if math.Abs(a.X+b.X) > 1e-9 {
		t.Errorf("spring force not symmetric: a=%v b=%v", a.X, b.X)
	}
}

func TestLayoutChargeRepels(t *testing.T) {
	a, b := node(1, -5, 0), node(2, 5, 0)
	e := layoutEngine(t, nil, []*engine.Node{a, b}, nil)

	cfg := DefaultLayoutConfig()
	cfg.Centering = 0
	l := NewLayout(cfg)
	for i := 0; i < 5; i++ {
		l.Step(e)
	}
	if dist(a, b) <= 10 {
		t.Errorf("unlinked nodes did not separate: %v", dist(a, b))
	}
}

func TestLayoutCoincidentNodesSeparate(t *testing.T) {
	a, b := node(1, 0, 0), node(2, 0, 0)
	e := layoutEngine(t, nil, []*engine.Node{a, b}, nil)

	NewLayout(DefaultLayoutConfig()).Step(e)
	if dist(a, b) == 0 {
		t.Error("coincident nodes still overlap")
	}
}

func TestLayoutSkipsContained(t *testing.T) {
	a, b := node(1, -5, 0), node(2, 5, 0)
	b.IsContained = true
	e := layoutEngine(t, nil, []*engine.Node{a, b}, nil)

	l := NewLayout(DefaultLayoutConfig())
	l.Step(e)
	if b.X != 5 || b.Y != 0 {
		t.Errorf("contained node moved to (%v, %v)", b.X, b.Y)
	}
	if _, ok := l.Velocity(b.ID); ok {
		t.Error("contained node has a velocity")
	}
}

type curved struct{ engine.Planar }

func TestLayoutIgnoresNonPlanar(t *testing.T) {
	a, b := node(1, -5, 0), node(2, 5, 0)
	e := layoutEngine(t, curved{}, []*engine.Node{a, b}, nil)

	NewLayout(DefaultLayoutConfig()).Step(e)
	if a.X != -5 || b.X != 5 {
		t.Error("layout moved nodes on a non-planar geometry")
	}
}

func TestLayoutForgetsRemovedNodes(t *testing.T) {
	a, b := node(1, -5, 0), node(2, 5, 0)
	e := layoutEngine(t, nil, []*engine.Node{a, b}, nil)
	l := NewLayout(DefaultLayoutConfig())
	l.Step(e)

	e.SetData([]*engine.Node{a}, nil)
	l.Step(e)
	if _, ok := l.Velocity(b.ID); ok {
		t.Error("velocity kept for a removed node")
	}
}

func TestStiffness(t *testing.T) {
	tests := []struct {
		strength float64
		want     float64
	}{
		{0, 0},
		{-4, 0},
		{14400, 0.1},
		{1440000, 1},
		{1e9, 1},
	}
	for _, tt := range tests {
		if got := Stiffness(tt.strength); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Stiffness(%v) = %v, want %v", tt.strength, got, tt.want)
		}
	}
}
