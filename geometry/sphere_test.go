package geometry

import (
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/identity"
)

func signalFrom(theta, phi, angle float64) *engine.Signal {
	src := &engine.Node{X: theta, Y: phi, Identity: identity.FromColor(identity.RGB{})}
	return engine.NewSignal(src, 100, 1, angle, time.Time{})
}

func TestSphereRayHit(t *testing.T) {
	s := NewSphere(300, 30)
	step := math.Pi / 20
	equator := math.Pi / 2

	tests := []struct {
		name       string
		angle      float64
		theta, phi float64
		want       bool
	}{
		{"east one step", 0, step, equator, true},
		{"east last probed step", 0, 4 * step, equator, true},
		{"east beyond probe", 0, 5 * step, equator, false},
		{"west misses east target", math.Pi, step, equator, false},
		{"west hits west target", math.Pi, -step, equator, true},
		{"north", math.Pi / 2, 0, equator - 2*step, true},
		{"south misses north target", -math.Pi / 2, 0, equator - 2*step, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &engine.Node{X: tt.theta, Y: tt.phi}
			if got := s.RayHit(signalFrom(0, equator, tt.angle), target); got != tt.want {
				t.Errorf("RayHit = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSphereDistance(t *testing.T) {
	s := NewSphere(100, 5)
	a := &engine.Node{X: 0, Y: math.Pi / 2, Radius: 10}
	b := &engine.Node{X: math.Pi / 2, Y: math.Pi / 2, Radius: 10}

	want := 100*math.Pi/2 - 20
	if got := s.Distance(a, b); math.Abs(got-want) > 1e-9 {
		t.Errorf("Distance = %v, want %v", got, want)
	}
	if got := s.Distance(a, a); got != 0 {
		t.Errorf("self distance = %v", got)
	}
}

func TestSpherePlace(t *testing.T) {
	s := NewSphere(100, 5)
	n := &engine.Node{}

	s.Place(n, -math.Pi/2, 4)
	if math.Abs(n.X-3*math.Pi/2) > 1e-12 {
		t.Errorf("theta = %v, want wrapped into [0, 2pi)", n.X)
	}
	if n.Y != math.Pi-polarMargin {
		t.Errorf("phi = %v, want clamped below the pole", n.Y)
	}
}

func TestSphereInEngine(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.NumNodes = 20
	cfg.EmitRate = 1
	e := engine.New(cfg, engine.WithGeometry(NewSphere(300, cfg.BaseNodeRadius)))
	e.Init(true)
	for i := 0; i < 50; i++ {
		if err := e.Tick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	for _, n := range e.Nodes() {
		if n.X < 0 || n.X >= 2*math.Pi || n.Y < polarMargin || n.Y > math.Pi-polarMargin {
			t.Fatalf("node %d off the sphere: (%v, %v)", n.ID, n.X, n.Y)
		}
	}
}

func TestSphereProject(t *testing.T) {
	s := NewSphere(100, 10)
	tests := []struct {
		name             string
		theta, phi, yaw  float64
		wantX, wantY, wd float64
	}{
		{"equator front", -math.Pi / 2, math.Pi / 2, 0, 0, 0, 1},
		{"equator side", 0, math.Pi / 2, 0, 100, 0, 0},
		{"spun to front", 0, math.Pi / 2, -math.Pi / 2, 0, 0, 1},
		{"north", 0, polarMargin, 0, 100 * math.Sin(polarMargin), -100 * math.Cos(polarMargin), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, d := s.Project(tt.theta, tt.phi, tt.yaw)
			if math.Abs(x-tt.wantX) > 1e-9 || math.Abs(y-tt.wantY) > 1e-9 || math.Abs(d-tt.wd) > 1e-9 {
				t.Errorf("Project = (%v, %v, %v), want (%v, %v, %v)", x, y, d, tt.wantX, tt.wantY, tt.wd)
			}
		})
	}
}
