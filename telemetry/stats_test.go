package telemetry

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/signals/engine"
)

func TestComputeStrengthStats(t *testing.T) {
	tests := []struct {
		name           string
		values         []float64
		mean, p50, p90 float64
	}{
		{"empty", nil, 0, 0, 0},
		{"single", []float64{5}, 5, 5, 5},
		{"unsorted", []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}, 5.5, 5, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, p50, p90 := ComputeStrengthStats(tt.values)
			if math.Abs(mean-tt.mean) > 1e-9 || p50 != tt.p50 || p90 != tt.p90 {
				t.Errorf("got (%v, %v, %v), want (%v, %v, %v)", mean, p50, p90, tt.mean, tt.p50, tt.p90)
			}
		})
	}
}

func TestComputeStrengthStatsLeavesInput(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeStrengthStats(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input reordered: %v", values)
	}
}

func TestComputeHealthStats(t *testing.T) {
	if m, s := ComputeHealthStats(nil); m != 0 || s != 0 {
		t.Errorf("empty = (%v, %v)", m, s)
	}
	if m, s := ComputeHealthStats([]float64{7}); m != 7 || s != 0 {
		t.Errorf("single = (%v, %v)", m, s)
	}
	m, s := ComputeHealthStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if m != 5 || math.Abs(s-2.138) > 0.001 {
		t.Errorf("got (%v, %v), want (5, ~2.138)", m, s)
	}
}

func TestSampleGraph(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.NumNodes = 0
	e := engine.New(cfg,
		engine.WithRand(rand.New(rand.NewSource(1))),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	e.Init(false)

	a := &engine.Node{ID: 1, Level: 1, Health: 100, BaseHealth: 200}
	b := &engine.Node{ID: 2, Level: 1, Health: 50, BaseHealth: 200, IsContained: true}
	c := &engine.Node{ID: 3, Level: 2, Health: 150, BaseHealth: 200, ContainedNodes: []engine.NodeID{2}}
	d := &engine.Node{ID: 4, Level: 1, Health: 200, BaseHealth: 200}
	links := []*engine.Link{
		{Source: a, Target: c, Strength: 5},
		{Source: c, Target: d, Strength: cfg.LinkStrong},
		{Source: d, Target: a, Strength: 1, PermaBond: true},
	}
	e.SetData([]*engine.Node{a, b, c, d}, links)

	g := SampleGraph(e)
	if g.LiveNodes != 3 || g.ContainedNodes != 1 || g.Containers != 1 || g.MaxLevel != 2 {
		t.Errorf("population = %+v", g)
	}
	if g.WeakLinks != 1 || g.StrongLinks != 1 || g.PermaLinks != 1 {
		t.Errorf("links = %d weak, %d strong, %d perma", g.WeakLinks, g.StrongLinks, g.PermaLinks)
	}
	if len(g.Strengths) != 3 || len(g.Healths) != 3 {
		t.Errorf("samples = %d strengths, %d healths", len(g.Strengths), len(g.Healths))
	}
	if g.DecayRate != cfg.DecayRate {
		t.Errorf("decay rate = %v", g.DecayRate)
	}
}
