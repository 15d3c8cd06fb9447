package engine

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// alwaysHit lets every signal reach every other node.
type alwaysHit struct{ Planar }

func (alwaysHit) RayHit(*Signal, *Node) bool { return true }

// neverHit makes every signal miss.
type neverHit struct{ Planar }

func (neverHit) RayHit(*Signal, *Node) bool { return false }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NumNodes = 0
	cfg.MergeChance = 0
	cfg.RecalibrateChance = 0
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	base := []Option{
		WithRand(rand.New(rand.NewSource(42))),
		WithClock(clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRunID("test"),
	}
	e := New(cfg, append(base, opts...)...)
	e.Init(false)
	return e, clock
}

func addAt(e *Engine, x, y float64) *Node {
	return e.AddNode(&x, &y)
}

func mustLink(t *testing.T, e *Engine, a, b *Node, strength float64) *Link {
	t.Helper()
	l := &Link{Source: a, Target: b, Strength: strength}
	if !e.links.add(l) {
		t.Fatalf("link %d->%d already exists", a.ID, b.ID)
	}
	return l
}

// contain folds children into a fresh container at the given level.
func contain(t *testing.T, e *Engine, level int, children ...*Node) *Node {
	t.Helper()
	c := addAt(e, 0, 0)
	c.Level = level
	for _, ch := range children {
		ch.IsContained = true
		c.ContainedNodes = append(c.ContainedNodes, ch.ID)
	}
	return c
}

// assertLinkIndex checks that the pair index and incidence lists agree with
// the link list and that every endpoint is a known node.
func assertLinkIndex(t *testing.T, e *Engine) {
	t.Helper()
	if len(e.links.byPair) != len(e.links.all) {
		t.Fatalf("pair index has %d entries, links %d", len(e.links.byPair), len(e.links.all))
	}
	incident := 0
	for _, list := range e.links.incident {
		incident += len(list)
	}
	if incident != 2*len(e.links.all) {
		t.Fatalf("incidence lists hold %d entries, want %d", incident, 2*len(e.links.all))
	}
	for i, l := range e.links.all {
		if l.pos != i {
			t.Fatalf("link %d->%d at %d records pos %d", l.Source.ID, l.Target.ID, i, l.pos)
		}
		if e.nodes[l.Source.ID] != l.Source || e.nodes[l.Target.ID] != l.Target {
			t.Fatalf("link %d->%d references a missing node", l.Source.ID, l.Target.ID)
		}
		if l.Source == l.Target {
			t.Fatalf("self link on %d", l.Source.ID)
		}
	}
}
