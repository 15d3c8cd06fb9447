package engine

import (
	"math"
	"testing"
)

type endpointKey struct {
	other    NodeID
	outgoing bool
}

// externalLinks sums, per outside node and direction, the strength of links
// between group and the rest of the graph.
func externalLinks(e *Engine, group map[NodeID]bool) map[endpointKey]float64 {
	out := make(map[endpointKey]float64)
	for _, l := range e.Links() {
		src, dst := group[l.Source.ID], group[l.Target.ID]
		switch {
		case src && !dst:
			out[endpointKey{l.Target.ID, true}] += l.Strength
		case dst && !src:
			out[endpointKey{l.Source.ID, false}] += l.Strength
		}
	}
	return out
}

func TestMergeDenseNode(t *testing.T) {
	cfg := testConfig()
	e, _ := newTestEngine(t, cfg)
	strong := cfg.LinkStrong

	d := addAt(e, 10, 20)
	m1 := addAt(e, 100, 0)
	m2 := addAt(e, 200, 0)
	m3 := addAt(e, 300, 0)
	x := addAt(e, -100, 0)
	y := addAt(e, -200, 0)

	mustLink(t, e, d, m1, strong)
	mustLink(t, e, d, m2, strong*2)
	mustLink(t, e, d, m3, strong)
	mustLink(t, e, m1, m2, 700)
	mustLink(t, e, x, d, 50)
	mustLink(t, e, x, m1, 30)
	mustLink(t, e, d, y, 20)
	mustLink(t, e, m2, y, 40)
	mustLink(t, e, y, m3, 5)

	group := map[NodeID]bool{d.ID: true, m1.ID: true, m2.ID: true, m3.ID: true}
	before := externalLinks(e, group)

	c, ok := e.MergeDenseNode()
	if !ok {
		t.Fatal("expected a merge")
	}

	if c.Level != 2 {
		t.Errorf("container level = %d, want 2", c.Level)
	}
	if c.X != 10 || c.Y != 20 {
		t.Errorf("container at (%v, %v), want dense node position", c.X, c.Y)
	}
	if want := math.Sqrt(4 * cfg.BaseNodeRadius * cfg.BaseNodeRadius); math.Abs(c.Radius-want) > 1e-9 {
		t.Errorf("radius = %v, want %v", c.Radius, want)
	}
	if c.BaseHealth != 4*cfg.NodeHealth || c.Health != c.BaseHealth {
		t.Errorf("health = %v/%v, want %v", c.Health, c.BaseHealth, 4*cfg.NodeHealth)
	}
	if len(c.ContainedNodes) != 4 {
		t.Errorf("contained = %v", c.ContainedNodes)
	}
	for id := range group {
		if !e.Node(id).IsContained {
			t.Errorf("member %d not contained", id)
		}
		if links := e.LinksOf(id); len(links) != 0 {
			t.Errorf("member %d still has %d links", id, len(links))
		}
	}

	after := externalLinks(e, map[NodeID]bool{c.ID: true})
	if len(after) != len(before) {
		t.Fatalf("external endpoints: before %v, after %v", before, after)
	}
	for k, v := range before {
		if after[k] != v {
			t.Errorf("external %+v: strength %v, want %v", k, after[k], v)
		}
	}
	if l := e.Link(x.ID, c.ID); l == nil || l.Strength != 80 {
		t.Errorf("x->container = %+v, want strength 80", l)
	}
	if l := e.Link(c.ID, y.ID); l == nil || l.Strength != 60 {
		t.Errorf("container->y = %+v, want strength 60", l)
	}
	if e.LiveCount() != 3 {
		t.Errorf("live count = %d, want 3", e.LiveCount())
	}
	if c.CountSignals(e.Node) != 4 {
		t.Errorf("container signals = %d, want 4", c.CountSignals(e.Node))
	}
	assertLinkIndex(t, e)
}

func TestMergeNeedsThreshold(t *testing.T) {
	cfg := testConfig()
	e, _ := newTestEngine(t, cfg)
	d := addAt(e, 0, 0)
	mustLink(t, e, d, addAt(e, 1, 0), cfg.LinkStrong)
	mustLink(t, e, d, addAt(e, 2, 0), cfg.LinkStrong)
	mustLink(t, e, d, addAt(e, 3, 0), cfg.LinkStrong-1)

	if _, ok := e.MergeDenseNode(); ok {
		t.Error("merged with too few strong links")
	}
}

func TestMergeSkipsOtherLevels(t *testing.T) {
	cfg := testConfig()
	e, _ := newTestEngine(t, cfg)
	d := addAt(e, 0, 0)
	for i := 0; i < 3; i++ {
		n := addAt(e, float64(i), 0)
		n.Level = 2
		mustLink(t, e, d, n, cfg.LinkStrong)
	}
	if _, ok := e.MergeDenseNode(); ok {
		t.Error("merged across levels")
	}
}

func TestMergePicksDensest(t *testing.T) {
	cfg := testConfig()
	e, _ := newTestEngine(t, cfg)
	sparse := addAt(e, 0, 0)
	for i := 0; i < 3; i++ {
		mustLink(t, e, sparse, addAt(e, float64(i), 0), cfg.LinkStrong)
	}
	dense := addAt(e, 0, 0)
	for i := 0; i < 4; i++ {
		mustLink(t, e, dense, addAt(e, float64(i), 0), cfg.LinkStrong)
	}

	c, ok := e.MergeDenseNode()
	if !ok {
		t.Fatal("expected a merge")
	}
	if c.ContainedNodes[0] != dense.ID || len(c.ContainedNodes) != 5 {
		t.Errorf("contained = %v, want dense node and its 4 targets", c.ContainedNodes)
	}
	if sparse.IsContained {
		t.Error("sparse node merged")
	}
}

func TestMergeRespectsLevelCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxGroupLevels = 1
	e, _ := newTestEngine(t, cfg)
	d := addAt(e, 0, 0)
	for i := 0; i < 3; i++ {
		mustLink(t, e, d, addAt(e, float64(i), 0), cfg.LinkStrong)
	}
	if _, ok := e.MergeDenseNode(); ok {
		t.Error("merged at the level cap")
	}
}

func TestDownLevelNode(t *testing.T) {
	cfg := testConfig()
	e, _ := newTestEngine(t, cfg)
	a := addAt(e, 0, 0)
	b := addAt(e, 1, 0)
	c := addAt(e, 2, 0)
	box := contain(t, e, 2, a, b, c)
	box.X, box.Y = 7, 8

	if got := e.DownLevelNode(box); got != 3 {
		t.Fatalf("released %d, want 3", got)
	}
	want := cfg.LinkStrong / 4
	for _, src := range []*Node{a, b, c} {
		if src.IsContained || src.X != 7 || src.Y != 8 {
			t.Errorf("child %d: contained=%v at (%v, %v)", src.ID, src.IsContained, src.X, src.Y)
		}
		for _, dst := range []*Node{a, b, c} {
			if src == dst {
				continue
			}
			if l := e.Link(src.ID, dst.ID); l == nil || l.Strength != want {
				t.Errorf("mesh link %d->%d = %+v, want strength %v", src.ID, dst.ID, l, want)
			}
		}
	}
	assertLinkIndex(t, e)
}

func TestSetMaxGroupLevelsDissolves(t *testing.T) {
	cfg := testConfig()
	e, _ := newTestEngine(t, cfg)
	a := addAt(e, 0, 0)
	b := addAt(e, 1, 0)
	c := addAt(e, 2, 0)
	box := contain(t, e, 2, a, b, c)
	outside := addAt(e, 50, 50)
	mustLink(t, e, box, outside, 300)
	mustLink(t, e, outside, box, 300)

	e.SetMaxGroupLevels(1)

	if e.Config().MaxGroupLevels != 1 {
		t.Errorf("cap = %d", e.Config().MaxGroupLevels)
	}
	if e.Node(box.ID) != nil {
		t.Fatal("container survived a lower cap")
	}
	for _, n := range e.Nodes() {
		if n.Level > 1 || n.IsContained {
			t.Errorf("node %d level %d contained=%v", n.ID, n.Level, n.IsContained)
		}
	}
	if got := len(e.Links()); got != 6 {
		t.Errorf("links = %d, want the 6 mesh links", got)
	}
	for _, l := range e.Links() {
		if l.Strength != cfg.LinkStrong/4 {
			t.Errorf("link %d->%d strength %v", l.Source.ID, l.Target.ID, l.Strength)
		}
	}
	assertLinkIndex(t, e)
}

func TestSetMaxGroupLevelsCascades(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	a := addAt(e, 0, 0)
	b := addAt(e, 1, 0)
	inner := contain(t, e, 2, a, b)
	d := addAt(e, 2, 0)
	contain(t, e, 3, inner, d)

	e.SetMaxGroupLevels(1)

	if got := e.LiveCount(); got != 3 {
		t.Errorf("live = %d, want a, b and d", got)
	}
	for _, n := range e.Nodes() {
		if n.Level > 1 {
			t.Errorf("node %d at level %d survived", n.ID, n.Level)
		}
	}
}

func TestMergeThenStepKeepsIndex(t *testing.T) {
	cfg := testConfig()
	cfg.EmitRate = 1
	cfg.MergeChance = 1
	cfg.LinkStrong = 200
	cfg.LinkPermaBondThreshold = 2000
	e, _ := newTestEngine(t, cfg, WithGeometry(alwaysHit{}))
	for i := 0; i < 12; i++ {
		addAt(e, float64(i%4)*80, float64(i/4)*80)
	}
	e.Start()
	for i := 0; i < 300; i++ {
		if err := e.Tick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	assertLinkIndex(t, e)
	for _, n := range e.Nodes() {
		if n.Level > cfg.MaxGroupLevels {
			t.Errorf("node %d at level %d above cap", n.ID, n.Level)
		}
		if n.IsContained && len(e.LinksOf(n.ID)) > 0 {
			t.Errorf("contained node %d has links", n.ID)
		}
	}
}
