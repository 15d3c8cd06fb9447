package engine

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/pthm-cable/signals/identity"
)

var stateOpts = cmpopts.IgnoreUnexported(identity.Identity{})

func populated(t *testing.T) *Engine {
	t.Helper()
	cfg := testConfig()
	cfg.EmitRate = 0.5
	cfg.LinkStrong = 300
	cfg.MergeChance = 0.5
	e, _ := newTestEngine(t, cfg, WithGeometry(alwaysHit{}))
	for i := 0; i < 10; i++ {
		addAt(e, float64(i%5)*70, float64(i/5)*70)
	}
	e.Start()
	for i := 0; i < 200; i++ {
		if err := e.Tick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	return e
}

func TestSaveLoadRoundtrip(t *testing.T) {
	src := populated(t)
	saved := src.Save()
	if len(saved.Links) == 0 {
		t.Fatal("fixture produced no links")
	}

	var buf bytes.Buffer
	if err := WriteState(&buf, saved); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	decoded, err := ReadState(&buf)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}

	dst, _ := newTestEngine(t, testConfig())
	dst.Load(decoded)

	if dst.State() != StateStopped {
		t.Errorf("state after load = %v, want stopped", dst.State())
	}
	if diff := cmp.Diff(saved, dst.Save(), stateOpts); diff != "" {
		t.Errorf("roundtrip mismatch (-saved +reloaded):\n%s", diff)
	}
	assertLinkIndex(t, dst)

	next := dst.AddNode(nil, nil)
	for _, n := range saved.Nodes {
		if n.ID >= next.ID {
			t.Errorf("new node id %d not above loaded id %d", next.ID, n.ID)
		}
	}
}

func TestLoadDropsDanglingLinks(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	a := e.CreateNode(nil, nil, nil).Serialize()
	b := e.CreateNode(nil, nil, nil).Serialize()

	e.Load(State{
		Nodes: []NodeState{a, b},
		Links: []LinkState{
			{Source: a.ID, Target: b.ID, Strength: 12},
			{Source: a.ID, Target: 9999, Strength: 5},
			{Source: 9999, Target: b.ID, Strength: 5},
		},
	})

	links := e.Links()
	if len(links) != 1 {
		t.Fatalf("links = %d, want 1", len(links))
	}
	if links[0].Source.ID != a.ID || links[0].Strength != 12 {
		t.Errorf("kept link = %+v", links[0].Serialize())
	}
}

func TestLoadAppliesConfig(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	rate := 0.07
	off := false
	e.Load(State{Config: ConfigPatch{EmitRate: &rate, LinksVisible: &off}})

	cfg := e.Config()
	if cfg.EmitRate != 0.07 {
		t.Errorf("emit rate = %v", cfg.EmitRate)
	}
	if cfg.LinksWeakVisible || cfg.LinksStrongVisible {
		t.Error("legacy LINKS_VISIBLE not applied")
	}
}

type downLevelCounter struct {
	nopRecorder
	downLevels int
}

func (r *downLevelCounter) RecordDownLevel(int) { r.downLevels++ }

func TestLoadCapsLoadedGraph(t *testing.T) {
	src, _ := newTestEngine(t, testConfig())
	a := addAt(src, 0, 0)
	b := addAt(src, 1, 0)
	contain(t, src, 2, a, b)
	saved := src.Save()
	levels := 1
	saved.Config.MaxGroupLevels = &levels

	rec := &downLevelCounter{}
	dst, _ := newTestEngine(t, testConfig(), WithRecorder(rec))
	x := addAt(dst, 0, 0)
	y := addAt(dst, 1, 0)
	contain(t, dst, 2, x, y)

	dst.Load(saved)

	if rec.downLevels != 1 {
		t.Errorf("down-levels = %d, want 1 for the loaded container only", rec.downLevels)
	}
	for _, n := range dst.Nodes() {
		if n.Level > 1 || n.IsContained {
			t.Errorf("node %d level %d contained=%v after load", n.ID, n.Level, n.IsContained)
		}
	}
	if dst.Node(a.ID) == nil || dst.Node(b.ID) == nil {
		t.Error("loaded children missing")
	}
	assertLinkIndex(t, dst)
}

func TestNodeSerializeRoundtrip(t *testing.T) {
	n := &Node{
		ID:             7,
		X:              1.5,
		Y:              -2,
		Radius:         42,
		Identity:       identity.FromColor(identity.RGB{R: 1, G: 2, B: 3}),
		Health:         10,
		BaseHealth:     400,
		Level:          2,
		ContainedNodes: []NodeID{1, 2},
		IsContained:    true,
	}
	n.Color = n.Identity.Color()

	back := NodeFromState(n.Serialize())
	if diff := cmp.Diff(n, back, stateOpts, cmpopts.IgnoreFields(Node{}, "Identity")); diff != "" {
		t.Errorf("node mismatch (-want +got):\n%s", diff)
	}
	if back.Identity.Color() != n.Identity.Color() {
		t.Errorf("identity colour %v, want %v", back.Identity.Color(), n.Identity.Color())
	}
	if back.Identity == n.Identity {
		t.Error("identity shared between copies")
	}
}

func TestExtractIncludesDescendants(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	a, b, c := addAt(e, 0, 0), addAt(e, 10, 0), addAt(e, 20, 0)
	outside := addAt(e, 500, 500)
	box := contain(t, e, 2, b, c)
	mustLink(t, e, a, box, 50)
	mustLink(t, e, b, c, 30)
	mustLink(t, e, a, outside, 70)

	st := e.Extract([]NodeID{a.ID, box.ID, 9999})

	var ids []NodeID
	for _, n := range st.Nodes {
		ids = append(ids, n.ID)
	}
	if diff := cmp.Diff([]NodeID{a.ID, b.ID, c.ID, box.ID}, ids); diff != "" {
		t.Errorf("extracted nodes (-want +got):\n%s", diff)
	}
	if len(st.Links) != 2 {
		t.Errorf("extracted %d links, want 2 (outside link dropped)", len(st.Links))
	}
	if st.Config.NumNodes != nil {
		t.Error("chunk carries config")
	}
}

func TestGraftRemapsAndRecentres(t *testing.T) {
	src, _ := newTestEngine(t, testConfig())
	a, b, c := addAt(src, 0, 0), addAt(src, 100, 0), addAt(src, 50, 50)
	box := contain(t, src, 2, c)
	box.X, box.Y = 50, 30
	mustLink(t, src, a, b, 40)
	mustLink(t, src, b, box, 60)
	chunk := src.Extract([]NodeID{a.ID, b.ID, box.ID})
	chunk.Links = append(chunk.Links, LinkState{Source: a.ID, Target: 424242, Strength: 1})

	dst, _ := newTestEngine(t, testConfig())
	existing := addAt(dst, 0, 0)
	ids, err := dst.Graft(chunk, 1000, -1000)
	if err != nil {
		t.Fatalf("Graft: %v", err)
	}
	assertLinkIndex(t, dst)

	if len(ids) != 3 {
		t.Fatalf("grafted live ids = %v, want 3", ids)
	}
	var sx, sy float64
	for _, id := range ids {
		if id <= existing.ID {
			t.Errorf("grafted id %d not above existing %d", id, existing.ID)
		}
		n := dst.Node(id)
		sx += n.X
		sy += n.Y
	}
	if math.Abs(sx/3-1000) > 1e-9 || math.Abs(sy/3+1000) > 1e-9 {
		t.Errorf("centroid = (%v, %v), want (1000, -1000)", sx/3, sy/3)
	}
	if got := len(dst.Links()); got != 2 {
		t.Errorf("links = %d, want 2 (dangling dropped)", got)
	}

	var container *Node
	for _, id := range ids {
		if n := dst.Node(id); n.IsContainer() {
			container = n
		}
	}
	if container == nil {
		t.Fatal("container lost")
	}
	child := dst.Node(container.ContainedNodes[0])
	if child == nil || !child.IsContained {
		t.Fatalf("contained child %v not remapped", container.ContainedNodes)
	}
	if dst.LiveCount() != 4 {
		t.Errorf("live count = %d, want 4", dst.LiveCount())
	}
}

func TestGraftNeedsInit(t *testing.T) {
	e := New(testConfig())
	if _, err := e.Graft(State{}, 0, 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Graft error = %v, want ErrNotInitialized", err)
	}
}
