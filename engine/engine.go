// Package engine runs the signal/link graph simulation: nodes emit signals
// that reshape each other's identities, hits grow links, dense clusters
// merge into container nodes, and links decay back out.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/pthm-cable/signals/identity"
)

// RunState is the lifecycle state of an engine.
type RunState int

const (
	StateUninitialized RunState = iota
	StateStopped
	StateRunning
)

func (s RunState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return "uninitialized"
	}
}

// Engine owns the graph. It is not safe for concurrent use; hosts serialise
// access onto one goroutine.
type Engine struct {
	cfg   Config
	geom  Geometry
	rng   *rand.Rand
	log   *slog.Logger
	now   func() time.Time
	rec   Recorder
	timer PhaseTimer

	state      RunState
	runID      string
	lastNodeID NodeID
	ticks      uint64

	nodes map[NodeID]*Node
	order []NodeID
	links *linkIndex
	emits []*Signal

	sched         *Scheduler
	pulseTask     *Task
	pulseBaseline float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithGeometry replaces the planar geometry.
func WithGeometry(g Geometry) Option {
	return func(e *Engine) { e.geom = g }
}

// WithRand sets the random source.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock sets the time source used for emit ageing and pulses.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRecorder receives simulation events.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.rec = r }
}

// WithPhaseTimer times the tick phases.
func WithPhaseTimer(t PhaseTimer) Option {
	return func(e *Engine) { e.timer = t }
}

// WithRunID sets the ID assigned on Init. Without it the run ID is derived
// from the clock.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// firstNodeID is the value of lastNodeID on a fresh engine.
const firstNodeID NodeID = 100

// New returns an uninitialized engine.
func New(cfg Config, opts ...Option) *Engine {
	cfg.Clamp()
	e := &Engine{
		cfg:        cfg,
		geom:       Planar{},
		log:        slog.Default(),
		now:        time.Now,
		rec:        nopRecorder{},
		timer:      nopTimer{},
		lastNodeID: firstNodeID,
		nodes:      make(map[NodeID]*Node),
		links:      newLinkIndex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(e.now().UnixNano()))
	}
	e.sched = NewScheduler(e.now)
	return e
}

// Init seeds NumNodes fresh nodes and moves to Stopped, or Running when
// start is set. Re-initializing an engine keeps its graph.
func (e *Engine) Init(start bool) {
	if e.state == StateUninitialized {
		if e.runID == "" {
			e.runID = fmt.Sprintf("run-%d", e.now().UnixNano())
		}
		for i := 0; i < e.cfg.NumNodes; i++ {
			e.AddNode(nil, nil)
		}
		e.log.Info("engine initialized", "run_id", e.runID, "nodes", e.cfg.NumNodes)
	}
	e.state = StateStopped
	if start {
		e.state = StateRunning
	}
}

// Start resumes ticking, initializing first if needed.
func (e *Engine) Start() {
	if e.state == StateUninitialized {
		e.Init(true)
		return
	}
	e.state = StateRunning
}

// Stop pauses ticking.
func (e *Engine) Stop() error {
	if e.state == StateUninitialized {
		return ErrNotInitialized
	}
	e.state = StateStopped
	return nil
}

// Reset drops the graph, cancels pending pulses and returns to
// Uninitialized. The run ID is cleared so the next Init starts a new run.
func (e *Engine) Reset() {
	e.sched.CancelAll()
	e.revertPulse()
	e.nodes = make(map[NodeID]*Node)
	e.order = nil
	e.links.reset()
	e.emits = nil
	e.lastNodeID = firstNodeID
	e.ticks = 0
	e.runID = ""
	e.state = StateUninitialized
	e.log.Info("engine reset")
}

// State returns the lifecycle state.
func (e *Engine) State() RunState { return e.state }

// RunID returns the ID of the current run.
func (e *Engine) RunID() string { return e.runID }

// Ticks returns the number of completed ticks.
func (e *Engine) Ticks() uint64 { return e.ticks }

// Config returns a copy of the tunables.
func (e *Engine) Config() Config { return e.cfg }

// Geometry returns the active geometry.
func (e *Engine) Geometry() Geometry { return e.geom }

// Rand exposes the engine's random source to hosts that must stay on the
// same sequence.
func (e *Engine) Rand() *rand.Rand { return e.rng }

// ApplyConfig updates the set fields of p. Lowering MAX_GROUP_LEVELS goes
// through SetMaxGroupLevels so over-cap containers are released. An explicit
// DECAY_RATE ends any active pulse so its revert cannot overwrite it.
func (e *Engine) ApplyConfig(p ConfigPatch) {
	if p.DecayRate != nil && e.pulseTask != nil {
		e.pulseTask.Cancel()
		e.pulseTask = nil
	}
	levels := p.MaxGroupLevels
	p.MaxGroupLevels = nil
	e.cfg.Apply(p)
	if levels != nil {
		e.SetMaxGroupLevels(*levels)
	}
}

// Tick runs one simulation step if the engine is running. Due scheduled
// tasks fire first, even while stopped.
func (e *Engine) Tick() error {
	e.sched.RunDue()
	if e.state != StateRunning {
		return nil
	}
	return e.Step()
}

// Step runs one simulation step regardless of the run state. A panic inside
// the step is recovered, logged and returned; the graph stays usable.
func (e *Engine) Step() (err error) {
	if e.state == StateUninitialized {
		return ErrNotInitialized
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTickPanic, r)
			e.rec.RecordTickError()
			e.log.Error("tick failed", "tick", e.ticks, "error", err)
		}
	}()

	e.timer.StartPhase(PhaseEmission)
	e.EmitSignals()

	if e.cfg.LinkingEnabled {
		e.timer.StartPhase(PhaseDecay)
		e.DecayLinks()

		e.timer.StartPhase(PhaseMerge)
		if e.rng.Float64() < e.cfg.MergeChance {
			e.MergeDenseNode()
		}

		e.timer.StartPhase(PhaseRecalibrate)
		if e.rng.Float64() < e.cfg.RecalibrateChance && !e.PulseActive() {
			e.UpdateDecayRate()
		}
	}

	e.ticks++
	return nil
}

// Node returns the node with id, contained or not.
func (e *Engine) Node(id NodeID) *Node {
	return e.nodes[id]
}

// Nodes returns every node, contained ones included, in insertion order.
func (e *Engine) Nodes() []*Node {
	out := make([]*Node, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.nodes[id])
	}
	return out
}

// liveNodes returns the nodes taking part in the simulation.
func (e *Engine) liveNodes() []*Node {
	out := make([]*Node, 0, len(e.order))
	for _, id := range e.order {
		if n := e.nodes[id]; !n.IsContained {
			out = append(out, n)
		}
	}
	return out
}

// LiveCount returns the number of non-contained nodes.
func (e *Engine) LiveCount() int {
	n := 0
	for _, node := range e.nodes {
		if !node.IsContained {
			n++
		}
	}
	return n
}

// Links returns every link.
func (e *Engine) Links() []*Link {
	return slices.Clone(e.links.all)
}

// Link returns the link from src to dst, or nil.
func (e *Engine) Link(src, dst NodeID) *Link {
	return e.links.get(src, dst)
}

// LinksOf returns the links touching id.
func (e *Engine) LinksOf(id NodeID) []*Link {
	return e.links.incidentTo(id)
}

// Emits returns the recorded signals still fading.
func (e *Engine) Emits() []*Signal {
	return slices.Clone(e.emits)
}

// Data is the visible graph.
type Data struct {
	Nodes []*Node
	Links []*Link
}

// GetData returns the non-contained nodes and all links.
func (e *Engine) GetData() Data {
	return Data{Nodes: e.liveNodes(), Links: e.Links()}
}

// SetData replaces the graph. Links whose endpoints are not among nodes,
// self-links and repeated pairs are dropped.
func (e *Engine) SetData(nodes []*Node, links []*Link) {
	e.nodes = make(map[NodeID]*Node, len(nodes))
	e.order = e.order[:0]
	e.links.reset()
	e.emits = nil
	for _, n := range nodes {
		if _, dup := e.nodes[n.ID]; dup {
			continue
		}
		e.nodes[n.ID] = n
		e.order = append(e.order, n.ID)
		if n.ID > e.lastNodeID {
			e.lastNodeID = n.ID
		}
	}
	for _, l := range links {
		if l.Source == nil || l.Target == nil {
			continue
		}
		if e.nodes[l.Source.ID] != l.Source || e.nodes[l.Target.ID] != l.Target {
			continue
		}
		e.links.add(l)
	}
}

// nextID hands out a fresh node ID.
func (e *Engine) nextID() NodeID {
	e.lastNodeID++
	return e.lastNodeID
}

// ReserveID returns a fresh ID without creating a node.
func (e *Engine) ReserveID() NodeID {
	return e.nextID()
}

// CreateNode builds a leaf node without inserting it. A nil id takes the
// next free ID; nil coordinates pick a random spot in the viewport.
func (e *Engine) CreateNode(id *NodeID, x, y *float64) *Node {
	nid := NodeID(0)
	if id != nil {
		nid = *id
		if nid > e.lastNodeID {
			e.lastNodeID = nid
		}
	} else {
		nid = e.nextID()
	}
	n := &Node{
		ID:         nid,
		Radius:     e.cfg.BaseNodeRadius,
		Identity:   identity.New(e.rng),
		Health:     e.cfg.NodeHealth,
		BaseHealth: e.cfg.NodeHealth,
		Level:      1,
	}
	n.Color = n.Identity.Color()

	var px, py float64
	if s, ok := e.geom.(Sampler); ok {
		px, py = s.Sample(e.rng, e.cfg.ViewportWidth, e.cfg.ViewportHeight)
	} else {
		px = (e.rng.Float64() - 0.5) * e.cfg.ViewportWidth
		py = (e.rng.Float64() - 0.5) * e.cfg.ViewportHeight
	}
	if x != nil {
		px = *x
	}
	if y != nil {
		py = *y
	}
	e.geom.Place(n, px, py)
	return n
}

// InsertNode adds an existing node to the graph.
func (e *Engine) InsertNode(n *Node) error {
	if _, ok := e.nodes[n.ID]; ok {
		return fmt.Errorf("insert %d: %w", n.ID, ErrNodeExists)
	}
	e.nodes[n.ID] = n
	e.order = append(e.order, n.ID)
	if n.ID > e.lastNodeID {
		e.lastNodeID = n.ID
	}
	return nil
}

// AddNode creates and inserts a leaf node.
func (e *Engine) AddNode(x, y *float64) *Node {
	n := e.CreateNode(nil, x, y)
	// A fresh ID cannot collide.
	_ = e.InsertNode(n)
	e.rec.RecordNodeCreated()
	return n
}

// deleteNode removes n and every link touching it.
func (e *Engine) deleteNode(n *Node) {
	e.links.removeIncident(n.ID)
	delete(e.nodes, n.ID)
	if i := slices.Index(e.order, n.ID); i >= 0 {
		e.order = slices.Delete(e.order, i, i+1)
	}
}

// lookup resolves IDs for CountSignals.
func (e *Engine) lookup(id NodeID) *Node {
	return e.nodes[id]
}
