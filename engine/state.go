package engine

import (
	"encoding/json"
	"fmt"
	"io"
)

// StateVersion is written into every saved state.
const StateVersion = 1

// State is the persisted snapshot of an engine.
type State struct {
	Version int         `json:"version"`
	Config  ConfigPatch `json:"config"`
	Nodes   []NodeState `json:"nodes"`
	Links   []LinkState `json:"links"`
}

// Save captures the config subset, every node and every link.
func (e *Engine) Save() State {
	st := State{
		Version: StateVersion,
		Config:  e.cfg.Patch(),
		Nodes:   make([]NodeState, 0, len(e.order)),
		Links:   make([]LinkState, 0, e.links.len()),
	}
	for _, id := range e.order {
		st.Nodes = append(st.Nodes, e.nodes[id].Serialize())
	}
	for _, l := range e.links.all {
		st.Links = append(st.Links, l.Serialize())
	}
	return st
}

// Load replaces the graph with st and leaves the engine stopped. Links
// naming unknown nodes are dropped.
func (e *Engine) Load(st State) {
	e.sched.CancelAll()
	e.revertPulse()

	nodes, links := Rebuild(st)
	e.lastNodeID = firstNodeID
	e.SetData(nodes, links)
	// The loaded graph, not the one it replaced, must meet the saved cap.
	e.ApplyConfig(st.Config)
	e.ticks = 0
	if e.state == StateUninitialized && e.runID == "" {
		e.runID = fmt.Sprintf("run-%d", e.now().UnixNano())
	}
	e.state = StateStopped
	e.log.Info("state loaded", "nodes", len(nodes), "links", len(links), "dropped_links", len(st.Links)-len(links))
}

// Rebuild turns a state into live objects, resolving link endpoints and
// dropping links that do not resolve, self-links and repeated pairs.
func Rebuild(st State) ([]*Node, []*Link) {
	nodes := make([]*Node, 0, len(st.Nodes))
	byID := make(map[NodeID]*Node, len(st.Nodes))
	for _, ns := range st.Nodes {
		if _, dup := byID[ns.ID]; dup {
			continue
		}
		n := NodeFromState(ns)
		byID[n.ID] = n
		nodes = append(nodes, n)
	}

	links := make([]*Link, 0, len(st.Links))
	seen := make(map[pairKey]bool, len(st.Links))
	for _, ls := range st.Links {
		src, dst := byID[ls.Source], byID[ls.Target]
		if src == nil || dst == nil || src == dst {
			continue
		}
		key := pairKey{src.ID, dst.ID}
		if seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, &Link{
			Source:    src,
			Target:    dst,
			Strength:  ls.Strength,
			PermaBond: ls.PermaBond,
			Feedback:  ls.Feedback,
		})
	}
	return nodes, links
}

// maxContainDepth bounds descendant walks over a corrupted containment
// cycle.
const maxContainDepth = 64

// Extract returns the subgraph made of ids, their contained descendants and
// the links among them. The result carries no config. Unknown IDs are
// skipped.
func (e *Engine) Extract(ids []NodeID) State {
	keep := make(map[NodeID]bool)
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		n := e.nodes[id]
		if n == nil || keep[id] || depth > maxContainDepth {
			return
		}
		keep[id] = true
		for _, child := range n.ContainedNodes {
			visit(child, depth+1)
		}
	}
	for _, id := range ids {
		visit(id, 0)
	}

	st := State{Version: StateVersion}
	for _, id := range e.order {
		if keep[id] {
			st.Nodes = append(st.Nodes, e.nodes[id].Serialize())
		}
	}
	for _, l := range e.links.all {
		if keep[l.Source.ID] && keep[l.Target.ID] {
			st.Links = append(st.Links, l.Serialize())
		}
	}
	return st
}

// Graft inserts a copy of chunk under fresh IDs, shifted so the centroid of
// its live nodes lands on (x, y). Links and containment entries that do not
// resolve inside the chunk are dropped. It returns the new IDs of the
// chunk's live nodes.
func (e *Engine) Graft(chunk State, x, y float64) ([]NodeID, error) {
	if e.state == StateUninitialized {
		return nil, ErrNotInitialized
	}
	nodes, links := Rebuild(chunk)

	remap := make(map[NodeID]NodeID, len(nodes))
	var cx, cy float64
	live := 0
	for _, n := range nodes {
		remap[n.ID] = e.nextID()
		if !n.IsContained {
			cx += n.X
			cy += n.Y
			live++
		}
	}
	if live > 0 {
		cx /= float64(live)
		cy /= float64(live)
	}
	dx, dy := x-cx, y-cy

	var out []NodeID
	for _, n := range nodes {
		n.ID = remap[n.ID]
		kept := n.ContainedNodes[:0]
		for _, child := range n.ContainedNodes {
			if id, ok := remap[child]; ok {
				kept = append(kept, id)
			}
		}
		n.ContainedNodes = kept
		e.geom.Place(n, n.X+dx, n.Y+dy)
		if err := e.InsertNode(n); err != nil {
			return out, err
		}
		e.rec.RecordNodeCreated()
		if !n.IsContained {
			out = append(out, n.ID)
		}
	}
	for _, l := range links {
		e.links.add(l)
	}
	e.log.Info("chunk grafted", "nodes", len(nodes), "links", len(links), "live", len(out))
	return out, nil
}

// WriteState encodes st as indented JSON.
func WriteState(w io.Writer, st State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return nil
}

// ReadState decodes a JSON state.
func ReadState(r io.Reader) (State, error) {
	var st State
	if err := json.NewDecoder(r).Decode(&st); err != nil {
		return State{}, fmt.Errorf("decoding state: %w", err)
	}
	return st, nil
}
