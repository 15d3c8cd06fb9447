package engine

import "slices"

// Link is a directed, weighted edge. There is at most one link per ordered
// (Source, Target) pair.
type Link struct {
	Source    *Node
	Target    *Node
	Strength  float64
	PermaBond bool
	Feedback  bool

	pos int // index in linkIndex.all
}

// LinkClass buckets a link for display.
type LinkClass int

const (
	LinkWeak LinkClass = iota
	LinkStrongClass
	LinkPerma
)

// Class returns the display bucket for the link given the strong threshold.
func (l *Link) Class(strong float64) LinkClass {
	switch {
	case l.PermaBond:
		return LinkPerma
	case l.Strength >= strong:
		return LinkStrongClass
	default:
		return LinkWeak
	}
}

// Other returns the endpoint that is not n.
func (l *Link) Other(n *Node) *Node {
	if l.Source == n {
		return l.Target
	}
	return l.Source
}

// LinkState is the persisted form of a Link.
type LinkState struct {
	Source    NodeID  `json:"source"`
	Target    NodeID  `json:"target"`
	Strength  float64 `json:"strength"`
	PermaBond bool    `json:"permaBond,omitempty"`
	Feedback  bool    `json:"feedback,omitempty"`
}

// Serialize captures the link with endpoints by ID.
func (l *Link) Serialize() LinkState {
	return LinkState{
		Source:    l.Source.ID,
		Target:    l.Target.ID,
		Strength:  l.Strength,
		PermaBond: l.PermaBond,
		Feedback:  l.Feedback,
	}
}

type pairKey struct {
	src, dst NodeID
}

// linkIndex stores links with O(1) pair lookup and per-node incidence.
type linkIndex struct {
	all      []*Link
	byPair   map[pairKey]*Link
	incident map[NodeID][]*Link
}

func newLinkIndex() *linkIndex {
	return &linkIndex{
		byPair:   make(map[pairKey]*Link),
		incident: make(map[NodeID][]*Link),
	}
}

func (x *linkIndex) len() int {
	return len(x.all)
}

func (x *linkIndex) get(src, dst NodeID) *Link {
	return x.byPair[pairKey{src, dst}]
}

// add inserts l. It reports false, leaving the index unchanged, if the pair
// already has a link or l is a self-link.
func (x *linkIndex) add(l *Link) bool {
	if l.Source == l.Target {
		return false
	}
	key := pairKey{l.Source.ID, l.Target.ID}
	if _, ok := x.byPair[key]; ok {
		return false
	}
	x.byPair[key] = l
	l.pos = len(x.all)
	x.all = append(x.all, l)
	x.incident[l.Source.ID] = append(x.incident[l.Source.ID], l)
	x.incident[l.Target.ID] = append(x.incident[l.Target.ID], l)
	return true
}

func (x *linkIndex) remove(l *Link) {
	key := pairKey{l.Source.ID, l.Target.ID}
	if x.byPair[key] != l {
		return
	}
	delete(x.byPair, key)

	last := len(x.all) - 1
	moved := x.all[last]
	x.all[l.pos] = moved
	moved.pos = l.pos
	x.all[last] = nil
	x.all = x.all[:last]

	x.dropIncident(l.Source.ID, l)
	x.dropIncident(l.Target.ID, l)
}

func (x *linkIndex) dropIncident(id NodeID, l *Link) {
	list := slices.DeleteFunc(x.incident[id], func(o *Link) bool { return o == l })
	if len(list) == 0 {
		delete(x.incident, id)
		return
	}
	x.incident[id] = list
}

// repoint moves l onto new endpoints. The caller guarantees the new pair is
// free and distinct.
func (x *linkIndex) repoint(l *Link, src, dst *Node) {
	x.remove(l)
	l.Source, l.Target = src, dst
	x.add(l)
}

// incidentTo returns a copy of the links touching id.
func (x *linkIndex) incidentTo(id NodeID) []*Link {
	return slices.Clone(x.incident[id])
}

// removeIncident drops every link touching id and returns how many went.
func (x *linkIndex) removeIncident(id NodeID) int {
	links := x.incidentTo(id)
	for _, l := range links {
		x.remove(l)
	}
	return len(links)
}

// strengthOf sums the strength of every link touching id.
func (x *linkIndex) strengthOf(id NodeID) float64 {
	var sum float64
	for _, l := range x.incident[id] {
		sum += l.Strength
	}
	return sum
}

func (x *linkIndex) reset() {
	x.all = nil
	clear(x.byPair)
	clear(x.incident)
}
