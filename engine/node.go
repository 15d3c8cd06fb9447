package engine

import (
	"math"
	"strconv"

	"github.com/pthm-cable/signals/identity"
)

// NodeID identifies a node. IDs are handed out in increasing order.
type NodeID uint64

func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Node is a graph vertex. Containers (Level > 1) hold the IDs of the nodes
// they absorbed; absorbed nodes are IsContained and take no part in the
// simulation until released.
type Node struct {
	ID             NodeID
	X, Y           float64
	Radius         float64
	Color          identity.RGB
	Identity       *identity.Identity
	Health         float64
	BaseHealth     float64
	Level          int
	ContainedNodes []NodeID
	IsContained    bool
}

// IsContainer reports whether the node holds other nodes.
func (n *Node) IsContainer() bool {
	return len(n.ContainedNodes) > 0
}

// Live reports whether the node is visible to the simulation.
func (n *Node) Live() bool {
	return !n.IsContained
}

// CountSignals returns how many signals the node emits per emission: 1 for
// a leaf, otherwise the number of leaves beneath it. Children that lookup
// cannot resolve contribute nothing.
func (n *Node) CountSignals(lookup func(NodeID) *Node) int {
	return n.countSignals(lookup, 0)
}

func (n *Node) countSignals(lookup func(NodeID) *Node, depth int) int {
	if len(n.ContainedNodes) == 0 {
		return 1
	}
	// Containment is a tree no deeper than the level cap; this bounds a
	// corrupted cycle.
	if depth > maxContainDepth {
		return 0
	}
	count := 0
	for _, id := range n.ContainedNodes {
		if child := lookup(id); child != nil {
			count += child.countSignals(lookup, depth+1)
		}
	}
	return count
}

// heal adds amount, capped at BaseHealth.
func (n *Node) heal(amount float64) {
	n.Health = math.Min(n.BaseHealth, n.Health+amount)
}

// drain subtracts amount, floored at 0.
func (n *Node) drain(amount float64) {
	n.Health = math.Max(0, n.Health-amount)
}

// NodeState is the persisted form of a Node.
type NodeState struct {
	ID             NodeID             `json:"id"`
	X              float64            `json:"x"`
	Y              float64            `json:"y"`
	Radius         float64            `json:"radius"`
	Color          identity.RGB       `json:"color"`
	Identity       *identity.Identity `json:"identity"`
	Health         float64            `json:"health"`
	BaseHealth     float64            `json:"baseHealth"`
	Level          int                `json:"level"`
	ContainedNodes []NodeID           `json:"containedNodes"`
	IsContained    bool               `json:"isContained"`
}

// Serialize captures every data field of the node.
func (n *Node) Serialize() NodeState {
	return NodeState{
		ID:             n.ID,
		X:              n.X,
		Y:              n.Y,
		Radius:         n.Radius,
		Color:          n.Color,
		Identity:       n.Identity.Clone(),
		Health:         n.Health,
		BaseHealth:     n.BaseHealth,
		Level:          n.Level,
		ContainedNodes: append([]NodeID{}, n.ContainedNodes...),
		IsContained:    n.IsContained,
	}
}

// NodeFromState rebuilds a node. Missing identities are derived from the
// stored colour; the colour is then recomputed from the identity.
func NodeFromState(s NodeState) *Node {
	id := s.Identity
	if id == nil {
		id = identity.FromColor(s.Color)
	} else {
		id = id.Clone()
	}
	n := &Node{
		ID:             s.ID,
		X:              s.X,
		Y:              s.Y,
		Radius:         s.Radius,
		Color:          id.Color(),
		Identity:       id,
		Health:         s.Health,
		BaseHealth:     s.BaseHealth,
		Level:          max(s.Level, 1),
		ContainedNodes: append([]NodeID{}, s.ContainedNodes...),
		IsContained:    s.IsContained,
	}
	n.Health = math.Max(0, math.Min(n.BaseHealth, n.Health))
	return n
}
