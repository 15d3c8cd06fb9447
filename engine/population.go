package engine

import "sort"

// Connectivity is the total strength of the links touching id.
func (e *Engine) Connectivity(id NodeID) float64 {
	return e.links.strengthOf(id)
}

// RemoveLeastConnectedNodes removes the n live nodes with the lowest
// connectivity, ties broken by age. Containers are only eligible under
// GreedyRemoval, and take their contained descendants with them.
func (e *Engine) RemoveLeastConnectedNodes(n int) []NodeID {
	if n <= 0 {
		return nil
	}

	type candidate struct {
		node     *Node
		strength float64
	}
	var pool []candidate
	for _, node := range e.liveNodes() {
		if node.IsContainer() && !e.cfg.GreedyRemoval {
			continue
		}
		pool = append(pool, candidate{node, e.links.strengthOf(node.ID)})
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].strength < pool[j].strength
	})

	removed := make([]NodeID, 0, min(n, len(pool)))
	for _, c := range pool[:min(n, len(pool))] {
		e.deleteTree(c.node)
		e.rec.RecordNodeRemoved()
		removed = append(removed, c.node.ID)
	}
	return removed
}

// deleteTree deletes n and everything contained beneath it.
func (e *Engine) deleteTree(n *Node) {
	for _, id := range n.ContainedNodes {
		if child := e.nodes[id]; child != nil && child.IsContained {
			e.deleteTree(child)
		}
	}
	e.deleteNode(n)
}
