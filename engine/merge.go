package engine

import (
	"math"

	"github.com/pthm-cable/signals/identity"
)

// MergeDenseNode finds the live node with the most strong links to
// same-level targets and, if it has at least NodeGroupThreshold of them,
// folds it and those targets into a new container one level up. Links
// between members are dropped; links to the outside are moved onto the
// container, summing strengths where two would land on the same pair.
func (e *Engine) MergeDenseNode() (*Node, bool) {
	var dense *Node
	var members []*Node
	most := 0
	for _, n := range e.liveNodes() {
		if n.Level >= e.cfg.MaxGroupLevels {
			continue
		}
		var strong []*Node
		for _, l := range e.links.incident[n.ID] {
			if l.Source != n || l.Strength < e.cfg.LinkStrong {
				continue
			}
			if t := l.Target; t.Level == n.Level && !t.IsContained {
				strong = append(strong, t)
			}
		}
		if len(strong) >= e.cfg.NodeGroupThreshold && len(strong) > most {
			dense, most = n, len(strong)
			members = append([]*Node{n}, strong...)
		}
	}
	if dense == nil {
		return nil, false
	}

	container := e.buildContainer(dense, members)
	// The ID is fresh.
	_ = e.InsertNode(container)

	inGroup := make(map[NodeID]bool, len(members))
	for _, m := range members {
		inGroup[m.ID] = true
	}

	for _, m := range members {
		for _, l := range e.links.incidentTo(m.ID) {
			if inGroup[l.Source.ID] && inGroup[l.Target.ID] {
				e.links.remove(l)
				continue
			}
			src, dst := l.Source, l.Target
			if inGroup[src.ID] {
				src = container
			} else {
				dst = container
			}
			if existing := e.links.get(src.ID, dst.ID); existing != nil {
				existing.Strength += l.Strength
				existing.PermaBond = existing.PermaBond || l.PermaBond
				existing.Feedback = existing.Feedback || l.Feedback
				e.links.remove(l)
				continue
			}
			e.links.repoint(l, src, dst)
		}
		m.IsContained = true
	}

	e.rec.RecordMerge(container.Level, len(members))
	e.log.Info("merge",
		"container", container.ID,
		"level", container.Level,
		"members", len(members),
	)
	return container, true
}

// buildContainer creates the container for members, centred on dense.
func (e *Engine) buildContainer(dense *Node, members []*Node) *Node {
	colors := make([]identity.RGBA, 0, len(members))
	ids := make([]NodeID, 0, len(members))
	var area, health float64
	for _, m := range members {
		colors = append(colors, m.Color.RGBA())
		ids = append(ids, m.ID)
		area += m.Radius * m.Radius
		health += m.BaseHealth
	}

	id := identity.FromColor(identity.BlendColors(colors).RGB())
	c := &Node{
		ID:             e.nextID(),
		Radius:         math.Sqrt(area),
		Identity:       id,
		Color:          id.Color(),
		Health:         health,
		BaseHealth:     health,
		Level:          dense.Level + 1,
		ContainedNodes: ids,
	}
	e.geom.Place(c, dense.X, dense.Y)
	return c
}

// DownLevelNode releases the children of container c at its position and
// meshes them together with links of strength LinkStrong/4. The container
// itself is left for the caller to delete. It returns how many children
// were released.
func (e *Engine) DownLevelNode(c *Node) int {
	var released []*Node
	for _, id := range c.ContainedNodes {
		child := e.nodes[id]
		if child == nil || !child.IsContained {
			continue
		}
		e.geom.Place(child, c.X, c.Y)
		released = append(released, child)
	}

	strength := e.cfg.LinkStrong / 4
	for _, a := range released {
		for _, b := range released {
			if a == b {
				continue
			}
			if l := e.links.get(a.ID, b.ID); l != nil {
				l.Strength = math.Max(l.Strength, strength)
				continue
			}
			e.links.add(&Link{Source: a, Target: b, Strength: strength})
		}
	}
	for _, child := range released {
		child.IsContained = false
	}

	e.rec.RecordDownLevel(len(released))
	return len(released)
}

// SetMaxGroupLevels changes the merge cap and dissolves every live
// container above it, repeating until none is left, so released children
// that are themselves over the cap go too.
func (e *Engine) SetMaxGroupLevels(n int) {
	n = max(n, 1)
	e.cfg.MaxGroupLevels = n

	for {
		var over []*Node
		for _, node := range e.liveNodes() {
			if node.Level > n && node.Level > 1 {
				over = append(over, node)
			}
		}
		if len(over) == 0 {
			return
		}
		for _, c := range over {
			e.links.removeIncident(c.ID)
			e.DownLevelNode(c)
			e.deleteNode(c)
		}
		e.log.Info("group levels lowered", "max", n, "dissolved", len(over))
	}
}
