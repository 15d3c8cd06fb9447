package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/host"
)

// Inspector tracks the selected nodes and renders details of the most
// recently picked one.
type Inspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
	selected []engine.NodeID
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32) *Inspector {
	return &Inspector{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x, ins.y = x, y
}

// Pick returns the node under the view point (vx, vy). On the sphere only
// the visible hemisphere can be picked; nearer nodes win.
func Pick(nodes []host.NodeView, vx, vy float64) (engine.NodeID, bool) {
	var best engine.NodeID
	bestDepth := 0.0
	found := false
	for _, n := range nodes {
		if n.Depth <= 0 {
			continue
		}
		dx, dy := n.X-vx, n.Y-vy
		if dx*dx+dy*dy > n.Radius*n.Radius {
			continue
		}
		if !found || n.Depth > bestDepth {
			best, bestDepth, found = n.ID, n.Depth, true
		}
	}
	return best, found
}

// Select replaces the selection with id, or adds it when extend is set.
// Selecting an already selected node with extend removes it.
func (ins *Inspector) Select(id engine.NodeID, extend bool) {
	if !extend {
		ins.selected = append(ins.selected[:0], id)
		return
	}
	for i, s := range ins.selected {
		if s == id {
			ins.selected = append(ins.selected[:i], ins.selected[i+1:]...)
			return
		}
	}
	ins.selected = append(ins.selected, id)
}

// Clear drops the selection.
func (ins *Inspector) Clear() {
	ins.selected = ins.selected[:0]
}

// Selected returns a copy of the selected IDs in pick order.
func (ins *Inspector) Selected() []engine.NodeID {
	return append([]engine.NodeID(nil), ins.selected...)
}

// IsSelected reports whether id is selected.
func (ins *Inspector) IsSelected(id engine.NodeID) bool {
	for _, s := range ins.selected {
		if s == id {
			return true
		}
	}
	return false
}

// Prune drops selected nodes that are no longer live.
func (ins *Inspector) Prune(nodes []host.NodeView) {
	live := make(map[engine.NodeID]bool, len(nodes))
	for _, n := range nodes {
		live[n.ID] = true
	}
	kept := ins.selected[:0]
	for _, id := range ins.selected {
		if live[id] {
			kept = append(kept, id)
		}
	}
	ins.selected = kept
}

// Draw renders the panel for the last selected node, if any.
func (ins *Inspector) Draw(snap *host.Snapshot) {
	if len(ins.selected) == 0 {
		return
	}
	id := ins.selected[len(ins.selected)-1]
	var node *host.NodeView
	for i := range snap.Nodes {
		if snap.Nodes[i].ID == id {
			node = &snap.Nodes[i]
			break
		}
	}
	if node == nil {
		return
	}

	weak, strong, perma := 0, 0, 0
	for _, l := range snap.Links {
		if l.From != node.ID && l.To != node.ID {
			continue
		}
		switch l.Class {
		case engine.LinkPerma:
			perma++
		case engine.LinkStrongClass:
			strong++
		default:
			weak++
		}
	}

	r := ins.renderer
	padding := r.Theme.Padding
	height := r.Theme.LineHeight*8 + padding*2 + 4
	r.DrawPanel(ins.x, ins.y, ins.width, height)

	x, y := ins.x+padding, ins.y+padding
	y = r.DrawSectionHeader(x, y, fmt.Sprintf("Node %d", node.ID))
	y = r.DrawSwatch(x, y, "Identity", rl.Color{R: node.Color.R, G: node.Color.G, B: node.Color.B, A: 255})
	y = r.DrawHealthBar(x, y, "Health", node.Health, node.BaseHealth, ins.width-padding*2)
	y = r.DrawLabelValue(x, y, "Level", fmt.Sprintf("%d", node.Level))
	y = r.DrawLabelValue(x, y, "Contains", fmt.Sprintf("%d", node.Contained))
	y = r.DrawLabelValue(x, y, "Radius", fmt.Sprintf("%.1f", node.Radius))
	y = r.DrawLabelValue(x, y, "Links", fmt.Sprintf("%d weak %d strong %d perma", weak, strong, perma))
	r.DrawLabelValue(x, y, "Selected", fmt.Sprintf("%d", len(ins.selected)))
}
