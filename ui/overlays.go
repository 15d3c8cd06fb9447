package ui

import (
	"slices"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID names an optional layer of the view.
type OverlayID string

const (
	OverlayStats     OverlayID = "stats"
	OverlayPerf      OverlayID = "perf"
	OverlayFarSide   OverlayID = "far_side"
	OverlayParticles OverlayID = "particles"
	OverlayInspector OverlayID = "inspector"
)

type overlay struct {
	id    OverlayID
	name  string
	key   int32
	label string
	on    bool
	// turned off when this one turns on
	excludes []OverlayID
}

// Overlays tracks which optional layers are shown, each bound to a key.
type Overlays struct {
	list []overlay
}

// NewOverlays returns the view's overlays in their initial state. Stats and
// perf share the left column, so at most one of them is on.
func NewOverlays() *Overlays {
	return &Overlays{list: []overlay{
		{id: OverlayStats, name: "stats", key: rl.KeyT, label: "T", excludes: []OverlayID{OverlayPerf}},
		{id: OverlayPerf, name: "phases", key: rl.KeyG, label: "G", excludes: []OverlayID{OverlayStats}},
		{id: OverlayFarSide, name: "far side", key: rl.KeyB, label: "B"},
		{id: OverlayParticles, name: "particles", key: rl.KeyK, label: "K", on: true},
		{id: OverlayInspector, name: "inspector", key: rl.KeyI, label: "I", on: true},
	}}
}

func (o *Overlays) find(id OverlayID) *overlay {
	i := slices.IndexFunc(o.list, func(ov overlay) bool { return ov.id == id })
	if i < 0 {
		return nil
	}
	return &o.list[i]
}

// Toggle flips an overlay and reports its new state.
func (o *Overlays) Toggle(id OverlayID) bool {
	ov := o.find(id)
	if ov == nil {
		return false
	}
	ov.on = !ov.on
	if ov.on {
		for _, other := range ov.excludes {
			if x := o.find(other); x != nil {
				x.on = false
			}
		}
	}
	return ov.on
}

// IsEnabled reports whether an overlay is shown.
func (o *Overlays) IsEnabled(id OverlayID) bool {
	ov := o.find(id)
	return ov != nil && ov.on
}

// HandleKeys toggles every overlay whose key went down this frame.
func (o *Overlays) HandleKeys() {
	for _, ov := range o.list {
		if rl.IsKeyPressed(ov.key) {
			o.Toggle(ov.id)
		}
	}
}

// Legend renders the key bindings with a +/- state mark, e.g.
// "[T]-stats  [K]+particles".
func (o *Overlays) Legend() string {
	var b strings.Builder
	for i, ov := range o.list {
		if i > 0 {
			b.WriteString("  ")
		}
		mark := "-"
		if ov.on {
			mark = "+"
		}
		b.WriteString("[" + ov.label + "]" + mark + ov.name)
	}
	return b.String()
}
