package viewer

import (
	"cmp"
	"math"
	"slices"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/signals/components"
	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/host"
	"github.com/pthm-cable/signals/identity"
	"github.com/pthm-cable/signals/ui"
)

var (
	backgroundColor = rl.Color{R: 8, G: 10, B: 14, A: 255}
	sphereColor     = rl.Color{R: 40, G: 48, B: 60, A: 255}
	redParticle     = rl.Color{R: 220, G: 60, B: 60, A: 140}
	greenParticle   = rl.Color{R: 60, G: 200, B: 90, A: 140}
	selectionColor  = rl.White
)

// farSideAlpha dims nodes and links on the back of the sphere.
const farSideAlpha = 0.2

func (v *Viewer) camera2D() rl.Camera2D {
	return rl.Camera2D{
		Offset: rl.Vector2{X: v.cam.ViewportW / 2, Y: v.cam.ViewportH / 2},
		Target: rl.Vector2{X: v.cam.X, Y: v.cam.Y},
		Zoom:   v.cam.Zoom,
	}
}

func (v *Viewer) draw(snap *host.Snapshot) {
	rl.BeginDrawing()
	rl.ClearBackground(backgroundColor)

	rl.BeginMode2D(v.camera2D())
	if snap.Spherical {
		rl.DrawCircleLines(0, 0, float32(v.cfg.Sphere.Radius), sphereColor)
	}
	if v.overlays.IsEnabled(ui.OverlayParticles) {
		drawParticles(snap)
	}
	v.drawLinks(snap)
	drawEmits(snap, v.cam.Zoom)
	v.drawNodes(snap)
	rl.EndMode2D()

	v.hud.Draw(snap, rl.GetFPS())
	switch {
	case v.overlays.IsEnabled(ui.OverlayStats):
		v.stats.Draw(snap.Stats)
	case v.overlays.IsEnabled(ui.OverlayPerf):
		v.perf.Draw(snap.Perf)
	}
	if v.overlays.IsEnabled(ui.OverlayInspector) {
		v.inspector.Draw(snap)
	}

	act := v.controls.Draw(snap)
	for _, cmd := range act.Commands {
		v.post(cmd)
		if _, ok := cmd.(engine.Reset); ok {
			v.inspector.Clear()
		}
	}
	if act.Save {
		v.save()
	}
	if act.Fit {
		v.fit(snap)
	}

	h := int32(v.height)
	if v.status != "" && time.Now().Before(v.statusEnd) {
		rl.DrawText(v.status, 10, h-65, 16, rl.Yellow)
	}
	v.hud.DrawControls(h-20, v.overlays.Legend())
	v.hud.DrawControls(h, controlsLegend)

	rl.EndDrawing()
}

func drawParticles(snap *host.Snapshot) {
	for _, p := range snap.Particles {
		c := greenParticle
		if p.Charge == components.ChargeRed {
			c = redParticle
		}
		rl.DrawCircleV(rl.Vector2{X: p.X, Y: p.Y}, p.Radius, c)
	}
	for _, s := range snap.Sparks {
		c := rl.Fade(rl.Orange, s.Alpha)
		rl.DrawCircleV(rl.Vector2{X: s.X, Y: s.Y}, s.Size, c)
	}
}

func (v *Viewer) drawLinks(snap *host.Snapshot) {
	cfg := snap.Config
	radius := make(map[engine.NodeID]float64, len(snap.Nodes))
	for _, n := range snap.Nodes {
		radius[n.ID] = n.Radius
	}

	for _, l := range snap.Links {
		var c rl.Color
		switch l.Class {
		case engine.LinkPerma:
			if !cfg.LinksPermaVisible {
				continue
			}
			c = ui.PermaLinkColor
		case engine.LinkStrongClass:
			if !cfg.LinksStrongVisible {
				continue
			}
			c = rl.Fade(ui.StrongLinkColor, 0.5)
		default:
			if !cfg.LinksWeakVisible {
				continue
			}
			c = rl.Fade(ui.WeakLinkColor, 0.25)
		}
		alpha := float32(1)
		if snap.Spherical && l.Depth <= 0 {
			if !v.overlays.IsEnabled(ui.OverlayFarSide) {
				continue
			}
			alpha = farSideAlpha
		}

		w := linkWidth(l, cfg, min(radius[l.From], radius[l.To]))
		rl.DrawLineEx(
			rl.Vector2{X: float32(l.X1), Y: float32(l.Y1)},
			rl.Vector2{X: float32(l.X2), Y: float32(l.Y2)},
			float32(max(w, 1/float64(v.cam.Zoom))),
			rl.Fade(c, float32(c.A)/255*alpha),
		)
	}
}

// linkWidth scales a link against the diameter of its smaller end: perma
// links are full width, strong links grow toward the perma threshold and
// weak links toward the strong threshold.
func linkWidth(l host.LinkView, cfg engine.Config, smaller float64) float64 {
	full := smaller * 2
	switch l.Class {
	case engine.LinkPerma:
		return full
	case engine.LinkStrongClass:
		return 0.9 * full * min(l.Strength/cfg.LinkPermaBondThreshold, 1)
	default:
		return full * min(l.Strength/cfg.LinkStrong, 1)
	}
}

func drawEmits(snap *host.Snapshot, zoom float32) {
	for _, e := range snap.Emits {
		width := 2 / zoom
		if e.Hit {
			width *= 2
		}
		c := rl.Color{R: e.Color.R, G: e.Color.G, B: e.Color.B, A: 255}
		rl.DrawLineEx(
			rl.Vector2{X: float32(e.X1), Y: float32(e.Y1)},
			rl.Vector2{X: float32(e.X2), Y: float32(e.Y2)},
			width,
			rl.Fade(c, float32(e.Alpha)),
		)
	}
}

func (v *Viewer) drawNodes(snap *host.Snapshot) {
	nodes := snap.Nodes
	if snap.Spherical {
		nodes = slices.SortedFunc(slices.Values(snap.Nodes), func(a, b host.NodeView) int {
			return cmp.Compare(a.Depth, b.Depth)
		})
	}

	for _, n := range nodes {
		alpha := float32(1)
		if snap.Spherical && n.Depth <= 0 {
			if !v.overlays.IsEnabled(ui.OverlayFarSide) {
				continue
			}
			alpha = farSideAlpha
		}
		center := rl.Vector2{X: float32(n.X), Y: float32(n.Y)}
		r := float32(n.Radius)
		if snap.Spherical {
			// Foreshortening toward the limb.
			r *= float32(0.5 + 0.5*math.Abs(n.Depth))
		}
		rl.DrawCircleV(center, r, rl.Fade(nodeColor(n.Color), alpha))

		if shade := healthShade(n.Health, n.BaseHealth); shade > 0 {
			rl.DrawCircleV(center, r*shade, rl.Fade(rl.Black, 0.25*alpha))
		}
		if v.inspector.IsSelected(n.ID) {
			rl.DrawCircleLinesV(center, r+3/v.cam.Zoom, selectionColor)
		}
	}
}

func nodeColor(c identity.RGB) rl.Color {
	return rl.Color{R: c.R, G: c.G, B: c.B, A: 255}
}

// healthShade is the radius fraction darkened on a node that has lost
// health: 0 at full health, 1 at none.
func healthShade(health, base float64) float32 {
	if base <= 0 {
		return 0
	}
	return float32(1 - min(max(health/base, 0), 1))
}
