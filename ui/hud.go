package ui

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/host"
	"github.com/pthm-cable/signals/telemetry"
)

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the status lines in the top-left corner.
func (h *HUD) Draw(snap *host.Snapshot, fps int32) {
	weak, strong, perma := countLinks(snap.Links)

	rl.DrawText("signals", 10, 10, 20, rl.White)
	rl.DrawText(
		fmt.Sprintf("Nodes: %d/%d | Links: %d weak %d strong %d perma", len(snap.Nodes), snap.Config.NumNodes, weak, strong, perma),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | FPS: %d | Emit: %.0f%% | Levels: %d", snap.Tick, fps, snap.Config.EmitRate*100, snap.Config.MaxGroupLevels),
		10, 55, 16, rl.LightGray,
	)

	status, color := "RUNNING", rl.Green
	switch snap.State {
	case engine.StateStopped:
		status, color = "STOPPED", rl.Yellow
	case engine.StateUninitialized:
		status, color = "RESET", rl.Gray
	}
	if snap.Pulsing {
		status += " | PULSE"
	}
	rl.DrawText(status, 10, 75, 16, color)
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

func countLinks(links []host.LinkView) (weak, strong, perma int) {
	for _, l := range links {
		switch l.Class {
		case engine.LinkPerma:
			perma++
		case engine.LinkStrongClass:
			strong++
		default:
			weak++
		}
	}
	return weak, strong, perma
}

// StatsPanel renders the last telemetry window.
type StatsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewStatsPanel creates a new stats panel.
func NewStatsPanel(x, y, width int32) *StatsPanel {
	return &StatsPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (s *StatsPanel) SetPosition(x, y int32) {
	s.x, s.y = x, y
}

// Draw renders the panel and returns the Y below it.
func (s *StatsPanel) Draw(ws telemetry.WindowStats) int32 {
	r := s.renderer
	padding := r.Theme.Padding
	height := r.Theme.LineHeight*12 + padding*2
	r.DrawPanel(s.x, s.y, s.width, height)

	x, y := s.x+padding, s.y+padding
	y = r.DrawSectionHeader(x, y, fmt.Sprintf("Window to tick %d", ws.WindowEndTick))
	y = r.DrawLabelValue(x, y, "Live", fmt.Sprintf("%d (+%d contained)", ws.LiveNodes, ws.ContainedNodes))
	y = r.DrawLabelValue(x, y, "Max level", fmt.Sprintf("%d", ws.MaxLevel))
	y = r.DrawLabelValue(x, y, "Born/died", fmt.Sprintf("%d / %d", ws.NodesCreated, ws.NodesDied))
	y = r.DrawLabelValue(x, y, "Merges", fmt.Sprintf("%d (%d down)", ws.Merges, ws.DownLevels))
	y = r.DrawLabelValue(x, y, "Signals", fmt.Sprintf("%d, %.0f%% hit", ws.SignalsEmitted, ws.HitRate*100))
	y = r.DrawLabelValue(x, y, "Links +/-", fmt.Sprintf("%d / %d", ws.LinksCreated, ws.LinksPruned))
	y = r.DrawLabelValue(x, y, "Perma bonds", fmt.Sprintf("%d", ws.PermaBonds))
	y = r.DrawLabelValue(x, y, "Strength", fmt.Sprintf("%.0f p50 %.0f p90 %.0f", ws.StrengthMean, ws.StrengthP50, ws.StrengthP90))
	y = r.DrawLabelValue(x, y, "Decay", fmt.Sprintf("%.3f", ws.DecayRate))
	y = r.DrawLabelValue(x, y, "Health", fmt.Sprintf("%.0f ± %.0f", ws.HealthMean, ws.HealthStd))
	return y + padding
}

// PerfPanel renders the per-phase timings.
type PerfPanel struct {
	x, y int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x, p.y = x, y
}

// Draw renders the performance panel, slowest phase first.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y

	rl.DrawText("Tick phases", x, y, 16, rl.White)
	y += 20
	rl.DrawText(fmt.Sprintf("Avg: %s | %.0f ticks/s", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond), x, y, 14, rl.Yellow)
	y += 16

	names := slices.SortedFunc(maps.Keys(stats.PhaseAvg), func(a, b string) int {
		return cmp.Compare(stats.PhaseAvg[b], stats.PhaseAvg[a])
	})
	for _, name := range names {
		pct := stats.PhasePct[name]
		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-12s %8s %5.1f%%", name, stats.PhaseAvg[name].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
