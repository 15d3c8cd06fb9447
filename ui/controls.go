package ui

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/host"
)

// Slider ranges.
const (
	maxSliderNodes  = 500
	maxSliderLevels = 10
)

// Actions is what the user asked for in one frame.
type Actions struct {
	Commands []engine.Command
	Save     bool
	Fit      bool
}

// ControlsPanel renders the raygui control panel.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x, c.y = x, y
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point is over the panel.
func (c *ControlsPanel) Contains(x, y float32) bool {
	return c.visible && rl.CheckCollisionPointRec(rl.Vector2{X: x, Y: y}, c.bounds())
}

func (c *ControlsPanel) bounds() rl.Rectangle {
	return rl.Rectangle{X: float32(c.x), Y: float32(c.y), Width: float32(c.width), Height: 390}
}

// Draw renders the panel and returns the actions taken this frame.
func (c *ControlsPanel) Draw(snap *host.Snapshot) Actions {
	var act Actions
	if !c.visible {
		return act
	}

	r := c.renderer
	b := c.bounds()
	r.DrawPanel(c.x, c.y, c.width, int32(b.Height))

	pad := float32(r.Theme.Padding)
	x := b.X + pad
	y := b.Y + pad
	w := b.Width - 2*pad
	half := (w - pad) / 2
	row := func(h float32) rl.Rectangle {
		rect := rl.Rectangle{X: x, Y: y, Width: w, Height: h}
		y += h + 6
		return rect
	}

	rl.DrawText("Controls", int32(x), int32(y), 16, rl.White)
	y += 22

	// Buttons
	rect := row(24)
	runLabel := "Start"
	if snap.State == engine.StateRunning {
		runLabel = "Stop"
	}
	if gui.Button(rl.Rectangle{X: rect.X, Y: rect.Y, Width: half, Height: rect.Height}, runLabel) {
		if snap.State == engine.StateRunning {
			act.Commands = append(act.Commands, engine.Stop{})
		} else {
			act.Commands = append(act.Commands, engine.Start{})
		}
	}
	if gui.Button(rl.Rectangle{X: rect.X + half + pad, Y: rect.Y, Width: half, Height: rect.Height}, "Reset") {
		act.Commands = append(act.Commands, engine.Reset{})
	}

	rect = row(24)
	if gui.Button(rl.Rectangle{X: rect.X, Y: rect.Y, Width: half, Height: rect.Height}, "Pulse") {
		act.Commands = append(act.Commands, engine.DefaultPulse)
	}
	if gui.Button(rl.Rectangle{X: rect.X + half + pad, Y: rect.Y, Width: half, Height: rect.Height}, "Add 10") {
		act.Commands = append(act.Commands, engine.AddNodes{N: 10})
	}

	rect = row(24)
	if gui.Button(rl.Rectangle{X: rect.X, Y: rect.Y, Width: half, Height: rect.Height}, "Save") {
		act.Save = true
	}
	if gui.Button(rl.Rectangle{X: rect.X + half + pad, Y: rect.Y, Width: half, Height: rect.Height}, "Fit") {
		act.Fit = true
	}

	// Toggles
	cfg := snap.Config
	y += 4
	check := func(label string, on bool) bool {
		rect := row(14)
		return gui.CheckBox(rl.Rectangle{X: rect.X, Y: rect.Y, Width: 14, Height: 14}, label, on) != on
	}
	if check("Linking", cfg.LinkingEnabled) {
		act.Commands = append(act.Commands, engine.ToggleLinking{})
	}
	if check("Emits", cfg.EmitsEnabled) {
		act.Commands = append(act.Commands, engine.ToggleEmits{})
	}
	if check("Background particles", cfg.BackgroundEnabled) {
		act.Commands = append(act.Commands, engine.ToggleBackground{})
	}
	if check("Weak links", cfg.LinksWeakVisible) {
		act.Commands = append(act.Commands, engine.SetLinkVisibility{Class: engine.LinkWeak, Visible: !cfg.LinksWeakVisible})
	}
	if check("Strong links", cfg.LinksStrongVisible) {
		act.Commands = append(act.Commands, engine.SetLinkVisibility{Class: engine.LinkStrongClass, Visible: !cfg.LinksStrongVisible})
	}
	if check("Perma links", cfg.LinksPermaVisible) {
		act.Commands = append(act.Commands, engine.SetLinkVisibility{Class: engine.LinkPerma, Visible: !cfg.LinksPermaVisible})
	}

	// Sliders
	y += 4
	slider := func(label string, value, lo, hi float32, format string) float32 {
		rl.DrawText(label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		rl.DrawText(fmt.Sprintf(format, value), int32(x+w-40), int32(y), r.Theme.FontSize, r.Theme.ValueColor)
		y += 14
		rect := row(16)
		return gui.SliderBar(rect, "", "", value, lo, hi)
	}

	emitPct := float32(math.Round(cfg.EmitRate * 100))
	if v := float32(math.Round(float64(slider("Emit rate %", emitPct, 1, 20, "%.0f")))); v != emitPct {
		act.Commands = append(act.Commands, engine.SetEmitRate{Percent: float64(v)})
	}
	nodes := float32(cfg.NumNodes)
	if v := int(slider("Nodes", nodes, 0, maxSliderNodes, "%.0f")); v != cfg.NumNodes {
		act.Commands = append(act.Commands, engine.SetNumNodes{N: v})
	}
	levels := float32(cfg.MaxGroupLevels)
	if v := int(slider("Max levels", levels, 1, maxSliderLevels, "%.0f")); v != cfg.MaxGroupLevels {
		act.Commands = append(act.Commands, engine.SetMaxGroupLevels{Levels: v})
	}

	return act
}
