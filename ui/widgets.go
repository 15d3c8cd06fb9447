package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Renderer draws themed panel widgets. Row helpers take the row's top y
// and return the top of the next row.
type Renderer struct {
	Theme Theme
}

func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

func (r *Renderer) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	return y + r.Theme.LineHeight
}

// label draws "label:" and returns the x where the value column starts.
func (r *Renderer) label(x, y int32, text string) int32 {
	rl.DrawText(text+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	return x + r.Theme.LabelWidth
}

func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	vx := r.label(x, y, label)
	rl.DrawText(value, vx, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight
}

// DrawHealthBar draws current out of limit as a bar followed by the figures.
// The whole row fits in width.
func (r *Renderer) DrawHealthBar(x, y int32, label string, current, limit float64, width int32) int32 {
	var ratio float64
	if limit > 0 {
		ratio = min(max(current/limit, 0), 1)
	}

	bx := r.label(x, y, label)
	bw := width - r.Theme.LabelWidth - 70
	fill := r.Theme.BarHigh
	switch {
	case ratio < 0.3:
		fill = r.Theme.BarLow
	case ratio < 0.6:
		fill = r.Theme.BarMid
	}
	rl.DrawRectangle(bx, y+2, bw, r.Theme.BarHeight, r.Theme.BarBg)
	rl.DrawRectangle(bx, y+2, int32(float64(bw)*ratio), r.Theme.BarHeight, fill)
	rl.DrawText(fmt.Sprintf("%.0f/%.0f", current, limit), bx+bw+5, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight + 2
}

func (r *Renderer) DrawSwatch(x, y int32, label string, color rl.Color) int32 {
	sx := r.label(x, y, label)
	rl.DrawRectangle(sx, y+1, 12, 12, color)
	return y + r.Theme.LineHeight
}
