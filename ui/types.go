// Package ui draws the heads-up display, the control panel and the node
// inspector on top of the graph view.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme is the panel palette and metrics shared by every widget.
type Theme struct {
	PanelBg, PanelBorder   rl.Color
	SectionHeader          rl.Color
	LabelColor, ValueColor rl.Color

	// Health bars go from low to mid to high as the ratio passes 0.3 and 0.6.
	BarBg                   rl.Color
	BarLow, BarMid, BarHigh rl.Color

	Padding, LineHeight, LabelWidth int32
	BarHeight                       int32
	FontSize, HeaderFontSize        int32
}

// DefaultTheme is the dark panel theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 12, G: 16, B: 22, A: 225},
		PanelBorder:    rl.Color{R: 55, G: 65, B: 80, A: 255},
		SectionHeader:  rl.Gold,
		LabelColor:     rl.LightGray,
		ValueColor:     rl.RayWhite,
		BarBg:          rl.Color{R: 36, G: 38, B: 44, A: 255},
		BarLow:         rl.Color{R: 210, G: 80, B: 80, A: 255},
		BarMid:         rl.Color{R: 215, G: 185, B: 90, A: 255},
		BarHigh:        rl.Color{R: 90, G: 200, B: 120, A: 255},
		Padding:        10,
		LineHeight:     16,
		LabelWidth:     90,
		BarHeight:      12,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}

// Link class colours.
var (
	WeakLinkColor   = rl.Color{R: 0, G: 200, B: 220, A: 255}
	StrongLinkColor = rl.Color{R: 240, G: 220, B: 40, A: 255}
	PermaLinkColor  = rl.Color{R: 255, G: 140, B: 0, A: 255}
)
