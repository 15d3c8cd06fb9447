// Package camera provides a 2D camera system for viewport control.
package camera

import "math"

// Camera controls the viewport into the simulation plane. The world is
// unbounded and centred on the origin.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom level (1.0 = 1:1, 2.0 = 2x magnification)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Zoom constraints
	MinZoom, MaxZoom float32

	// Zoom-to-fit transition
	from, to view
	elapsed  float32
	duration float32
}

type view struct {
	x, y, zoom float32
}

// New creates a camera centered on the origin with 1:1 zoom.
func New(viewportW, viewportH float32) *Camera {
	return &Camera{
		Zoom:      1.0,
		ViewportW: viewportW,
		ViewportH: viewportH,
		MinZoom:   0.05,
		MaxZoom:   8.0,
	}
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	sx = c.ViewportW/2 + (wx-c.X)*c.Zoom
	sy = c.ViewportH/2 + (wy-c.Y)*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	wx = c.X + (sx-c.ViewportW/2)/c.Zoom
	wy = c.Y + (sy-c.ViewportH/2)/c.Zoom
	return wx, wy
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(wx-c.X) <= halfW && absf(wy-c.Y) <= halfH
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Pan moves the camera by the given delta in screen pixels and cancels
// any fit in progress.
func (c *Camera) Pan(dx, dy float32) {
	c.duration = 0
	c.X += dx / c.Zoom
	c.Y += dy / c.Zoom
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// ZoomAt zooms by factor keeping the world point under (sx, sy) fixed.
func (c *Camera) ZoomAt(sx, sy, factor float32) {
	c.duration = 0
	wx, wy := c.ScreenToWorld(sx, sy)
	c.ZoomBy(factor)
	c.X = wx - (sx-c.ViewportW/2)/c.Zoom
	c.Y = wy - (sy-c.ViewportH/2)/c.Zoom
}

// Reset returns the camera to the origin at 1:1 zoom.
func (c *Camera) Reset() {
	c.X, c.Y = 0, 0
	c.Zoom = 1.0
	c.duration = 0
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() Bounds {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	return Bounds{
		MinX: c.X - halfW,
		MinY: c.Y - halfH,
		MaxX: c.X + halfW,
		MaxY: c.Y + halfH,
	}
}

// Bounds is an axis-aligned world rectangle. The zero value is empty.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float32
	set                    bool
}

// Extend grows b to cover a circle.
func (b *Bounds) Extend(x, y, r float32) {
	if !b.set {
		*b = Bounds{MinX: x - r, MinY: y - r, MaxX: x + r, MaxY: y + r, set: true}
		return
	}
	b.MinX = min(b.MinX, x-r)
	b.MinY = min(b.MinY, y-r)
	b.MaxX = max(b.MaxX, x+r)
	b.MaxY = max(b.MaxY, y+r)
}

// Empty reports whether nothing was added.
func (b Bounds) Empty() bool { return !b.set }

// FitTo moves the camera so b plus margin fills the viewport, easing over
// duration seconds (0 = immediately). An empty b is ignored.
func (c *Camera) FitTo(b Bounds, margin, duration float32) {
	if b.Empty() {
		return
	}
	w := b.MaxX - b.MinX + 2*margin
	h := b.MaxY - b.MinY + 2*margin
	zoom := c.MaxZoom
	if w > 0 {
		zoom = min(zoom, c.ViewportW/w)
	}
	if h > 0 {
		zoom = min(zoom, c.ViewportH/h)
	}
	target := view{
		x:    (b.MinX + b.MaxX) / 2,
		y:    (b.MinY + b.MaxY) / 2,
		zoom: clamp(zoom, c.MinZoom, c.MaxZoom),
	}

	if duration <= 0 {
		c.X, c.Y, c.Zoom = target.x, target.y, target.zoom
		c.duration = 0
		return
	}
	c.from = view{c.X, c.Y, c.Zoom}
	c.to = target
	c.elapsed = 0
	c.duration = duration
}

// Fitting reports whether a fit transition is in progress.
func (c *Camera) Fitting() bool { return c.duration > 0 }

// Update advances a fit transition by dt seconds.
func (c *Camera) Update(dt float32) {
	if c.duration <= 0 {
		return
	}
	c.elapsed += dt
	t := min(c.elapsed/c.duration, 1)
	e := easeInOut(t)
	c.X = lerp(c.from.x, c.to.x, e)
	c.Y = lerp(c.from.y, c.to.y, e)
	// Zoom eases in log space so the apparent speed stays even.
	c.Zoom = float32(math.Exp(float64(lerp(logf(c.from.zoom), logf(c.to.zoom), e))))
	if t >= 1 {
		c.X, c.Y, c.Zoom = c.to.x, c.to.y, c.to.zoom
		c.duration = 0
	}
}

func easeInOut(t float32) float32 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - 2*(1-t)*(1-t)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func logf(x float32) float32 {
	return float32(math.Log(float64(x)))
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
