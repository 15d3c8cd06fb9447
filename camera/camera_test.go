package camera

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 0.01
}

func TestNew(t *testing.T) {
	cam := New(1280, 720)

	if cam.X != 0 || cam.Y != 0 {
		t.Errorf("expected camera at origin, got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := New(1280, 720)

	sx, sy := cam.WorldToScreen(0, 0)
	if !near(sx, 640) || !near(sy, 360) {
		t.Errorf("expected screen center (640, 360), got (%f, %f)", sx, sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(1280, 720)
	cam.X, cam.Y = -300, 150
	cam.SetZoom(2.5)

	testCases := []struct{ sx, sy float32 }{
		{640, 360},  // center
		{100, 100},  // top-left
		{1200, 600}, // near bottom-right
	}

	for _, tc := range testCases {
		wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(wx, wy)
		if !near(sx, tc.sx) || !near(sy, tc.sy) {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)",
				tc.sx, tc.sy, wx, wy, sx, sy)
		}
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(1280, 720)

	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("zoom = %f, want max %f", cam.Zoom, cam.MaxZoom)
	}
	cam.SetZoom(0)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("zoom = %f, want min %f", cam.Zoom, cam.MinZoom)
	}
}

func TestZoomAtKeepsCursorPoint(t *testing.T) {
	cam := New(1280, 720)
	wx, wy := cam.ScreenToWorld(900, 200)

	cam.ZoomAt(900, 200, 2)

	gx, gy := cam.ScreenToWorld(900, 200)
	if !near(gx, wx) || !near(gy, wy) {
		t.Errorf("point under cursor moved from (%f,%f) to (%f,%f)", wx, wy, gx, gy)
	}
	if cam.Zoom != 2 {
		t.Errorf("zoom = %f, want 2", cam.Zoom)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(1000, 500)

	tests := []struct {
		name   string
		x, y   float32
		radius float32
		want   bool
	}{
		{"center", 0, 0, 1, true},
		{"just inside", 499, 0, 1, true},
		{"outside", 600, 0, 10, false},
		{"radius reaches in", 510, 0, 20, true},
		{"below", 0, 400, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cam.IsVisible(tt.x, tt.y, tt.radius); got != tt.want {
				t.Errorf("IsVisible(%v, %v, %v) = %v, want %v", tt.x, tt.y, tt.radius, got, tt.want)
			}
		})
	}
}

func TestFitToImmediate(t *testing.T) {
	cam := New(1000, 500)

	var b Bounds
	b.Extend(100, 100, 10)
	b.Extend(300, 200, 10)
	cam.FitTo(b, 40, 0)

	// 220x130 world units plus 80 margin: width limits at 1000/300.
	if !near(cam.X, 200) || !near(cam.Y, 150) {
		t.Errorf("center = (%f, %f), want (200, 150)", cam.X, cam.Y)
	}
	if want := float32(1000.0 / 300.0); !near(cam.Zoom, want) {
		t.Errorf("zoom = %f, want %f", cam.Zoom, want)
	}
	if cam.Fitting() {
		t.Error("immediate fit left a transition running")
	}

	vis := cam.VisibleWorldBounds()
	if vis.MinX > b.MinX || vis.MaxX < b.MaxX || vis.MinY > b.MinY || vis.MaxY < b.MaxY {
		t.Errorf("visible %+v does not cover %+v", vis, b)
	}
}

func TestFitToAnimates(t *testing.T) {
	cam := New(1000, 500)

	var b Bounds
	b.Extend(1000, -500, 50)
	cam.FitTo(b, 0, 0.5)
	if !cam.Fitting() {
		t.Fatal("fit did not start a transition")
	}

	cam.Update(0.25)
	if cam.X <= 0 || cam.X >= 1000 {
		t.Errorf("halfway x = %f, want between 0 and 1000", cam.X)
	}

	cam.Update(0.5)
	if cam.Fitting() {
		t.Error("transition still running after its duration")
	}
	if !near(cam.X, 1000) || !near(cam.Y, -500) || !near(cam.Zoom, 5) {
		t.Errorf("final view = (%f, %f) zoom %f, want (1000, -500) zoom 5", cam.X, cam.Y, cam.Zoom)
	}
}

func TestFitToEmptyAndPanCancels(t *testing.T) {
	cam := New(1000, 500)
	cam.FitTo(Bounds{}, 10, 1)
	if cam.Fitting() {
		t.Error("empty bounds started a fit")
	}

	var b Bounds
	b.Extend(50, 50, 1)
	cam.FitTo(b, 10, 1)
	cam.Pan(10, 0)
	if cam.Fitting() {
		t.Error("pan did not cancel the fit")
	}
}
