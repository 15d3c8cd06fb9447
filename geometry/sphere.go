// Package geometry provides engine geometries beyond the flat plane.
package geometry

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/signals/engine"
)

// Sphere places nodes on the surface of a sphere. A node's X is its azimuth
// theta and its Y is its polar angle phi, both in radians. Signals travel
// along great circles.
type Sphere struct {
	Radius     float64 // sphere radius
	TargetSize float64 // radius of the hit sphere around each node
	Segments   int     // arc tessellation from source to antipode
	Probe      int     // leading arc points tested for a hit
}

// NewSphere returns a sphere with the stock tessellation.
func NewSphere(radius, targetSize float64) Sphere {
	return Sphere{Radius: radius, TargetSize: targetSize, Segments: 20, Probe: 5}
}

// polar margin keeps nodes off the poles, where the tangent frame degenerates.
const polarMargin = 0.01

// normTheta wraps theta into [0, 2pi).
func normTheta(t float64) float64 {
	t = math.Mod(t, 2*math.Pi)
	if t < 0 {
		t += 2 * math.Pi
	}
	return t
}

func normPhi(p float64) float64 {
	return math.Max(polarMargin, math.Min(math.Pi-polarMargin, p))
}

// Point returns the cartesian position of angles (theta, phi).
func (s Sphere) Point(theta, phi float64) r3.Vec {
	sp := math.Sin(phi)
	return r3.Vec{
		X: s.Radius * sp * math.Cos(theta),
		Y: s.Radius * sp * math.Sin(theta),
		Z: s.Radius * math.Cos(phi),
	}
}

// Distance is the great-circle distance between node centres less both
// radii, floored at zero.
func (s Sphere) Distance(a, b *engine.Node) float64 {
	pa, pb := normPhi(a.Y), normPhi(b.Y)
	cos := math.Sin(pa)*math.Sin(pb)*math.Cos(normTheta(a.X)-normTheta(b.X)) + math.Cos(pa)*math.Cos(pb)
	arc := s.Radius * math.Acos(math.Max(-1, math.Min(1, cos)))
	return math.Max(0, arc-a.Radius-b.Radius)
}

// RayHit walks the great circle leaving the signal origin along its heading
// and reports whether any of the first Probe arc points fall within
// TargetSize of the target.
func (s Sphere) RayHit(sig *engine.Signal, n *engine.Node) bool {
	theta, phi := normTheta(sig.Origin.X), normPhi(sig.Origin.Y)
	origin := s.Point(theta, phi)
	target := s.Point(normTheta(n.X), normPhi(n.Y))

	// Tangent frame at the origin: east along increasing theta, north along
	// decreasing phi.
	east := r3.Vec{X: -math.Sin(theta), Y: math.Cos(theta)}
	north := r3.Scale(-1, r3.Vec{
		X: math.Cos(phi) * math.Cos(theta),
		Y: math.Cos(phi) * math.Sin(theta),
		Z: -math.Sin(phi),
	})
	heading := r3.Add(r3.Scale(math.Cos(sig.Angle), east), r3.Scale(math.Sin(sig.Angle), north))
	axis := r3.Unit(r3.Cross(origin, heading))

	segments := max(s.Segments, 1)
	probe := min(max(s.Probe, 1), segments+1)
	for i := 0; i < probe; i++ {
		angle := math.Pi * float64(i) / float64(segments)
		p := r3.NewRotation(angle, axis).Rotate(origin)
		if r3.Norm(r3.Sub(p, target)) <= s.TargetSize {
			return true
		}
	}
	return false
}

// Place wraps theta and keeps phi off the poles.
func (s Sphere) Place(n *engine.Node, theta, phi float64) {
	n.X, n.Y = normTheta(theta), normPhi(phi)
}

// Sample draws a point uniformly over the surface.
func (s Sphere) Sample(rng *rand.Rand, _, _ float64) (theta, phi float64) {
	return rng.Float64() * 2 * math.Pi, normPhi(math.Acos(1 - 2*rng.Float64()))
}

// Project returns the orthographic view of (theta, phi) after spinning the
// sphere by yaw about its polar axis. depth is in [-1, 1]; positive faces
// the viewer.
func (s Sphere) Project(theta, phi, yaw float64) (x, y, depth float64) {
	p := r3.NewRotation(yaw, r3.Vec{Z: 1}).Rotate(s.Point(theta, phi))
	if s.Radius != 0 {
		depth = -p.Y / s.Radius
	}
	return p.X, -p.Z, depth
}

var (
	_ engine.Geometry = Sphere{}
	_ engine.Sampler  = Sphere{}
)
