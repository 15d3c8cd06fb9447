package engine

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// Geometry decides what signals can reach and how far apart nodes are.
type Geometry interface {
	// Distance is the edge-to-edge distance, never negative.
	Distance(a, b *Node) float64
	// RayHit reports whether s reaches n.
	RayHit(s *Signal, n *Node) bool
	// Place moves n to (x, y) in the geometry's coordinates.
	Place(n *Node, x, y float64)
}

// Sampler is implemented by geometries that choose their own random
// positions. Others get a uniform point in the viewport, centred on the
// origin.
type Sampler interface {
	Sample(rng *rand.Rand, width, height float64) (x, y float64)
}

// Planar is the flat 2D geometry.
type Planar struct{}

func (Planar) Distance(a, b *Node) float64 {
	d := r2.Norm(r2.Sub(r2.Vec{X: a.X, Y: a.Y}, r2.Vec{X: b.X, Y: b.Y}))
	return math.Max(0, d-a.Radius-b.Radius)
}

func (Planar) RayHit(s *Signal, n *Node) bool {
	return s.RayHit(n)
}

func (Planar) Place(n *Node, x, y float64) {
	n.X, n.Y = x, y
}
