package engine

import (
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/signals/identity"
)

// Signal is a ray emitted by a node, carrying a copy of the source identity.
type Signal struct {
	Source    NodeID
	Identity  *identity.Identity
	Origin    r2.Vec
	Angle     float64
	Dir       r2.Vec
	H         float64
	MaxH      float64
	Cost      float64
	Timestamp time.Time

	// Filled in after the hit test.
	Target   NodeID
	Hit      bool
	Distance float64
}

// NewSignal emits from src along angle with health h.
func NewSignal(src *Node, h, cost, angle float64, now time.Time) *Signal {
	return &Signal{
		Source:    src.ID,
		Identity:  src.Identity.Clone(),
		Origin:    r2.Vec{X: src.X, Y: src.Y},
		Angle:     angle,
		Dir:       r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)},
		H:         h,
		MaxH:      h,
		Cost:      cost,
		Timestamp: now,
	}
}

// RandomAngle draws a uniform heading.
func RandomAngle(rng *rand.Rand) float64 {
	return rng.Float64() * 2 * math.Pi
}

// Update exchanges identity influence with the target: the signal learns
// from the target first, then the target learns from the updated signal.
func (s *Signal) Update(target *identity.Identity, nearness float64, rng *rand.Rand) {
	s.Identity.Compare(target, nearness)
	s.Identity.Resolve(rng)

	target.Compare(s.Identity, nearness)
	target.Resolve(rng)
}

// RayHit reports whether the ray meets n's circle at or ahead of the
// origin. An origin inside the circle never hits, since the nearer root
// lies behind it.
func (s *Signal) RayHit(n *Node) bool {
	oc := r2.Sub(s.Origin, r2.Vec{X: n.X, Y: n.Y})
	a := r2.Dot(s.Dir, s.Dir)
	b := 2 * r2.Dot(oc, s.Dir)
	c := r2.Dot(oc, oc) - n.Radius*n.Radius

	disc := b*b - 4*a*c
	if disc < 0 {
		return false
	}
	t := (-b - math.Sqrt(disc)) / (2 * a)
	return t >= 0
}

// Age is the time since emission.
func (s *Signal) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}
