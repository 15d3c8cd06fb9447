package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/signals/components"
)

// ParticleConfig sizes the background particle layer.
type ParticleConfig struct {
	Width, Height   float32 // bounded area, centred on the origin
	Speed           float32 // max initial speed per axis, per frame
	MaxAddPerUpdate int
	SparksPerBurst  int
	SparkLife       int32
}

// DefaultParticleConfig returns the stock layer settings for a viewport.
func DefaultParticleConfig(width, height float32) ParticleConfig {
	return ParticleConfig{
		Width:           width,
		Height:          height,
		Speed:           2,
		MaxAddPerUpdate: 10,
		SparksPerBurst:  20,
		SparkLife:       20,
	}
}

// ParticleView is a particle as the renderer sees it.
type ParticleView struct {
	X, Y   float32
	Radius float32
	Charge components.Charge
}

// SparkView is a burst fragment as the renderer sees it.
type SparkView struct {
	X, Y  float32
	Size  float32
	Alpha float32
}

// ParticleLayer drifts two populations of particles around the viewport.
// When opposite charges touch they annihilate, leave a burst of sparks and
// report the contact point so the host can grow a node there.
type ParticleLayer struct {
	cfg   ParticleConfig
	rng   *rand.Rand
	world *ecs.World

	particleMapper *ecs.Map3[components.Position, components.Velocity, components.Particle]
	sparkMapper    *ecs.Map3[components.Position, components.Velocity, components.Spark]
	particleFilter *ecs.Filter3[components.Position, components.Velocity, components.Particle]
	sparkFilter    *ecs.Filter3[components.Position, components.Velocity, components.Spark]
	posMap         *ecs.Map1[components.Position]
	particleMap    *ecs.Map1[components.Particle]

	grid      *SpatialGrid
	neighbors []Neighbor
	order     []ecs.Entity
	maxRadius float32
	count     int
}

// NewParticleLayer creates an empty particle layer.
func NewParticleLayer(cfg ParticleConfig, rng *rand.Rand) *ParticleLayer {
	world := ecs.NewWorld()
	l := &ParticleLayer{
		cfg:   cfg,
		rng:   rng,
		world: world,

		particleMapper: ecs.NewMap3[components.Position, components.Velocity, components.Particle](world),
		sparkMapper:    ecs.NewMap3[components.Position, components.Velocity, components.Spark](world),
		particleFilter: ecs.NewFilter3[components.Position, components.Velocity, components.Particle](world),
		sparkFilter:    ecs.NewFilter3[components.Position, components.Velocity, components.Spark](world),
		posMap:         ecs.NewMap1[components.Position](world),
		particleMap:    ecs.NewMap1[components.Particle](world),
	}
	l.grid = NewSpatialGrid(cfg.Width, cfg.Height, 32)
	return l
}

// Resize changes the bounded area. Particles outside it bounce back in.
func (l *ParticleLayer) Resize(width, height float32) {
	l.cfg.Width, l.cfg.Height = width, height
	l.grid = NewSpatialGrid(width, height, max(2*l.maxRadius, 32))
}

// Count returns the number of live particles.
func (l *ParticleLayer) Count() int { return l.count }

// Target returns how many particles an area should hold at the given
// density, in square units per particle.
func Target(area, density float64) int {
	if density <= 0 {
		return 0
	}
	return int(area / density)
}

// Fill tops the layer up toward target, adding at most MaxAddPerUpdate
// particles per call, always in red/green pairs. It returns how many were
// added.
func (l *ParticleLayer) Fill(target int, radius float32) int {
	add := min(l.cfg.MaxAddPerUpdate, target-l.count)
	if add <= 0 {
		return 0
	}
	if add%2 == 1 {
		add++
	}
	for i := 0; i < add; i++ {
		l.spawn(components.Charge(i%2), radius)
	}
	return add
}

// Step advances sparks and particles by one frame. When react is true the
// first pair of touching opposite charges annihilates: onContact receives the
// midpoint, a burst of sparks is left there and a fresh pair replaces the
// lost particles. It reports whether a reaction happened.
func (l *ParticleLayer) Step(react bool, onContact func(x, y float64)) bool {
	l.stepSparks()
	l.stepParticles()
	if !react {
		return false
	}

	a, b, ok := l.findContact()
	if !ok {
		return false
	}
	pa, pb := *l.posMap.Get(a), *l.posMap.Get(b)
	radius := l.particleMap.Get(a).Radius
	x, y := (pa.X+pb.X)/2, (pa.Y+pb.Y)/2

	l.particleMapper.Remove(a)
	l.particleMapper.Remove(b)
	l.count -= 2
	l.burst(x, y, radius)
	if onContact != nil {
		onContact(float64(x), float64(y))
	}
	l.spawn(components.ChargeRed, radius)
	l.spawn(components.ChargeGreen, radius)
	return true
}

// Reset removes every particle and spark.
func (l *ParticleLayer) Reset() {
	var dead []ecs.Entity
	q := l.particleFilter.Query()
	for q.Next() {
		dead = append(dead, q.Entity())
	}
	for _, e := range dead {
		l.particleMapper.Remove(e)
	}

	dead = dead[:0]
	sq := l.sparkFilter.Query()
	for sq.Next() {
		dead = append(dead, sq.Entity())
	}
	for _, e := range dead {
		l.sparkMapper.Remove(e)
	}
	l.count = 0
}

// Particles returns the live particles for drawing.
func (l *ParticleLayer) Particles() []ParticleView {
	out := make([]ParticleView, 0, l.count)
	q := l.particleFilter.Query()
	for q.Next() {
		pos, _, p := q.Get()
		out = append(out, ParticleView{X: pos.X, Y: pos.Y, Radius: p.Radius, Charge: p.Charge})
	}
	return out
}

// Sparks returns the live burst fragments for drawing.
func (l *ParticleLayer) Sparks() []SparkView {
	var out []SparkView
	q := l.sparkFilter.Query()
	for q.Next() {
		pos, _, s := q.Get()
		out = append(out, SparkView{X: pos.X, Y: pos.Y, Size: s.Size, Alpha: s.Alpha()})
	}
	return out
}

func (l *ParticleLayer) spawn(c components.Charge, radius float32) {
	pos := components.Position{
		X: (l.rng.Float32() - 0.5) * l.cfg.Width,
		Y: (l.rng.Float32() - 0.5) * l.cfg.Height,
	}
	vel := components.Velocity{
		X: (l.rng.Float32()*2 - 1) * l.cfg.Speed,
		Y: (l.rng.Float32()*2 - 1) * l.cfg.Speed,
	}
	p := components.Particle{Charge: c, Radius: radius}
	l.particleMapper.NewEntity(&pos, &vel, &p)
	l.count++
	if radius > l.maxRadius {
		l.maxRadius = radius
		l.grid = NewSpatialGrid(l.cfg.Width, l.cfg.Height, max(2*radius, 32))
	}
}

func (l *ParticleLayer) burst(x, y, radius float32) {
	for i := 0; i < l.cfg.SparksPerBurst; i++ {
		pos := components.Position{X: x, Y: y}
		vel := components.Velocity{
			X: (l.rng.Float32() - 0.5) * 6,
			Y: (l.rng.Float32() - 0.5) * 6,
		}
		s := components.Spark{Life: l.cfg.SparkLife, MaxLife: l.cfg.SparkLife, Size: radius * 2}
		l.sparkMapper.NewEntity(&pos, &vel, &s)
	}
}

func (l *ParticleLayer) stepSparks() {
	var dead []ecs.Entity
	q := l.sparkFilter.Query()
	for q.Next() {
		pos, vel, s := q.Get()
		s.Life--
		if s.Life <= 0 {
			dead = append(dead, q.Entity())
			continue
		}
		pos.X += vel.X
		pos.Y += vel.Y
	}
	for _, e := range dead {
		l.sparkMapper.Remove(e)
	}
}

// stepParticles moves particles and bounces them off the area edges.
func (l *ParticleLayer) stepParticles() {
	halfW, halfH := l.cfg.Width/2, l.cfg.Height/2
	l.grid.Clear()
	l.order = l.order[:0]

	q := l.particleFilter.Query()
	for q.Next() {
		pos, vel, p := q.Get()
		pos.X += vel.X
		pos.Y += vel.Y
		if (pos.X-p.Radius < -halfW && vel.X < 0) || (pos.X+p.Radius > halfW && vel.X > 0) {
			vel.X = -vel.X
		}
		if (pos.Y-p.Radius < -halfH && vel.Y < 0) || (pos.Y+p.Radius > halfH && vel.Y > 0) {
			vel.Y = -vel.Y
		}

		e := q.Entity()
		l.grid.Insert(e, pos.X, pos.Y)
		l.order = append(l.order, e)
	}
}

// findContact returns the first touching pair of opposite charges in
// iteration order.
func (l *ParticleLayer) findContact() (ecs.Entity, ecs.Entity, bool) {
	for _, e := range l.order {
		pos := l.posMap.Get(e)
		p := l.particleMap.Get(e)
		l.neighbors = l.grid.QueryRadiusInto(l.neighbors[:0], pos.X, pos.Y, p.Radius+l.maxRadius, e, l.posMap)
		for _, n := range l.neighbors {
			o := l.particleMap.Get(n.E)
			if !p.Charge.Opposes(o.Charge) {
				continue
			}
			reach := p.Radius + o.Radius
			if n.DistSq < reach*reach {
				return e, n.E, true
			}
		}
	}
	return ecs.Entity{}, ecs.Entity{}, false
}
