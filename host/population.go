package host

import (
	"github.com/pthm-cable/signals/systems"
	"github.com/pthm-cable/signals/telemetry"
)

// refillChance is the per-frame chance of topping up the particle layer.
const refillChance = 0.1

// controlPopulation moves the live node count toward NumNodes. In
// background mode new nodes only appear where particles annihilate, and
// an excess is left alone.
func (d *Driver) controlPopulation() {
	cfg := d.eng.Config()
	live := d.eng.LiveCount()

	if cfg.BackgroundEnabled && d.particles != nil {
		d.perf.StartPhase(telemetry.PhaseParticles)
		if d.refill || d.rng.Float64() < refillChance {
			target := systems.Target(cfg.ViewportWidth*cfg.ViewportHeight, cfg.ParticleDensity)
			radius := float32(cfg.BaseNodeRadius * d.cfg.Background.ParticleRadiusFactor)
			d.particles.Fill(target, radius)
			d.refill = false
		}
		d.particles.Step(live < cfg.NumNodes, func(x, y float64) {
			d.eng.AddNode(&x, &y)
		})
		return
	}

	switch {
	case live < cfg.NumNodes:
		n := max(1, int(float64(cfg.NumNodes-live)*d.cfg.Population.AddFraction))
		for i := 0; i < n; i++ {
			d.eng.AddNode(nil, nil)
		}
	case live > cfg.NumNodes:
		n := max(1, int(float64(live-cfg.NumNodes)*d.cfg.Population.RemoveFraction))
		d.eng.RemoveLeastConnectedNodes(n)
	}
}
