package engine

import "math"

// minLinkStrength is the strength at or below which a link is pruned.
const minLinkStrength = 1

// denseLinkStrength counts a link towards graph density.
const denseLinkStrength = 1000

// baseEmitRate is the emit rate the decay table was tuned against.
const baseEmitRate = 0.02

// DecayLinks weakens every non-perma link by DecayRate and prunes those
// that fall to minLinkStrength or below. Perma links are never pruned,
// whatever their strength.
func (e *Engine) DecayLinks() {
	var pruned []*Link
	for _, l := range e.links.all {
		if l.PermaBond {
			continue
		}
		l.Strength = math.Max(0, l.Strength-e.cfg.DecayRate)
		if l.Strength <= minLinkStrength {
			pruned = append(pruned, l)
		}
	}
	for _, l := range pruned {
		e.links.remove(l)
	}
	if len(pruned) > 0 {
		e.rec.RecordLinksPruned(len(pruned))
	}
}

// decaySteps maps viewport area per dense element to a decay rate. Sparse
// graphs decay slowly so links have time to form.
var decaySteps = []struct {
	density float64
	rate    float64
}{
	{5_000_000, 0.0001},
	{200_000, 0.001},
	{100_000, 0.01},
	{20_000, 0.1},
}

// UpdateDecayRate recalibrates DecayRate from how crowded the viewport is
// with strong links and merged nodes, scaled by the emit rate.
func (e *Engine) UpdateDecayRate() float64 {
	count := 0
	for _, l := range e.links.all {
		if l.Strength > denseLinkStrength {
			count++
		}
	}
	for _, id := range e.order {
		if n := e.nodes[id]; !n.IsContained {
			count += len(n.ContainedNodes)
		}
	}

	density := math.Inf(1)
	if count > 0 {
		density = e.cfg.ViewportWidth * e.cfg.ViewportHeight / float64(count)
	}

	rate := 1.0
	for _, step := range decaySteps {
		if density > step.density {
			rate = step.rate
			break
		}
	}
	rate *= e.cfg.EmitRate / baseEmitRate

	if rate != e.cfg.DecayRate {
		e.log.Debug("decay recalibrated", "density", density, "from", e.cfg.DecayRate, "to", rate)
	}
	e.cfg.DecayRate = rate
	return rate
}
