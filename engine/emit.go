package engine

import (
	"math"
	"time"

	"github.com/pthm-cable/signals/identity"
)

// EmitSignals runs the emission phase: every live node emits with chance
// EmitRate, each signal hits its nearest target, hits exchange identity and
// grow links, and nodes whose health ran out are removed afterwards.
func (e *Engine) EmitSignals() {
	live := e.liveNodes()
	now := e.now()

	for _, src := range live {
		if e.rng.Float64() >= e.cfg.EmitRate {
			continue
		}
		n := src.CountSignals(e.lookup)
		for i := 0; i < n; i++ {
			sig := NewSignal(src, e.cfg.SignalWeight, e.cfg.SignalCost, RandomAngle(e.rng), now)
			e.emit(src, sig, live)
		}
	}

	e.reapDead()
	e.fadeEmits(now)
}

// emit resolves a single signal from src against the live nodes.
func (e *Engine) emit(src *Node, sig *Signal, live []*Node) {
	src.drain(sig.Cost)

	var target *Node
	best := math.Inf(1)
	for _, n := range live {
		if n == src || n.IsContained {
			continue
		}
		if !e.geom.RayHit(sig, n) {
			continue
		}
		if d := e.geom.Distance(src, n); d < best {
			best, target = d, n
		}
	}

	e.rec.RecordSignal(target != nil)
	if target != nil {
		sig.Hit = true
		sig.Target = target.ID
		sig.Distance = best
	}
	if e.cfg.EmitsEnabled {
		e.emits = append(e.emits, sig)
	}
	if target == nil {
		return
	}

	sig.Update(target.Identity, levelFactor(src.Level-target.Level), e.rng)
	target.Color = target.Identity.Color()

	sim := identity.Similarity(sig.Identity, target.Identity)
	if sim <= 0 {
		return
	}
	if e.cfg.LinkingEnabled {
		e.strengthen(src, target, sim)
	}
	src.heal(math.Pow(sim, 0.25))
	target.heal(math.Pow(sim, 0.125))
}

// levelFactor weights an exchange by the level gap: a bigger source pushes
// harder, a bigger target is harder to move.
func levelFactor(diff int) float64 {
	switch {
	case diff > 0:
		return math.Sqrt(float64(diff + 1))
	case diff < 0:
		return 1 / math.Sqrt(float64(-diff+1))
	default:
		return 1
	}
}

// strengthen adds sim to the src->dst link, creating it if needed. Links
// that reach the perma threshold are pinned there and stop decaying.
func (e *Engine) strengthen(src, dst *Node, sim float64) {
	threshold := e.cfg.LinkPermaBondThreshold
	l := e.links.get(src.ID, dst.ID)
	if l == nil {
		l = &Link{Source: src, Target: dst}
		e.links.add(l)
		e.rec.RecordLinkCreated()
	}

	updated := l.Strength + sim
	switch {
	case l.PermaBond:
		l.Strength = math.Max(l.Strength, threshold)
	case e.cfg.LinkPermaBond && updated >= threshold:
		l.Strength = threshold
		l.PermaBond = true
		e.rec.RecordPermaBond()
		e.log.Debug("perma bond", "source", src.ID, "target", dst.ID)
	default:
		l.Strength = updated
	}
}

// reapDead removes live nodes at zero health. Containers release their
// children before going.
func (e *Engine) reapDead() {
	var dead []*Node
	for _, id := range e.order {
		if n := e.nodes[id]; !n.IsContained && n.Health <= 0 {
			dead = append(dead, n)
		}
	}
	for _, n := range dead {
		e.links.removeIncident(n.ID)
		if n.IsContainer() {
			e.DownLevelNode(n)
		}
		e.deleteNode(n)
		e.rec.RecordNodeDied()
	}
}

// fadeEmits ages the recorded signals and drops spent ones.
func (e *Engine) fadeEmits(now time.Time) {
	ttl := time.Duration(e.cfg.EmitTTLMillis) * time.Millisecond
	kept := e.emits[:0]
	for _, s := range e.emits {
		s.H--
		if s.H <= 0 || s.Age(now) > ttl {
			continue
		}
		kept = append(kept, s)
	}
	clear(e.emits[len(kept):])
	e.emits = kept
}
