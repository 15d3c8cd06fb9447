// Package components defines ECS components for the background particle layer.
package components

// Charge splits background particles into two populations. Only particles
// of opposite charge react on contact.
type Charge uint8

const (
	ChargeRed Charge = iota
	ChargeGreen
)

// Opposes reports whether c and o react on contact.
func (c Charge) Opposes(o Charge) bool { return c != o }

// Particle is a drifting background particle.
type Particle struct {
	Charge Charge
	Radius float32
}

// Spark is one fragment of the burst left where two particles reacted.
type Spark struct {
	Life    int32
	MaxLife int32
	Size    float32
}

// Alpha is the spark's remaining opacity.
func (s Spark) Alpha() float32 {
	if s.MaxLife <= 0 {
		return 0
	}
	return 0.5 * float32(s.Life) / float32(s.MaxLife)
}
