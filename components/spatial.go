package components

// Position is a particle's location in world coordinates, centred on the
// origin like engine node positions.
type Position struct {
	X, Y float32
}

// Velocity is a particle's displacement per frame.
type Velocity struct {
	X, Y float32
}
