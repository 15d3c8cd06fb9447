package host

import (
	"fmt"

	"github.com/pthm-cable/signals/config"
	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/geometry"
)

// NewGeometry returns the geometry named by cfg.Engine.Geometry.
func NewGeometry(cfg *config.Config) (engine.Geometry, error) {
	switch cfg.Engine.Geometry {
	case "", "planar":
		return engine.Planar{}, nil
	case "sphere":
		return geometry.NewSphere(cfg.Sphere.Radius, cfg.Engine.BaseNodeRadius), nil
	default:
		return nil, fmt.Errorf("host: unknown geometry %q", cfg.Engine.Geometry)
	}
}
