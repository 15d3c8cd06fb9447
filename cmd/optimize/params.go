package main

import (
	"math"

	"github.com/pthm-cable/signals/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Integer bool    // rounded before use

	get func(*config.EngineConfig) float64
	set func(*config.EngineConfig, float64)
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{
				Name: "emit_rate", Path: "engine.emit_rate", Min: 0.005, Max: 0.2,
				get: func(e *config.EngineConfig) float64 { return e.EmitRate },
				set: func(e *config.EngineConfig, v float64) { e.EmitRate = v },
			},
			{
				Name: "decay_rate", Path: "engine.decay_rate", Min: 0.005, Max: 0.5,
				get: func(e *config.EngineConfig) float64 { return e.DecayRate },
				set: func(e *config.EngineConfig, v float64) { e.DecayRate = v },
			},
			{
				Name: "signal_weight", Path: "engine.signal_weight", Min: 10, Max: 500,
				get: func(e *config.EngineConfig) float64 { return e.SignalWeight },
				set: func(e *config.EngineConfig, v float64) { e.SignalWeight = v },
			},
			{
				Name: "signal_cost", Path: "engine.signal_cost", Min: 0.1, Max: 5,
				get: func(e *config.EngineConfig) float64 { return e.SignalCost },
				set: func(e *config.EngineConfig, v float64) { e.SignalCost = v },
			},
			{
				Name: "node_health", Path: "engine.node_health", Min: 50, Max: 600,
				get: func(e *config.EngineConfig) float64 { return e.NodeHealth },
				set: func(e *config.EngineConfig, v float64) { e.NodeHealth = v },
			},
			{
				Name: "link_strong", Path: "engine.link_strong", Min: 1000, Max: 50000,
				get: func(e *config.EngineConfig) float64 { return e.LinkStrong },
				set: func(e *config.EngineConfig, v float64) { e.LinkStrong = v },
			},
			{
				Name: "node_group_threshold", Path: "engine.node_group_threshold", Min: 2, Max: 6, Integer: true,
				get: func(e *config.EngineConfig) float64 { return float64(e.NodeGroupThreshold) },
				set: func(e *config.EngineConfig, v float64) { e.NodeGroupThreshold = int(v) },
			},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Names returns the parameter names in vector order.
func (pv *ParamVector) Names() []string {
	names := make([]string, len(pv.Specs))
	for i, spec := range pv.Specs {
		names[i] = spec.Name
	}
	return names
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp bounds every value and rounds integer parameters.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := math.Min(math.Max(v[i], spec.Min), spec.Max)
		if spec.Integer {
			val = math.Round(val)
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(&cfg.Engine, v)
	}
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.get(&cfg.Engine)
	}
	return v
}
