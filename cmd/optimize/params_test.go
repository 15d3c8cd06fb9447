package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/signals/config"
)

func TestNormalizeRoundtrip(t *testing.T) {
	pv := NewParamVector()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	raw := pv.ExtractFromConfig(cfg)
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(raw[i]-back[i]) > 1e-9 {
			t.Errorf("%s: %v -> %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestApplyClampsAndRounds(t *testing.T) {
	pv := NewParamVector()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	values := make([]float64, pv.Dim())
	for i, spec := range pv.Specs {
		values[i] = spec.Max * 10
		if spec.Name == "node_group_threshold" {
			values[i] = 3.6
		}
	}
	pv.ApplyToConfig(cfg, values)

	got := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		want := spec.Max
		if spec.Name == "node_group_threshold" {
			want = 4
		}
		if got[i] != want {
			t.Errorf("%s = %v, want %v", spec.Name, got[i], want)
		}
	}
}

func TestParamNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range NewParamVector().Names() {
		if seen[name] {
			t.Errorf("duplicate parameter %q", name)
		}
		seen[name] = true
	}
}
