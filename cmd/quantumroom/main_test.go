package main

import (
	"testing"

	"github.com/nathoo/quantumroom/config"
	"github.com/nathoo/quantumroom/engine"
)

func TestEngineOptions_Seed(t *testing.T) {
	tests := []struct {
		name    string
		seed    int64
		seedSet bool
		want    int64
		seeded  bool
	}{
		{"no seed picks random", 0, false, 0, false},
		{"config seed", 42, false, 42, true},
		{"explicit zero flag", 0, true, 0, true},
		{"explicit flag", 7, true, 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Seed = tt.seed

			opts := engineOptions(cfg, tt.seedSet, nil)
			if !tt.seeded {
				if opts.Source != nil {
					t.Errorf("Source = %v, want nil so the engine seeds randomly", opts.Source)
				}
				return
			}
			rng, ok := opts.Source.(*engine.RNG)
			if !ok {
				t.Fatalf("Source = %T, want *engine.RNG", opts.Source)
			}
			if rng.Seed() != tt.want {
				t.Errorf("Seed() = %d, want %d", rng.Seed(), tt.want)
			}
		})
	}
}

func TestEngineOptions_Scoring(t *testing.T) {
	cfg := config.Default()
	cfg.Scoring.Success = 75
	cfg.LowTime = 5

	opts := engineOptions(cfg, false, nil)
	if opts.Scoring == nil || opts.Scoring.Success != 75 {
		t.Errorf("Scoring = %+v, want Success 75", opts.Scoring)
	}
	if opts.LowTime != 5 {
		t.Errorf("LowTime = %d, want 5", opts.LowTime)
	}
}
