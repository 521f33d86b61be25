package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/statefuzz/internal/engine"
)

// EnvConfig holds command defaults read from the environment.
// Flags given on the command line override these values.
type EnvConfig struct {
	MaxDepth    int    `env:"STATEFUZZ_MAX_DEPTH"`
	MaxBranches int    `env:"STATEFUZZ_MAX_BRANCHES"`
	Seed        uint64 `env:"STATEFUZZ_SEED"`
	StepBudget  int    `env:"STATEFUZZ_STEP_BUDGET" envDefault:"0"`
	Database    string `env:"STATEFUZZ_DB"`
}

// LoadEnvConfig parses STATEFUZZ_* variables. Unset bounds fall back to
// the engine defaults.
func LoadEnvConfig() (EnvConfig, error) {
	cfg := EnvConfig{
		MaxDepth:    engine.DefaultMaxDepth,
		MaxBranches: engine.DefaultMaxBranches,
		Seed:        engine.DefaultSeed,
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxDepth < 0 || cfg.MaxBranches < 0 || cfg.StepBudget < 0 {
		return cfg, fmt.Errorf("parse env: STATEFUZZ_MAX_DEPTH, STATEFUZZ_MAX_BRANCHES and STATEFUZZ_STEP_BUDGET must be non-negative")
	}
	return cfg, nil
}
