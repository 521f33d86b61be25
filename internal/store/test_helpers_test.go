package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/statefuzz/internal/compiler"
	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/finding"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/testutil"
)

// createTestStore creates a new file-backed store under t.TempDir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields and no
// coverage or findings.
func createTestRun(id string) Run {
	return Run{
		ID:             id,
		Target:         "model.json",
		ModelHash:      "test-hash",
		Seed:           1,
		MaxDepth:       4,
		MaxBranches:    6,
		Success:        true,
		EngineVersion:  ir.EngineVersion,
		ExploredTraces: 0,
		UniqueStates:   1,
		Popped:         1,
	}
}

// exploredRun explores Scenario A and packs the outcome as a Run.
func exploredRun(t *testing.T, id string) Run {
	t.Helper()

	c, err := compiler.CompileModel(testutil.ScenarioA())
	if err != nil {
		t.Fatalf("CompileModel() failed: %v", err)
	}
	result, err := engine.New(c.Model, c.Invariants,
		engine.WithMaxDepth(3),
		engine.WithMaxBranches(3),
		engine.WithSeed(7),
		engine.WithLogger(testutil.QuietLogger()),
	).Explore(context.Background())
	if err != nil {
		t.Fatalf("Explore() failed: %v", err)
	}

	return Run{
		ID:             id,
		Target:         "scenario_a.json",
		ModelHash:      c.Hash,
		Seed:           result.Seed,
		MaxDepth:       result.MaxDepth,
		MaxBranches:    result.MaxBranches,
		Success:        true,
		ExploredTraces: result.Explored,
		UniqueStates:   result.UniqueStates(),
		Popped:         result.Popped,
		EngineVersion:  ir.EngineVersion,
		Coverage:       result.Coverage,
		Findings: finding.FromViolations(result.Violations,
			finding.WithSeed(result.Seed),
			finding.WithCoverage(result.UniqueStates(), result.Explored)),
	}
}
