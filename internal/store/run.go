package store

import (
	"errors"

	"github.com/roach88/statefuzz/internal/finding"
)

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted exploration.
type Run struct {
	ID              string
	Target          string
	ModelHash       string
	Seed            uint64
	MaxDepth        int
	MaxBranches     int
	StepBudget      int
	Success         bool
	Error           string
	ExploredTraces  int
	UniqueStates    int
	Popped          int
	DurationSeconds float64
	EngineVersion   string

	// Coverage and Findings are filled by ReadRun; ListRuns leaves them nil.
	Coverage []string
	Findings []finding.Finding
}

// StoredFinding is a finding together with where it was recorded.
type StoredFinding struct {
	RunID       string          `json:"run_id"`
	Seq         int             `json:"seq"`
	Fingerprint string          `json:"fingerprint"`
	Finding     finding.Finding `json:"finding"`
}
