package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/statefuzz/internal/ir"
)

// Snapshot returns the canonical JSON compared against golden files:
// the scenario name and every finding in discovery order.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	findings := make(ir.IRArray, len(result.Findings))
	for i, f := range result.Findings {
		findings[i] = f.ToIR()
	}
	return ir.MarshalCanonical(ir.IRObject{
		"scenario_name": ir.IRString(scenarioName),
		"findings":      findings,
	})
}

// RunWithGolden executes a scenario and compares its findings against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if findings don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
