package harness

import (
	"context"
	"fmt"

	"github.com/roach88/statefuzz/internal/scan"
	"github.com/roach88/statefuzz/internal/testutil"
)

// Run explores a scenario's model and evaluates its assertions.
//
// The run uses a fixed run ID (the scenario name) and discards logs, so
// identical scenarios produce identical results.
//
// A model that cannot be loaded is not an error: the result carries the
// failed ToolResult and the assertions decide. Fatal exploration errors,
// such as an expression the evaluator cannot handle, are returned.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	tool, findings, err := scan.Run(ctx, scenario.Model, scan.Options{
		MaxDepth:    scenario.MaxDepth,
		MaxBranches: scenario.MaxBranches,
		Seed:        scenario.Seed,
		StepBudget:  scenario.StepBudget,
		RunIDs:      testutil.NewFixedRunIDGenerator(scenario.Name),
		Logger:      testutil.QuietLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("run scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	result.Tool = tool
	result.Summary = tool.Summary
	if findings != nil {
		result.Findings = findings
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
