package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statefuzz/internal/expr"
)

func loadExample(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_ExampleScenariosPass(t *testing.T) {
	for _, name := range []string{"scenario_a", "scenario_b", "safe_counter"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(context.Background(), loadExample(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			require.NotNil(t, result.Summary)
			assert.Equal(t, name, result.Tool.RunID)
		})
	}
}

func TestRun_FailingAssertionsAreReported(t *testing.T) {
	s := loadExample(t, "scenario_a")
	s.Assertions = []Assertion{
		{Type: AssertFindingCount, Count: 2},
		{Type: AssertTraceEquals, Actions: []string{"deposit"}},
		{Type: AssertFinalStorage, Expect: map[string]any{"balance": 0}},
		{Type: AssertCoverageCount, Count: 1},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Expected: 2 findings")
	assert.Contains(t, result.Errors[1], "[deposit bonus-withdraw bonus-withdraw]")
	assert.Contains(t, result.Errors[2], `field "balance" = -12`)
	assert.Contains(t, result.Errors[3], "6 unique states")
}

func TestRun_StepBudgetFailsSuccessAssertion(t *testing.T) {
	s := loadExample(t, "scenario_a")
	s.StepBudget = 2
	yes := true
	s.Assertions = []Assertion{{Type: AssertSuccess, Success: &yes}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.False(t, result.Tool.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step budget")
}

func TestRun_UnloadableModelIsAnOutcome(t *testing.T) {
	s := loadExample(t, "safe_counter")
	s.Model = filepath.Join(t.TempDir(), "gone.json")
	no := false
	s.Assertions = []Assertion{
		{Type: AssertSuccess, Success: &no},
		{Type: AssertCoverageCount, Count: 4},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Nil(t, result.Summary)
	assert.Empty(t, result.Findings)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no summary")
	assert.Contains(t, result.Errors[0], "state model not found at")
}

func TestRun_UnsupportedExpressionIsAnError(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(model, []byte(`{
  "initial_storage": {"balance": 0},
  "invariants": [{"expression": "balance * 2 >= 0"}]
}`), 0o644))

	s := &Scenario{
		Name:        "bad",
		Description: "multiplication is outside the expression language",
		Model:       model,
		Assertions:  []Assertion{{Type: AssertFindingCount}},
	}

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.ErrorIs(t, err, expr.ErrUnsupportedExpression)
}
