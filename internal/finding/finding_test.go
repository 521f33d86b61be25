package finding

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statefuzz/internal/compiler"
	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/state"
	"github.com/roach88/statefuzz/internal/testutil"
)

func drainViolation() state.Violation {
	drained := state.State{
		Storage:  ir.IRObject{"balance": ir.IRInt(-5)},
		Balances: ir.IRObject{},
		Metadata: ir.IRObject{"source": ir.IRString("m.json")},
	}
	return state.Violation{
		Invariant:   "solvent",
		Description: "d",
		Severity:    "HIGH",
		Trace: []state.ActionResult{{
			Action:     "drain",
			Parameters: ir.IRObject{"amount": ir.IRInt(10)},
			State:      drained,
			Note:       "balance=-5",
		}},
		Snapshot: drained,
	}
}

func TestFromViolation(t *testing.T) {
	f := FromViolation(drainViolation(), WithSeed(7), WithCoverage(3, 4))

	assert.Equal(t, "state-fuzzer", f.Tool)
	assert.Equal(t, "Invariant violated: solvent", f.Title)
	assert.Equal(t, "d", f.Description)
	assert.Equal(t, "HIGH", f.Severity)
	assert.Equal(t, "state-invariant", f.Category)
	assert.Equal(t, "m.json", f.FilePath)
	assert.Equal(t, ir.EngineVersion, f.ToolVersion)
	assert.Equal(t, "7", f.InputSeed)
	assert.Equal(t, ir.IRObject{"unique_states": ir.IRInt(3), "explored_traces": ir.IRInt(4)}, f.Coverage)
	assert.Equal(t, []string{"drain"}, f.Actions)
	assert.Equal(t, ir.IRObject{"balance": ir.IRInt(-5)}, f.Raw["snapshot"])

	trace, ok := f.Raw["trace"].(ir.IRArray)
	require.True(t, ok)
	require.Len(t, trace, 1)
	assert.Equal(t, ir.IRObject{
		"action":     ir.IRString("drain"),
		"parameters": ir.IRObject{"amount": ir.IRInt(10)},
		"note":       ir.IRString("balance=-5"),
		"state":      ir.IRObject{"balance": ir.IRInt(-5)},
	}, trace[0])
}

func TestFromViolationDoesNotAlias(t *testing.T) {
	v := drainViolation()
	f := FromViolation(v)

	v.Snapshot.Storage["balance"] = ir.IRInt(100)
	v.Trace[0].Parameters["amount"] = ir.IRInt(0)

	assert.Equal(t, ir.IRInt(-5), f.Raw["snapshot"].(ir.IRObject)["balance"])
	step := f.Raw["trace"].(ir.IRArray)[0].(ir.IRObject)
	assert.Equal(t, ir.IRInt(10), step["parameters"].(ir.IRObject)["amount"])
}

func TestCanonicalJSON(t *testing.T) {
	f := FromViolation(drainViolation(), WithSeed(7))

	got, err := f.CanonicalJSON()
	require.NoError(t, err)

	want := `{"actions":["drain"],"category":"state-invariant","description":"d","file_path":"m.json",` +
		`"input_seed":"7","invariant":"solvent",` +
		`"raw":{"snapshot":{"balance":-5},"trace":[{"action":"drain","note":"balance=-5","parameters":{"amount":10},"state":{"balance":-5}}]},` +
		`"severity":"HIGH","title":"Invariant violated: solvent","tool":"state-fuzzer","tool_version":"0.1.0"}`
	assert.Equal(t, want, string(got))
}

func TestJSONMatchesCanonicalKeys(t *testing.T) {
	f := FromViolation(drainViolation(), WithSeed(7), WithCoverage(1, 1))

	plain, err := json.Marshal(f)
	require.NoError(t, err)
	canonical, err := f.CanonicalJSON()
	require.NoError(t, err)

	var a, b map[string]any
	require.NoError(t, json.Unmarshal(plain, &a))
	require.NoError(t, json.Unmarshal(canonical, &b))
	assert.Equal(t, b, a)
}

func TestFingerprint(t *testing.T) {
	a := FromViolation(drainViolation())

	other := drainViolation()
	other.Trace[0].Parameters["amount"] = ir.IRInt(11)
	b := FromViolation(other, WithSeed(99))

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb, "parameters and seed do not change the fingerprint")
	assert.Len(t, fa, 64)

	c := FromViolation(drainViolation())
	c.Invariant = "other"
	fc, err := c.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}

func TestFromViolationsScenarioA(t *testing.T) {
	spec := testutil.ScenarioA()
	spec.Source = "scenario_a.json"
	c, err := compiler.CompileModel(spec)
	require.NoError(t, err)

	result, err := engine.New(c.Model, c.Invariants,
		engine.WithLogger(testutil.QuietLogger()),
		engine.WithMaxDepth(3), engine.WithMaxBranches(3)).Explore(context.Background())
	require.NoError(t, err)

	findings := FromViolations(result.Violations, WithSeed(result.Seed))
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "Invariant violated: non-negative-balance", f.Title)
	assert.Equal(t, "Balance must never go negative", f.Description)
	assert.Equal(t, "scenario_a.json", f.FilePath)
	assert.Equal(t, "1", f.InputSeed)
	assert.Equal(t, ir.IRInt(-12), f.Raw["snapshot"].(ir.IRObject)["balance"])

	trace := f.Raw["trace"].(ir.IRArray)
	require.Len(t, trace, 3)
	assert.Equal(t, ir.IRString("balance=12, unlocked=true"), trace[0].(ir.IRObject)["note"])
}
