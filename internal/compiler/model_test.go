package compiler

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statefuzz/internal/expr"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/state"
	"github.com/roach88/statefuzz/internal/testutil"
)

func mustCompile(t *testing.T, spec *ir.ModelSpec) *Compiled {
	t.Helper()
	c, err := CompileModel(spec)
	require.NoError(t, err)
	return c
}

func mustAction(t *testing.T, c *Compiled, name string) state.Action {
	t.Helper()
	a, ok := c.Model.Lookup(name)
	require.True(t, ok, "action %s not found", name)
	return a
}

func TestCompileModelScenarioA(t *testing.T) {
	c := mustCompile(t, testutil.ScenarioA())

	require.Len(t, c.Model.Actions, 2)
	assert.Equal(t, "deposit", c.Model.Actions[0].Name())
	assert.Equal(t, "bonus-withdraw", c.Model.Actions[1].Name())

	require.Len(t, c.Invariants, 1)
	inv := c.Invariants[0]
	assert.Equal(t, "non-negative-balance", inv.Name())
	assert.Equal(t, "Balance must never go negative", inv.Description())
	assert.Equal(t, "HIGH", inv.Severity())
}

func TestCompileModelDoesNotAliasSpec(t *testing.T) {
	spec := testutil.ScenarioA()
	c := mustCompile(t, spec)

	c.Model.Initial.Storage["balance"] = ir.IRInt(99)
	assert.Equal(t, ir.IRInt(0), spec.InitialStorage["balance"])
}

func TestCompileModelRecordsSource(t *testing.T) {
	spec := testutil.ScenarioB()
	spec.Source = "models/drain.yaml"

	c := mustCompile(t, spec)
	assert.Equal(t, ir.IRString("models/drain.yaml"), c.Model.Initial.Metadata["source"])

	sig, err := c.Model.Initial.Signature()
	require.NoError(t, err)
	spec.Source = ""
	other := mustCompile(t, spec)
	otherSig, err := other.Model.Initial.Signature()
	require.NoError(t, err)
	assert.Equal(t, sig, otherSig, "metadata must not affect the signature")
}

func TestInvariantDefaults(t *testing.T) {
	c := mustCompile(t, &ir.ModelSpec{
		Invariants: []ir.InvariantSpec{{Expression: "balance >= 0"}},
	})

	inv := c.Invariants[0]
	assert.Equal(t, "invariant", inv.Name())
	assert.Equal(t, "balance >= 0", inv.Description())
	assert.Equal(t, "HIGH", inv.Severity())
}

func TestActionDefaults(t *testing.T) {
	c := mustCompile(t, &ir.ModelSpec{
		InitialStorage: ir.IRObject{"n": ir.IRInt(1)},
		Actions: []ir.ActionSpec{{
			StateUpdates: []ir.UpdateSpec{{Target: "n", Value: ir.IRInt(7)}},
		}},
	})

	a := mustAction(t, c, "action")
	ok, err := a.Applicable(c.Model.Initial)
	require.NoError(t, err)
	assert.True(t, ok, "no precondition means always applicable")

	next, note, err := a.Apply(c.Model.Initial.Clone(), ir.IRObject{})
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(7), next.Storage["n"], "op defaults to set")
	assert.Equal(t, "n=7", note)
}

func TestApplicableSeesBalancesOverStorage(t *testing.T) {
	c := mustCompile(t, testutil.ScenarioA())
	withdraw := mustAction(t, c, "bonus-withdraw")

	s := c.Model.Initial.Clone()
	ok, err := withdraw.Applicable(s)
	require.NoError(t, err)
	assert.False(t, ok)

	s.Balances["unlocked"] = ir.IRBool(true)
	ok, err = withdraw.Applicable(s)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApplyDeposit(t *testing.T) {
	c := mustCompile(t, testutil.ScenarioA())
	deposit := mustAction(t, c, "deposit")

	initial := c.Model.Initial
	params, err := deposit.GenerateParameters(initial, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"amount": ir.IRInt(12)}, params)

	next, note, err := deposit.Apply(initial.Clone(), params)
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(12), next.Storage["balance"])
	assert.Equal(t, ir.IRBool(true), next.Storage["unlocked"])
	assert.Equal(t, "balance=12, unlocked=true", note)

	assert.Equal(t, ir.IRInt(0), initial.Storage["balance"], "source state must be untouched")
}

func TestApplyConditionFalseSkipsDirective(t *testing.T) {
	spec := testutil.ScenarioA()
	spec.Actions[0].Inputs["amount"] = ir.IRInt(5)
	c := mustCompile(t, spec)

	next, note, err := mustAction(t, c, "deposit").Apply(c.Model.Initial.Clone(), ir.IRObject{"amount": ir.IRInt(5)})
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(5), next.Storage["balance"])
	assert.Equal(t, ir.IRBool(false), next.Storage["unlocked"])
	assert.Equal(t, "balance=5", note)
}

func TestApplyConditionSeesEarlierUpdates(t *testing.T) {
	c := mustCompile(t, &ir.ModelSpec{
		InitialStorage: ir.IRObject{"armed": ir.IRBool(false)},
		Actions: []ir.ActionSpec{{
			Name: "fire",
			StateUpdates: []ir.UpdateSpec{
				{Target: "armed", Op: ir.OpSet, Value: ir.IRBool(true)},
				{Target: "shots", Op: ir.OpAdd, Value: ir.IRInt(1), Condition: "armed"},
			},
		}},
	})

	next, _, err := mustAction(t, c, "fire").Apply(c.Model.Initial.Clone(), ir.IRObject{})
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(1), next.Storage["shots"], "add on a missing target starts from zero")
}

func TestApplyConditionParamsOverrideStorage(t *testing.T) {
	c := mustCompile(t, &ir.ModelSpec{
		InitialStorage: ir.IRObject{"amount": ir.IRInt(0), "hits": ir.IRInt(0)},
		Actions: []ir.ActionSpec{{
			Name:   "spend",
			Inputs: ir.IRObject{"amount": ir.IRInt(20)},
			StateUpdates: []ir.UpdateSpec{
				{Target: "hits", Op: ir.OpAdd, Value: ir.IRInt(1), Condition: "amount > 10"},
			},
		}},
	})
	spend := mustAction(t, c, "spend")

	params, err := spend.GenerateParameters(c.Model.Initial, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	require.Equal(t, ir.IRObject{"amount": ir.IRInt(20)}, params)

	next, note, err := spend.Apply(c.Model.Initial.Clone(), params)
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(1), next.Storage["hits"], "guard must see the parameter, not the stored amount")
	assert.Equal(t, ir.IRInt(0), next.Storage["amount"])
	assert.Equal(t, "hits=1", note)
}

func TestApplyTypeErrorSurfaces(t *testing.T) {
	c := mustCompile(t, &ir.ModelSpec{
		InitialStorage: ir.IRObject{"label": ir.IRString("x")},
		Actions: []ir.ActionSpec{{
			Name:         "bump",
			StateUpdates: []ir.UpdateSpec{{Target: "label", Op: ir.OpAdd, Value: ir.IRInt(1)}},
		}},
	})

	_, _, err := mustAction(t, c, "bump").Apply(c.Model.Initial.Clone(), ir.IRObject{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, expr.ErrUnsupportedExpression))
	assert.Contains(t, err.Error(), "bump")
}

func TestGenerateParametersRanges(t *testing.T) {
	c := mustCompile(t, &ir.ModelSpec{
		Actions: []ir.ActionSpec{{
			Name: "pick",
			Inputs: ir.IRObject{
				"amount": ir.IRArray{ir.IRInt(1), ir.IRInt(5)},
				"memo":   ir.IRString("fixed"),
				"pair":   ir.IRArray{ir.IRString("a"), ir.IRFloat(1.5)},
			},
		}},
	})
	pick := mustAction(t, c, "pick")

	draw := func(seed uint64) []ir.IRObject {
		rng := rand.New(rand.NewPCG(seed, 0))
		var out []ir.IRObject
		for range 50 {
			p, err := pick.GenerateParameters(c.Model.Initial, rng)
			require.NoError(t, err)
			out = append(out, p)
		}
		return out
	}

	first := draw(7)
	assert.Equal(t, first, draw(7), "same seed must give the same draws")

	for _, p := range first {
		n, ok := p["amount"].(ir.IRInt)
		require.True(t, ok)
		assert.GreaterOrEqual(t, int64(n), int64(1))
		assert.LessOrEqual(t, int64(n), int64(5))
		assert.Equal(t, ir.IRString("fixed"), p["memo"])
		assert.Equal(t, ir.IRArray{ir.IRString("a"), ir.IRFloat(1.5)}, p["pair"], "non-numeric arrays are literals")
	}
}

func TestGenerateParametersDegenerateRange(t *testing.T) {
	c := mustCompile(t, testutil.ScenarioB())
	drain := mustAction(t, c, "drain")

	params, err := drain.GenerateParameters(c.Model.Initial, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"amount": ir.IRInt(10)}, params)
}

func TestInvariantHolds(t *testing.T) {
	c := mustCompile(t, testutil.ScenarioA())
	inv := c.Invariants[0]

	s := c.Model.Initial.Clone()
	ok, err := inv.Holds(s)
	require.NoError(t, err)
	assert.True(t, ok)

	s.Storage["balance"] = ir.IRInt(-12)
	ok, err = inv.Holds(s)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompileModelErrors(t *testing.T) {
	t.Run("bad expression is fatal", func(t *testing.T) {
		spec := testutil.ScenarioA()
		spec.Actions[1].Precondition = "balance.owner"

		_, err := CompileModel(spec)
		require.Error(t, err)
		assert.True(t, errors.Is(err, expr.ErrUnsupportedExpression))
		assert.False(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "actions[1].precondition")
	})

	t.Run("schema problems are validation errors", func(t *testing.T) {
		spec := testutil.ScenarioA()
		spec.Actions[1].Name = "deposit"

		_, err := CompileModel(spec)
		require.Error(t, err)
		require.True(t, IsValidationError(err))

		var verrs ValidationErrors
		require.True(t, errors.As(err, &verrs))
		require.Len(t, verrs, 1)
		assert.Equal(t, ErrDuplicateName, verrs[0].Code)
	})
}

func TestSpecHash(t *testing.T) {
	jsonSpec, err := LoadModelFile("testdata/scenario_a.json")
	require.NoError(t, err)
	cueSpec, err := LoadModelFile("testdata/scenario_a.cue")
	require.NoError(t, err)

	jsonHash, err := SpecHash(jsonSpec)
	require.NoError(t, err)
	cueHash, err := SpecHash(cueSpec)
	require.NoError(t, err)
	assert.Equal(t, jsonHash, cueHash, "format and path do not change the hash")

	changed := testutil.ScenarioA()
	changed.Actions[0].Inputs["amount"] = ir.IRInt(13)
	changedHash, err := SpecHash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, jsonHash, changedHash)

	c := mustCompile(t, jsonSpec)
	assert.Equal(t, jsonHash, c.Hash)
}
