package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/testutil"
)

func TestValidateModelFixturesAreClean(t *testing.T) {
	for name, spec := range map[string]*ir.ModelSpec{
		"scenario-a":   testutil.ScenarioA(),
		"scenario-b":   testutil.ScenarioB(),
		"safe-counter": testutil.SafeCounter(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, ValidateModel(spec))
		})
	}
}

func TestValidateModelCodes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.ModelSpec)
		code   string
		field  string
	}{
		{
			name:   "duplicate action",
			mutate: func(s *ir.ModelSpec) { s.Actions[1].Name = "deposit" },
			code:   ErrDuplicateName,
			field:  "actions[1].name",
		},
		{
			name: "duplicate default invariant name",
			mutate: func(s *ir.ModelSpec) {
				s.Invariants = []ir.InvariantSpec{{Expression: "balance >= 0"}, {Expression: "balance < 100"}}
			},
			code:  ErrDuplicateName,
			field: "invariants[1].name",
		},
		{
			name:   "precondition outside grammar",
			mutate: func(s *ir.ModelSpec) { s.Actions[1].Precondition = "not unlocked" },
			code:   ErrInvalidExpression,
			field:  "actions[1].precondition",
		},
		{
			name:   "condition outside grammar",
			mutate: func(s *ir.ModelSpec) { s.Actions[0].StateUpdates[1].Condition = "amount * 2 > 10" },
			code:   ErrInvalidExpression,
			field:  "actions[0].state_updates[1].condition",
		},
		{
			name:   "inverted range",
			mutate: func(s *ir.ModelSpec) { s.Actions[0].Inputs["amount"] = ir.IRArray{ir.IRInt(5), ir.IRInt(1)} },
			code:   ErrInvalidRange,
			field:  "actions[0].inputs.amount",
		},
		{
			name:   "float range bound",
			mutate: func(s *ir.ModelSpec) { s.Actions[0].Inputs["amount"] = ir.IRArray{ir.IRInt(1), ir.IRFloat(2.5)} },
			code:   ErrInvalidRange,
			field:  "actions[0].inputs.amount",
		},
		{
			name:   "missing target",
			mutate: func(s *ir.ModelSpec) { s.Actions[0].StateUpdates[0].Target = " " },
			code:   ErrMissingTarget,
			field:  "actions[0].state_updates[0].target",
		},
		{
			name:   "unknown op",
			mutate: func(s *ir.ModelSpec) { s.Actions[0].StateUpdates[0].Op = "mul" },
			code:   ErrInvalidOp,
			field:  "actions[0].state_updates[0].op",
		},
		{
			name:   "undeclared value_from",
			mutate: func(s *ir.ModelSpec) { s.Actions[1].StateUpdates[0].ValueFrom = "amt" },
			code:   ErrUnknownParameter,
			field:  "actions[1].state_updates[0].value_from",
		},
		{
			name: "add without operand",
			mutate: func(s *ir.ModelSpec) {
				s.Actions[0].StateUpdates[0].ValueFrom = ""
			},
			code:  ErrMissingValue,
			field: "actions[0].state_updates[0]",
		},
		{
			name:   "empty invariant",
			mutate: func(s *ir.ModelSpec) { s.Invariants[0].Expression = "  " },
			code:   ErrMissingExpression,
			field:  "invariants[0].expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testutil.ScenarioA()
			tt.mutate(spec)

			errs := ValidateModel(spec)
			require.Len(t, errs, 1, "errors: %v", errs)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidateModelCollectsAllErrors(t *testing.T) {
	spec := testutil.ScenarioA()
	spec.Actions[0].StateUpdates[0].Op = "mul"
	spec.Invariants[0].Expression = ""

	errs := ValidateModel(spec)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrInvalidOp, errs[0].Code)
	assert.Equal(t, ErrMissingExpression, errs[1].Code)

	assert.Contains(t, ValidationErrors(errs).Error(), "[E105]")
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		value   ir.IRValue
		lo, hi  int64
		ranged  bool
		wantErr bool
	}{
		{"scalar", ir.IRInt(3), 0, 0, false, false},
		{"pair", ir.IRArray{ir.IRInt(-2), ir.IRInt(4)}, -2, 4, true, false},
		{"degenerate", ir.IRArray{ir.IRInt(10), ir.IRInt(10)}, 10, 10, true, false},
		{"three elements", ir.IRArray{ir.IRInt(1), ir.IRInt(2), ir.IRInt(3)}, 0, 0, false, false},
		{"strings", ir.IRArray{ir.IRString("a"), ir.IRString("b")}, 0, 0, false, false},
		{"float bound", ir.IRArray{ir.IRFloat(0.5), ir.IRInt(2)}, 0, 0, true, true},
		{"inverted", ir.IRArray{ir.IRInt(3), ir.IRInt(1)}, 3, 1, true, true},
		{"full width", ir.IRArray{ir.IRInt(-1 << 63), ir.IRInt(1<<63 - 1)}, -1 << 63, 1<<63 - 1, true, true},
		{"widest allowed", ir.IRArray{ir.IRInt(0), ir.IRInt(1<<63 - 2)}, 0, 1<<63 - 2, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ranged, err := parseRange(tt.value)
			assert.Equal(t, tt.ranged, ranged)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}
