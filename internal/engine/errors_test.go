package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/statefuzz/internal/expr"
)

func TestRuntimeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RuntimeError
		want string
	}{
		{
			name: "action context",
			err:  &RuntimeError{Code: ErrCodeActionFailed, Message: "action failed", Action: "deposit", Depth: 2, Err: errors.New("boom")},
			want: "ACTION_FAILED: action failed (action=deposit, depth=2): boom",
		},
		{
			name: "invariant context",
			err:  &RuntimeError{Code: ErrCodeInvariantFailed, Message: "invariant could not be evaluated", Invariant: "solvent"},
			want: "INVARIANT_FAILED: invariant could not be evaluated (invariant=solvent, depth=0)",
		},
		{
			name: "bare",
			err:  &RuntimeError{Code: ErrCodeSignatureFailed, Message: "cannot hash state"},
			want: "SIGNATURE_FAILED: cannot hash state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestNewRuntimeError_UpgradesExpressionErrors(t *testing.T) {
	_, cause := expr.Evaluate("'a' - 1", nil)
	assert.Error(t, cause)

	err := newRuntimeError(ErrCodeActionFailed, "deposit", "", 1, cause)
	assert.Equal(t, ErrCodeUnsupportedExpression, err.Code)
	assert.True(t, errors.Is(err, expr.ErrUnsupportedExpression))

	plain := newRuntimeError(ErrCodeActionFailed, "deposit", "", 1, errors.New("boom"))
	assert.Equal(t, ErrCodeActionFailed, plain.Code)
}

func TestIsRuntimeError_Wrapped(t *testing.T) {
	err := fmt.Errorf("scan: %w", &RuntimeError{Code: ErrCodeMissingAction})

	assert.True(t, IsRuntimeError(err, ErrCodeMissingAction))
	assert.False(t, IsRuntimeError(err, ErrCodeActionFailed))
	assert.False(t, IsRuntimeError(errors.New("plain"), ErrCodeMissingAction))
}

func TestIsUnsupportedExpressionError_Bare(t *testing.T) {
	_, err := expr.Parse("a * b")
	assert.True(t, IsUnsupportedExpressionError(err))
}
