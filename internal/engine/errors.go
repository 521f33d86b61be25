package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/statefuzz/internal/expr"
)

// RuntimeError represents an error detected during exploration or replay.
//
// Runtime errors include:
//   - Unsupported expression: a precondition, condition or invariant could
//     not be evaluated
//   - Action failure: an action's precondition, parameter draw or effect
//     returned an error
//   - Invariant failure: an invariant returned an error instead of a verdict
//   - Missing action: a replayed step names an action the model lacks
//
// The wrapped Err stays reachable through errors.Is and errors.As.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Action names the action involved, if any.
	Action string

	// Invariant names the invariant involved, if any.
	Invariant string

	// Depth is the trace length of the frame being processed.
	Depth int

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnsupportedExpression indicates an expression outside the grammar
	// or applied to operands it does not support.
	ErrCodeUnsupportedExpression RuntimeErrorCode = "UNSUPPORTED_EXPRESSION"

	// ErrCodeActionFailed indicates an action returned an error.
	ErrCodeActionFailed RuntimeErrorCode = "ACTION_FAILED"

	// ErrCodeInvariantFailed indicates an invariant returned an error.
	ErrCodeInvariantFailed RuntimeErrorCode = "INVARIANT_FAILED"

	// ErrCodeSignatureFailed indicates a state could not be hashed.
	ErrCodeSignatureFailed RuntimeErrorCode = "SIGNATURE_FAILED"

	// ErrCodeMissingAction indicates a replayed action doesn't exist.
	ErrCodeMissingAction RuntimeErrorCode = "MISSING_ACTION"

	// ErrCodeNotApplicable indicates a replayed action was not applicable or
	// declined to fire.
	ErrCodeNotApplicable RuntimeErrorCode = "NOT_APPLICABLE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Action != "":
		msg += fmt.Sprintf(" (action=%s, depth=%d)", e.Action, e.Depth)
	case e.Invariant != "":
		msg += fmt.Sprintf(" (invariant=%s, depth=%d)", e.Invariant, e.Depth)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// newRuntimeError wraps err, upgrading the code to
// ErrCodeUnsupportedExpression when an expression is at fault.
func newRuntimeError(code RuntimeErrorCode, action, invariant string, depth int, err error) *RuntimeError {
	msg := "action failed"
	if invariant != "" {
		msg = "invariant could not be evaluated"
	}
	if expr.IsUnsupportedExpression(err) {
		code = ErrCodeUnsupportedExpression
		msg = "expression cannot be evaluated"
	}
	return &RuntimeError{
		Code:      code,
		Message:   msg,
		Action:    action,
		Invariant: invariant,
		Depth:     depth,
		Err:       err,
	}
}

// IsRuntimeError reports whether err is (or wraps) a RuntimeError with the
// given code.
func IsRuntimeError(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnsupportedExpressionError returns true if the search stopped on an
// expression it could not evaluate.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedExpressionError(err error) bool {
	return IsRuntimeError(err, ErrCodeUnsupportedExpression) || expr.IsUnsupportedExpression(err)
}

// IsQuotaError returns true if the error is a step budget error.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
