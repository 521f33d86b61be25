package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts popped frames and enforces a step budget.
//
// Depth and branching already bound a search, but the bound is exponential
// in depth. The budget is a flat cap a caller can pick without doing that
// arithmetic.
type QuotaEnforcer struct {
	limit   int // Maximum allowed pops, 0 for unlimited
	current int // Pops so far
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
// A limit of 0 never trips.
func NewQuotaEnforcer(limit int) *QuotaEnforcer {
	return &QuotaEnforcer{limit: limit}
}

// Check increments the step counter and validates against the limit.
//
// Returns StepsExceededError if the budget is exhausted.
// This should be called before each pop.
func (q *QuotaEnforcer) Check() error {
	q.current++
	if q.limit > 0 && q.current > q.limit {
		return &StepsExceededError{
			Steps: q.current - 1,
			Limit: q.limit,
		}
	}
	return nil
}

// Current returns the number of checks so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// Limit returns the budget, 0 when unlimited.
func (q *QuotaEnforcer) Limit() int {
	return q.limit
}

// StepsExceededError is returned when a search runs out of step budget.
//
// Unlike a RuntimeError it does not mean the model is broken: the partial
// result returned alongside it is valid for the frames that were popped.
type StepsExceededError struct {
	Steps int // Frames popped before stopping
	Limit int // Budget
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("exploration exceeded step budget: %d steps, limit %d", e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
