package compiler

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/statefuzz/internal/expr"
	"github.com/roach88/statefuzz/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Action errors (E101-E109)
	ErrDuplicateName     = "E101" // duplicate action or invariant name
	ErrInvalidExpression = "E102" // precondition, condition or invariant outside the grammar
	ErrInvalidRange      = "E103" // malformed [lo, hi] input range
	ErrMissingTarget     = "E104" // update directive without target
	ErrInvalidOp         = "E105" // op not in set/add/sub
	ErrUnknownParameter  = "E106" // value_from names an undeclared input
	ErrMissingValue      = "E107" // add/sub without value or value_from

	// Invariant errors (E110-E119)
	ErrMissingExpression = "E110" // invariant without expression
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is the error CompileModel returns when a model fails
// validation.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "invalid model: " + strings.Join(msgs, "; ")
}

// IsValidationError reports whether err carries validation errors.
func IsValidationError(err error) bool {
	var verrs ValidationErrors
	return errors.As(err, &verrs)
}

// ValidateModel checks a model against schema rules.
// Returns all errors found (does not fail-fast).
func ValidateModel(spec *ir.ModelSpec) []ValidationError {
	var errs []ValidationError

	actionNames := make(map[string]bool)
	for i, action := range spec.Actions {
		path := fmt.Sprintf("actions[%d]", i)

		name := effectiveActionName(action)
		if actionNames[name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate action name %q", name),
				Code:    ErrDuplicateName,
			})
		}
		actionNames[name] = true

		if action.Precondition != "" {
			errs = append(errs, validateExpression(path+".precondition", action.Precondition)...)
		}

		for _, param := range action.Inputs.SortedKeys() {
			if _, _, ranged, err := parseRange(action.Inputs[param]); ranged && err != nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.inputs.%s", path, param),
					Message: err.Error(),
					Code:    ErrInvalidRange,
				})
			}
		}

		for j, update := range action.StateUpdates {
			errs = append(errs, validateUpdate(fmt.Sprintf("%s.state_updates[%d]", path, j), action, update)...)
		}
	}

	invariantNames := make(map[string]bool)
	for i, inv := range spec.Invariants {
		path := fmt.Sprintf("invariants[%d]", i)

		name := effectiveInvariantName(inv)
		if invariantNames[name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate invariant name %q", name),
				Code:    ErrDuplicateName,
			})
		}
		invariantNames[name] = true

		if strings.TrimSpace(inv.Expression) == "" {
			errs = append(errs, ValidationError{
				Field:   path + ".expression",
				Message: "expression is required",
				Code:    ErrMissingExpression,
			})
			continue
		}
		errs = append(errs, validateExpression(path+".expression", inv.Expression)...)
	}

	return errs
}

func validateUpdate(path string, action ir.ActionSpec, update ir.UpdateSpec) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(update.Target) == "" {
		errs = append(errs, ValidationError{
			Field:   path + ".target",
			Message: "target is required",
			Code:    ErrMissingTarget,
		})
	}

	op := update.EffectiveOp()
	switch op {
	case ir.OpSet, ir.OpAdd, ir.OpSub:
	default:
		errs = append(errs, ValidationError{
			Field:   path + ".op",
			Message: fmt.Sprintf("unknown op %q (want set, add or sub)", update.Op),
			Code:    ErrInvalidOp,
		})
	}

	if update.ValueFrom != "" {
		if _, ok := action.Inputs[update.ValueFrom]; !ok {
			errs = append(errs, ValidationError{
				Field:   path + ".value_from",
				Message: fmt.Sprintf("parameter %q is not declared in inputs", update.ValueFrom),
				Code:    ErrUnknownParameter,
			})
		}
	} else if update.Value == nil && (op == ir.OpAdd || op == ir.OpSub) {
		errs = append(errs, ValidationError{
			Field:   path,
			Message: fmt.Sprintf("%s needs value or value_from", op),
			Code:    ErrMissingValue,
		})
	}

	if update.Condition != "" {
		errs = append(errs, validateExpression(path+".condition", update.Condition)...)
	}
	return errs
}

func validateExpression(field, src string) []ValidationError {
	if _, err := expr.Parse(src); err != nil {
		return []ValidationError{{
			Field:   field,
			Message: err.Error(),
			Code:    ErrInvalidExpression,
		}}
	}
	return nil
}

// parseRange interprets an input strategy. ranged reports whether v has the
// shape of a range (a two-element array of numbers); err is set when that
// range is unusable.
func parseRange(v ir.IRValue) (lo, hi int64, ranged bool, err error) {
	arr, ok := v.(ir.IRArray)
	if !ok || len(arr) != 2 {
		return 0, 0, false, nil
	}

	for _, elem := range arr {
		switch elem.(type) {
		case ir.IRInt, ir.IRFloat:
		default:
			return 0, 0, false, nil
		}
	}

	bounds := [2]int64{}
	for i, elem := range arr {
		n, ok := elem.(ir.IRInt)
		if !ok {
			return 0, 0, true, fmt.Errorf("range bounds must be integers, got %s", ir.FormatValue(elem))
		}
		bounds[i] = int64(n)
	}

	lo, hi = bounds[0], bounds[1]
	if lo > hi {
		return lo, hi, true, fmt.Errorf("range lower bound %d exceeds upper bound %d", lo, hi)
	}
	if lo <= 0 && hi > math.MaxInt64-1+lo {
		return lo, hi, true, fmt.Errorf("range [%d, %d] is too wide", lo, hi)
	}
	return lo, hi, true, nil
}

func effectiveActionName(a ir.ActionSpec) string {
	if a.Name == "" {
		return ir.DefaultActionName
	}
	return a.Name
}

func effectiveInvariantName(inv ir.InvariantSpec) string {
	if inv.Name == "" {
		return ir.DefaultInvariantName
	}
	return inv.Name
}
