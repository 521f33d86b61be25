package engine

import (
	"errors"

	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/state"
)

// ReplayStep is one recorded action: its name and the parameters it was
// applied with.
type ReplayStep struct {
	Action     string      `json:"action"`
	Parameters ir.IRObject `json:"parameters"`
}

// StepsFromTrace extracts the replayable part of a trace.
func StepsFromTrace(trace []state.ActionResult) []ReplayStep {
	steps := make([]ReplayStep, len(trace))
	for i, r := range trace {
		steps[i] = ReplayStep{Action: r.Action, Parameters: r.Parameters.Clone()}
	}
	return steps
}

// ReplayResult is the outcome of re-applying a trace.
type ReplayResult struct {
	Trace     []state.ActionResult
	Final     state.State
	Violation *state.Violation // nil when every invariant holds at Final
}

// Replay re-applies steps to the model's initial state and checks the
// invariants at the end state.
//
// Replay draws no random numbers: parameters come from the recording, so a
// trace reported by Explore reproduces its violation exactly. Each step must
// be applicable where it is replayed; otherwise a RuntimeError with
// ErrCodeNotApplicable is returned.
func Replay(model *state.Model, invariants []state.Invariant, steps []ReplayStep) (*ReplayResult, error) {
	current := model.Initial.Clone()
	trace := make([]state.ActionResult, 0, len(steps))

	for depth, step := range steps {
		action, ok := model.Lookup(step.Action)
		if !ok {
			return nil, &RuntimeError{
				Code:    ErrCodeMissingAction,
				Message: "action not in model",
				Action:  step.Action,
				Depth:   depth,
			}
		}

		applicable, err := action.Applicable(current)
		if err != nil {
			return nil, newRuntimeError(ErrCodeActionFailed, step.Action, "", depth, err)
		}
		if !applicable {
			return nil, &RuntimeError{
				Code:    ErrCodeNotApplicable,
				Message: "precondition does not hold",
				Action:  step.Action,
				Depth:   depth,
			}
		}

		params := step.Parameters.Clone()
		next, note, err := action.Apply(current.Clone(), params)
		if errors.Is(err, state.ErrDeclined) {
			return nil, &RuntimeError{
				Code:    ErrCodeNotApplicable,
				Message: "action declined",
				Action:  step.Action,
				Depth:   depth,
				Err:     err,
			}
		}
		if err != nil {
			return nil, newRuntimeError(ErrCodeActionFailed, step.Action, "", depth, err)
		}

		trace = append(trace, state.ActionResult{
			Action:     step.Action,
			Parameters: params,
			State:      next,
			Note:       note,
		})
		current = next
	}

	result := &ReplayResult{Trace: trace, Final: current}
	for _, inv := range invariants {
		ok, err := inv.Holds(current)
		if err != nil {
			return nil, newRuntimeError(ErrCodeInvariantFailed, "", inv.Name(), len(steps), err)
		}
		if !ok {
			result.Violation = &state.Violation{
				Invariant:   inv.Name(),
				Description: inv.Description(),
				Severity:    inv.Severity(),
				Trace:       trace,
				Snapshot:    current.Clone(),
			}
			break
		}
	}
	return result, nil
}
