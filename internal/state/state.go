// Package state defines the runtime types an exploration works on: the
// State container, the Action and Invariant interfaces, and the records an
// exploration produces (ActionResult, Violation).
package state

import (
	"errors"
	"math/rand/v2"

	"github.com/roach88/statefuzz/internal/ir"
)

// State is a snapshot of the modelled system.
//
// Storage and Balances are evaluated by expressions; Metadata is provenance
// and never affects signatures or expressions. A State handed to an Action
// or pushed onto the search stack is owned by its holder and must not be
// mutated by anyone else. Use Clone before changing anything.
type State struct {
	Storage  ir.IRObject `json:"storage"`
	Balances ir.IRObject `json:"balances"`
	Metadata ir.IRObject `json:"metadata"`
}

// New creates a State with empty, non-nil mappings.
func New() State {
	return State{
		Storage:  ir.IRObject{},
		Balances: ir.IRObject{},
		Metadata: ir.IRObject{},
	}
}

// Clone returns a deep copy sharing no mutable structure with s.
func (s State) Clone() State {
	return State{
		Storage:  s.Storage.Clone(),
		Balances: s.Balances.Clone(),
		Metadata: s.Metadata.Clone(),
	}
}

// Scope is the variable scope preconditions and invariants see: storage
// overlaid by balances. On a key collision the balance wins.
func (s State) Scope() ir.IRObject {
	return s.Storage.Merge(s.Balances)
}

// Signature is the canonical hash over storage and balances.
func (s State) Signature() (string, error) {
	return ir.StateSignature(s.Storage, s.Balances)
}

// ErrDeclined is returned by Action.Apply when the action chooses not to
// fire for the given state and parameters. The explorer skips the action;
// it is not a failure.
var ErrDeclined = errors.New("action declined")

// Action is a named, conditionally applicable state transition.
//
// Implementations must be safe to call repeatedly with different states and
// must not keep mutable state between calls. Apply receives a clone it may
// modify and return; it must never touch any other State.
type Action interface {
	Name() string
	Applicable(s State) (bool, error)
	GenerateParameters(s State, rng *rand.Rand) (ir.IRObject, error)
	Apply(s State, params ir.IRObject) (next State, note string, err error)
}

// Invariant is a boolean property every reachable state must satisfy.
type Invariant interface {
	Name() string
	Description() string
	// Severity is a free-form label copied onto findings unchanged.
	Severity() string
	Holds(s State) (bool, error)
}

// ActionResult records one applied action.
type ActionResult struct {
	Action     string      `json:"action"`
	Parameters ir.IRObject `json:"parameters"`
	State      State       `json:"state"`
	Note       string      `json:"note,omitempty"`
}

// Violation is a reachable state that broke an invariant, with the trace
// that reached it.
type Violation struct {
	Invariant   string         `json:"invariant"`
	Description string         `json:"description"`
	Severity    string         `json:"severity"`
	Trace       []ActionResult `json:"trace"`
	Snapshot    State          `json:"snapshot"`
}

// Depth is the number of actions in the trace.
func (v Violation) Depth() int {
	return len(v.Trace)
}

// ActionNames lists the trace's action names in order.
func (v Violation) ActionNames() []string {
	names := make([]string, len(v.Trace))
	for i, step := range v.Trace {
		names[i] = step.Action
	}
	return names
}

// Model is an initial state plus the actions that may transform it.
// Declaration order is lookup order; the explorer decides expansion order.
type Model struct {
	Initial State
	Actions []Action
}

// Lookup returns the action named name.
func (m *Model) Lookup(name string) (Action, bool) {
	for _, a := range m.Actions {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}
