package ir

// UpdateOp is the operation an update directive performs on its target.
type UpdateOp string

const (
	OpSet UpdateOp = "set"
	OpAdd UpdateOp = "add"
	OpSub UpdateOp = "sub"
)

// Defaults applied when a model leaves a field out.
const (
	DefaultActionName    = "action"
	DefaultInvariantName = "invariant"
	DefaultSeverity      = "HIGH"
	DefaultOp            = OpSet
)

// ModelSpec is the declarative description of a state model: the initial
// state, the actions that transform it and the invariants it must keep.
//
// The same document shape is accepted from JSON, YAML and CUE sources.
type ModelSpec struct {
	// Source is the path the model was loaded from. It ends up in the
	// initial state's metadata.
	Source string `json:"-"`

	InitialStorage  IRObject        `json:"initial_storage"`
	InitialBalances IRObject        `json:"initial_balances"`
	InitialMetadata IRObject        `json:"initial_metadata,omitempty"`
	Actions         []ActionSpec    `json:"actions"`
	Invariants      []InvariantSpec `json:"invariants"`
}

// ActionSpec declares one action.
//
// Inputs maps parameter names to a generation strategy: a two-element
// numeric array [lo, hi] draws an integer from the inclusive range, any
// other value is passed through as a fixed literal.
type ActionSpec struct {
	Name         string       `json:"name"`
	Precondition string       `json:"precondition,omitempty"`
	Inputs       IRObject     `json:"inputs,omitempty"`
	StateUpdates []UpdateSpec `json:"state_updates,omitempty"`
}

// UpdateSpec is a single state update directive.
type UpdateSpec struct {
	Target string   `json:"target"`
	Op     UpdateOp `json:"op,omitempty"`

	// Value is the literal operand. nil means the document did not set it.
	Value IRValue `json:"value,omitempty"`

	// ValueFrom names a generated parameter. It wins over Value when set.
	ValueFrom string `json:"value_from,omitempty"`

	// Condition guards the directive. Evaluated against storage overlaid
	// by the generated parameters.
	Condition string `json:"condition,omitempty"`
}

// InvariantSpec declares a property that must hold in every reachable state.
type InvariantSpec struct {
	Name        string `json:"name"`
	Expression  string `json:"expression"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// ActionNames returns action names in declaration order.
func (m *ModelSpec) ActionNames() []string {
	names := make([]string, len(m.Actions))
	for i, a := range m.Actions {
		names[i] = a.Name
	}
	return names
}

// EffectiveOp returns the directive's operation, defaulting to set.
func (u UpdateSpec) EffectiveOp() UpdateOp {
	if u.Op == "" {
		return DefaultOp
	}
	return u.Op
}
