package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/statefuzz/internal/ir"
)

var (
	modelFields     = []string{"initial_storage", "initial_balances", "initial_metadata", "actions", "invariants"}
	actionFields    = []string{"name", "precondition", "inputs", "state_updates"}
	updateFields    = []string{"target", "op", "value", "value_from", "condition"}
	invariantFields = []string{"name", "expression", "description", "severity"}
)

// DecodeModel maps a generic document (as produced by the JSON, YAML or CUE
// decoders) onto a ModelSpec. Unknown fields are rejected so that typos
// such as "precondtion" do not silently disable a guard.
func DecodeModel(doc map[string]any) (*ir.ModelSpec, error) {
	if err := checkFields("model", doc, modelFields); err != nil {
		return nil, err
	}

	spec := &ir.ModelSpec{}
	var err error

	if spec.InitialStorage, err = objectField("initial_storage", doc["initial_storage"]); err != nil {
		return nil, err
	}
	if spec.InitialBalances, err = objectField("initial_balances", doc["initial_balances"]); err != nil {
		return nil, err
	}
	if spec.InitialMetadata, err = objectField("initial_metadata", doc["initial_metadata"]); err != nil {
		return nil, err
	}

	actions, err := listField("actions", doc["actions"])
	if err != nil {
		return nil, err
	}
	for i, raw := range actions {
		action, err := decodeAction(fmt.Sprintf("actions[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		spec.Actions = append(spec.Actions, action)
	}

	invariants, err := listField("invariants", doc["invariants"])
	if err != nil {
		return nil, err
	}
	for i, raw := range invariants {
		inv, err := decodeInvariant(fmt.Sprintf("invariants[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		spec.Invariants = append(spec.Invariants, inv)
	}

	return spec, nil
}

func decodeAction(path string, raw any) (ir.ActionSpec, error) {
	var action ir.ActionSpec

	m, ok := raw.(map[string]any)
	if !ok {
		return action, fieldError(path, "action must be an object, got %T", raw)
	}
	if err := checkFields(path, m, actionFields); err != nil {
		return action, err
	}

	var err error
	if action.Name, err = stringField(path+".name", m["name"]); err != nil {
		return action, err
	}
	if action.Precondition, err = stringField(path+".precondition", m["precondition"]); err != nil {
		return action, err
	}
	if action.Inputs, err = objectField(path+".inputs", m["inputs"]); err != nil {
		return action, err
	}

	updates, err := listField(path+".state_updates", m["state_updates"])
	if err != nil {
		return action, err
	}
	for i, rawUpdate := range updates {
		update, err := decodeUpdate(fmt.Sprintf("%s.state_updates[%d]", path, i), rawUpdate)
		if err != nil {
			return action, err
		}
		action.StateUpdates = append(action.StateUpdates, update)
	}
	return action, nil
}

func decodeUpdate(path string, raw any) (ir.UpdateSpec, error) {
	var update ir.UpdateSpec

	m, ok := raw.(map[string]any)
	if !ok {
		return update, fieldError(path, "update must be an object, got %T", raw)
	}
	if err := checkFields(path, m, updateFields); err != nil {
		return update, err
	}

	var err error
	if update.Target, err = stringField(path+".target", m["target"]); err != nil {
		return update, err
	}
	op, err := stringField(path+".op", m["op"])
	if err != nil {
		return update, err
	}
	update.Op = ir.UpdateOp(op)
	if update.ValueFrom, err = stringField(path+".value_from", m["value_from"]); err != nil {
		return update, err
	}
	if update.Condition, err = stringField(path+".condition", m["condition"]); err != nil {
		return update, err
	}
	if rawValue, ok := m["value"]; ok {
		if update.Value, err = ir.FromAny(rawValue); err != nil {
			return update, fieldError(path+".value", "%v", err)
		}
	}
	return update, nil
}

func decodeInvariant(path string, raw any) (ir.InvariantSpec, error) {
	var inv ir.InvariantSpec

	m, ok := raw.(map[string]any)
	if !ok {
		return inv, fieldError(path, "invariant must be an object, got %T", raw)
	}
	if err := checkFields(path, m, invariantFields); err != nil {
		return inv, err
	}

	var err error
	if inv.Name, err = stringField(path+".name", m["name"]); err != nil {
		return inv, err
	}
	if inv.Expression, err = stringField(path+".expression", m["expression"]); err != nil {
		return inv, err
	}
	if inv.Description, err = stringField(path+".description", m["description"]); err != nil {
		return inv, err
	}
	if inv.Severity, err = stringField(path+".severity", m["severity"]); err != nil {
		return inv, err
	}
	return inv, nil
}

func checkFields(path string, m map[string]any, allowed []string) error {
	for key := range m {
		if !slices.Contains(allowed, key) {
			return fieldError(path, "unknown field %q", key)
		}
	}
	return nil
}

// stringField accepts a string or null/absent (returned as "").
func stringField(path string, v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", fieldError(path, "expected string, got %T", v)
	}
}

// objectField keeps absent mappings nil so decoded specs compare equal to
// hand-built ones.
func objectField(path string, v any) (ir.IRObject, error) {
	if v == nil {
		return nil, nil
	}
	obj, err := ir.ObjectFromAny(v)
	if err != nil {
		return nil, fieldError(path, "%v", err)
	}
	return obj, nil
}

func listField(path string, v any) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return l, nil
	default:
		return nil, fieldError(path, "expected list, got %T", v)
	}
}

func fieldError(field, format string, args ...any) *CompileError {
	return &CompileError{Field: field, Message: fmt.Sprintf(format, args...)}
}
