package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/roach88/statefuzz/internal/expr"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/state"
)

// Compiled is a model ready for exploration.
type Compiled struct {
	Spec       *ir.ModelSpec
	Model      *state.Model
	Invariants []state.Invariant

	// Hash identifies the model content independent of its source format
	// and path.
	Hash string
}

// CompileModel turns a ModelSpec into executable actions and invariants.
//
// Every expression is parsed here, once. A malformed expression fails the
// whole model with an *expr.UnsupportedExpressionError; other schema
// problems come back as ValidationErrors.
func CompileModel(spec *ir.ModelSpec) (*Compiled, error) {
	if err := firstExpressionError(spec); err != nil {
		return nil, err
	}
	if errs := ValidateModel(spec); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	initial := state.State{
		Storage:  spec.InitialStorage.Clone(),
		Balances: spec.InitialBalances.Clone(),
		Metadata: spec.InitialMetadata.Clone(),
	}
	if spec.Source != "" {
		initial.Metadata["source"] = ir.IRString(spec.Source)
	}

	model := &state.Model{Initial: initial}
	for _, a := range spec.Actions {
		action, err := compileAction(a)
		if err != nil {
			return nil, err
		}
		model.Actions = append(model.Actions, action)
	}

	invariants := make([]state.Invariant, 0, len(spec.Invariants))
	for _, inv := range spec.Invariants {
		compiled, err := compileInvariant(inv)
		if err != nil {
			return nil, err
		}
		invariants = append(invariants, compiled)
	}

	hash, err := SpecHash(spec)
	if err != nil {
		return nil, err
	}

	return &Compiled{Spec: spec, Model: model, Invariants: invariants, Hash: hash}, nil
}

// SpecHash is the content hash of spec. A model written in JSON, YAML or
// CUE hashes the same when the documents agree.
func SpecHash(spec *ir.ModelSpec) (string, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("hash model: %w", err)
	}
	doc, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return "", fmt.Errorf("hash model: %w", err)
	}
	obj, ok := doc.(ir.IRObject)
	if !ok {
		return "", fmt.Errorf("hash model: expected object, got %s", ir.TypeName(doc))
	}
	return ir.ModelHash(obj)
}

// LoadAndCompile is LoadModelFile followed by CompileModel.
func LoadAndCompile(path string) (*Compiled, error) {
	spec, err := LoadModelFile(path)
	if err != nil {
		return nil, err
	}
	return CompileModel(spec)
}

// firstExpressionError returns the first expression, in declaration order,
// that does not parse.
func firstExpressionError(spec *ir.ModelSpec) error {
	check := func(where, src string) error {
		if src == "" {
			return nil
		}
		if _, err := expr.Parse(src); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		return nil
	}

	for i, a := range spec.Actions {
		if err := check(fmt.Sprintf("actions[%d].precondition", i), a.Precondition); err != nil {
			return err
		}
		for j, u := range a.StateUpdates {
			if err := check(fmt.Sprintf("actions[%d].state_updates[%d].condition", i, j), u.Condition); err != nil {
				return err
			}
		}
	}
	for i, inv := range spec.Invariants {
		if err := check(fmt.Sprintf("invariants[%d].expression", i), inv.Expression); err != nil {
			return err
		}
	}
	return nil
}

type inputStrategy struct {
	name    string
	literal ir.IRValue
	ranged  bool
	lo, hi  int64
}

type updateDirective struct {
	target    string
	op        ir.UpdateOp
	value     ir.IRValue
	valueFrom string
	guard     *expr.Expr
}

// modelAction is the data-driven Action built from an ActionSpec.
type modelAction struct {
	name         string
	precondition *expr.Expr
	inputs       []inputStrategy
	updates      []updateDirective
}

var _ state.Action = (*modelAction)(nil)

func compileAction(spec ir.ActionSpec) (*modelAction, error) {
	a := &modelAction{name: effectiveActionName(spec)}

	if spec.Precondition != "" {
		pre, err := expr.Compile(spec.Precondition)
		if err != nil {
			return nil, err
		}
		a.precondition = pre
	}

	// Sorted so that the order of draws from the generator does not depend
	// on map iteration.
	for _, name := range spec.Inputs.SortedKeys() {
		raw := spec.Inputs[name]
		lo, hi, ranged, err := parseRange(raw)
		if err != nil {
			return nil, fmt.Errorf("action %s input %s: %w", a.name, name, err)
		}
		a.inputs = append(a.inputs, inputStrategy{
			name:    name,
			literal: raw,
			ranged:  ranged,
			lo:      lo,
			hi:      hi,
		})
	}

	for _, u := range spec.StateUpdates {
		d := updateDirective{
			target:    u.Target,
			op:        u.EffectiveOp(),
			value:     u.Value,
			valueFrom: u.ValueFrom,
		}
		if d.value == nil {
			d.value = ir.IRNull{}
		}
		if u.Condition != "" {
			guard, err := expr.Compile(u.Condition)
			if err != nil {
				return nil, err
			}
			d.guard = guard
		}
		a.updates = append(a.updates, d)
	}
	return a, nil
}

func (a *modelAction) Name() string { return a.name }

// Applicable evaluates the precondition against storage overlaid by
// balances.
func (a *modelAction) Applicable(s state.State) (bool, error) {
	if a.precondition == nil {
		return true, nil
	}
	return a.precondition.Truth(s.Scope())
}

// GenerateParameters draws ranged inputs from rng and passes literals
// through.
func (a *modelAction) GenerateParameters(_ state.State, rng *rand.Rand) (ir.IRObject, error) {
	params := make(ir.IRObject, len(a.inputs))
	for _, in := range a.inputs {
		if !in.ranged {
			params[in.name] = ir.CloneValue(in.literal)
			continue
		}
		params[in.name] = ir.IRInt(in.lo + rng.Int64N(in.hi-in.lo+1))
	}
	return params, nil
}

// Apply runs the update directives in order on s, which the caller has
// already cloned. Each guard sees storage as updated by the directives
// before it, overlaid by params.
func (a *modelAction) Apply(s state.State, params ir.IRObject) (state.State, string, error) {
	if s.Storage == nil {
		s.Storage = ir.IRObject{}
	}

	var notes []string
	for _, d := range a.updates {
		if d.guard != nil {
			ok, err := d.guard.Truth(s.Storage.Merge(params))
			if err != nil {
				return s, "", fmt.Errorf("action %s: %w", a.name, err)
			}
			if !ok {
				continue
			}
		}

		operand := d.value
		if d.valueFrom != "" {
			operand = params[d.valueFrom]
			if operand == nil {
				operand = ir.IRNull{}
			}
		}

		next, err := applyOp(d.op, s.Storage[d.target], operand)
		if err != nil {
			return s, "", fmt.Errorf("action %s: update %s: %w", a.name, d.target, err)
		}
		s.Storage[d.target] = next
		notes = append(notes, d.target+"="+ir.FormatValue(next))
	}

	return s, strings.Join(notes, ", "), nil
}

func applyOp(op ir.UpdateOp, current, operand ir.IRValue) (ir.IRValue, error) {
	if current == nil {
		current = ir.IRNull{}
	}
	switch op {
	case ir.OpSet:
		return ir.CloneValue(operand), nil
	case ir.OpAdd:
		return expr.Arith(expr.OpAdd, orZero(current), operand)
	case ir.OpSub:
		return expr.Arith(expr.OpSub, orZero(current), operand)
	default:
		return nil, errors.New("unknown op " + string(op))
	}
}

// orZero makes add/sub on a missing target start from integer 0.
func orZero(v ir.IRValue) ir.IRValue {
	if _, ok := v.(ir.IRNull); ok {
		return ir.IRInt(0)
	}
	return v
}

// modelInvariant is the data-driven Invariant built from an InvariantSpec.
type modelInvariant struct {
	name        string
	description string
	severity    string
	expression  *expr.Expr
}

var _ state.Invariant = (*modelInvariant)(nil)

func compileInvariant(spec ir.InvariantSpec) (*modelInvariant, error) {
	e, err := expr.Compile(spec.Expression)
	if err != nil {
		return nil, err
	}

	description := spec.Description
	if description == "" {
		description = spec.Expression
	}
	severity := strings.ToUpper(strings.TrimSpace(spec.Severity))
	if severity == "" {
		severity = ir.DefaultSeverity
	}

	return &modelInvariant{
		name:        effectiveInvariantName(spec),
		description: description,
		severity:    severity,
		expression:  e,
	}, nil
}

func (i *modelInvariant) Name() string        { return i.name }
func (i *modelInvariant) Description() string { return i.description }
func (i *modelInvariant) Severity() string    { return i.severity }

// Holds evaluates the expression against storage overlaid by balances.
func (i *modelInvariant) Holds(s state.State) (bool, error) {
	return i.expression.Truth(s.Scope())
}
