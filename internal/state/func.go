package state

import (
	"math/rand/v2"

	"github.com/roach88/statefuzz/internal/ir"
)

// FuncAction adapts plain functions to the Action interface. Nil Guard means
// always applicable; nil Params means no parameters.
type FuncAction struct {
	ActionName string
	Guard      func(State) (bool, error)
	Params     func(State, *rand.Rand) (ir.IRObject, error)
	Effect     func(State, ir.IRObject) (State, string, error)
}

var _ Action = (*FuncAction)(nil)

func (a *FuncAction) Name() string { return a.ActionName }

func (a *FuncAction) Applicable(s State) (bool, error) {
	if a.Guard == nil {
		return true, nil
	}
	return a.Guard(s)
}

func (a *FuncAction) GenerateParameters(s State, rng *rand.Rand) (ir.IRObject, error) {
	if a.Params == nil {
		return ir.IRObject{}, nil
	}
	return a.Params(s, rng)
}

func (a *FuncAction) Apply(s State, params ir.IRObject) (State, string, error) {
	if a.Effect == nil {
		return s, "", nil
	}
	return a.Effect(s, params)
}

// FuncInvariant adapts a predicate to the Invariant interface.
type FuncInvariant struct {
	InvariantName string
	Desc          string
	Level         string
	Check         func(State) (bool, error)
}

var _ Invariant = (*FuncInvariant)(nil)

func (i *FuncInvariant) Name() string        { return i.InvariantName }
func (i *FuncInvariant) Description() string { return i.Desc }
func (i *FuncInvariant) Severity() string    { return i.Level }

func (i *FuncInvariant) Holds(s State) (bool, error) {
	return i.Check(s)
}
