package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/statefuzz/internal/expr"
	"github.com/roach88/statefuzz/internal/ir"
)

// Warning kinds reported by AnalyzeDataflow.
const (
	WarnUndefinedVariable = "undefined-variable"
	WarnUnreadTarget      = "unread-target"
	WarnStaticInvariant   = "static-invariant"
)

// DataflowWarning flags a model that is legal but probably not what its
// author meant.
//
// These are warnings, not errors: an undefined variable evaluates as absent,
// which is sometimes intended (a counter that starts at zero).
type DataflowWarning struct {
	Kind     string `json:"kind"`
	Subject  string `json:"subject"`  // "actions[0].precondition", "invariants[1]", ...
	Variable string `json:"variable"` // variable concerned, empty for whole-invariant warnings
	Message  string `json:"message"`
	Level    string `json:"level"` // "warning" or "info"
}

// AnalyzeDataflow performs static read/write analysis over a model.
//
// The algorithm:
//  1. Collect the variables that exist: initial storage and balances keys
//     plus every update target
//  2. Collect the variables each expression reads
//  3. Report reads of variables that never exist, targets nobody reads,
//     and invariants over variables no action writes
//
// Expressions that fail to parse are skipped; ValidateModel reports them.
func AnalyzeDataflow(spec *ir.ModelSpec) []DataflowWarning {
	defined := map[string]bool{}
	for k := range spec.InitialStorage {
		defined[k] = true
	}
	for k := range spec.InitialBalances {
		defined[k] = true
	}

	written := map[string]bool{}
	for _, a := range spec.Actions {
		for _, u := range a.StateUpdates {
			if u.Target != "" {
				written[u.Target] = true
				defined[u.Target] = true
			}
		}
	}

	read := map[string]bool{}
	var warnings []DataflowWarning

	undefined := func(subject string, vars []string, extra ir.IRObject) {
		for _, v := range vars {
			read[v] = true
			if defined[v] {
				continue
			}
			if _, ok := extra[v]; ok {
				continue
			}
			warnings = append(warnings, DataflowWarning{
				Kind:     WarnUndefinedVariable,
				Subject:  subject,
				Variable: v,
				Message:  fmt.Sprintf("%s reads %q, which is never initialised or written; it evaluates as absent", subject, v),
				Level:    "warning",
			})
		}
	}

	for i, a := range spec.Actions {
		if vars, ok := identifiers(a.Precondition); ok {
			undefined(fmt.Sprintf("actions[%d].precondition", i), vars, nil)
		}
		for j, u := range a.StateUpdates {
			if vars, ok := identifiers(u.Condition); ok {
				undefined(fmt.Sprintf("actions[%d].state_updates[%d].condition", i, j), vars, a.Inputs)
			}
		}
	}

	for i, inv := range spec.Invariants {
		subject := fmt.Sprintf("invariants[%d]", i)
		vars, ok := identifiers(inv.Expression)
		if !ok {
			continue
		}
		undefined(subject, vars, nil)

		if len(vars) > 0 && !slices.ContainsFunc(vars, func(v string) bool { return written[v] }) {
			warnings = append(warnings, DataflowWarning{
				Kind:    WarnStaticInvariant,
				Subject: subject,
				Message: fmt.Sprintf("invariant %q only reads variables no action writes; only the initial state can break it", effectiveInvariantName(inv)),
				Level:   "info",
			})
		}
	}

	targets := make([]string, 0, len(written))
	for t := range written {
		targets = append(targets, t)
	}
	slices.Sort(targets)
	for _, t := range targets {
		if read[t] {
			continue
		}
		warnings = append(warnings, DataflowWarning{
			Kind:     WarnUnreadTarget,
			Subject:  "state_updates",
			Variable: t,
			Message:  fmt.Sprintf("%q is written but no precondition, condition or invariant reads it", t),
			Level:    "info",
		})
	}

	return warnings
}

func identifiers(src string) ([]string, bool) {
	if src == "" {
		return nil, false
	}
	node, err := expr.Parse(src)
	if err != nil {
		return nil, false
	}
	return expr.Identifiers(node), true
}
