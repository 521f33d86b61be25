// Package testutil holds model fixtures and deterministic generators shared
// by tests across packages. It depends on ir only so that any package's
// tests can import it.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/statefuzz/internal/ir"
)

// ScenarioA is the unlock-then-overdraw model: a deposit above 10 unlocks a
// bonus withdrawal that can be taken twice. With depth 3 the only violating
// trace is deposit, bonus-withdraw, bonus-withdraw.
func ScenarioA() *ir.ModelSpec {
	return &ir.ModelSpec{
		InitialStorage: ir.IRObject{
			"balance":  ir.IRInt(0),
			"unlocked": ir.IRBool(false),
		},
		InitialBalances: ir.IRObject{},
		Actions: []ir.ActionSpec{
			{
				Name:   "deposit",
				Inputs: ir.IRObject{"amount": ir.IRInt(12)},
				StateUpdates: []ir.UpdateSpec{
					{Target: "balance", Op: ir.OpAdd, ValueFrom: "amount"},
					{Target: "unlocked", Op: ir.OpSet, Value: ir.IRBool(true), Condition: "amount > 10"},
				},
			},
			{
				Name:         "bonus-withdraw",
				Precondition: "unlocked",
				Inputs:       ir.IRObject{"amount": ir.IRInt(12)},
				StateUpdates: []ir.UpdateSpec{
					{Target: "balance", Op: ir.OpSub, ValueFrom: "amount"},
				},
			},
		},
		Invariants: []ir.InvariantSpec{
			{Name: "non-negative-balance", Expression: "balance >= 0", Description: "Balance must never go negative", Severity: "high"},
		},
	}
}

// ScenarioB drains a gated balance in one step. Closing the gate first
// disables the drain, so the only violating trace is [drain].
func ScenarioB() *ir.ModelSpec {
	return &ir.ModelSpec{
		InitialStorage: ir.IRObject{
			"balance": ir.IRInt(5),
			"gate":    ir.IRBool(true),
		},
		InitialBalances: ir.IRObject{},
		Actions: []ir.ActionSpec{
			{
				Name:         "drain",
				Precondition: "gate == True",
				Inputs:       ir.IRObject{"amount": ir.IRArray{ir.IRInt(10), ir.IRInt(10)}},
				StateUpdates: []ir.UpdateSpec{
					{Target: "balance", Op: ir.OpSub, ValueFrom: "amount"},
				},
			},
			{
				Name: "close-gate",
				StateUpdates: []ir.UpdateSpec{
					{Target: "gate", Op: ir.OpSet, Value: ir.IRBool(false)},
				},
			},
		},
		Invariants: []ir.InvariantSpec{
			{Name: "non-negative-balance", Expression: "balance >= 0"},
		},
	}
}

// SafeCounter never violates its invariant: increments are capped by the
// precondition.
func SafeCounter() *ir.ModelSpec {
	return &ir.ModelSpec{
		InitialStorage:  ir.IRObject{"count": ir.IRInt(0)},
		InitialBalances: ir.IRObject{},
		Actions: []ir.ActionSpec{
			{
				Name:         "increment",
				Precondition: "count < 3",
				Inputs:       ir.IRObject{"step": ir.IRArray{ir.IRInt(1), ir.IRInt(1)}},
				StateUpdates: []ir.UpdateSpec{
					{Target: "count", Op: ir.OpAdd, ValueFrom: "step"},
				},
			},
			{
				Name:         "reset",
				Precondition: "count > 0",
				StateUpdates: []ir.UpdateSpec{
					{Target: "count", Op: ir.OpSet, Value: ir.IRInt(0)},
				},
			},
		},
		Invariants: []ir.InvariantSpec{
			{Name: "bounded", Expression: "0 <= count <= 3", Severity: "medium"},
		},
	}
}

// WriteModelJSON writes spec as a JSON model file under dir and returns
// its path.
func WriteModelJSON(t testing.TB, dir, name string, spec *ir.ModelSpec) string {
	t.Helper()

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		t.Fatalf("marshal model: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}
