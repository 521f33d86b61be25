// Package finding translates violations into the normalized finding shape
// shared with other analysis tools.
package finding

import (
	"strconv"

	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/state"
)

const (
	// Category labels every finding this tool produces.
	Category = "state-invariant"

	// TitlePrefix precedes the invariant name in a finding title.
	TitlePrefix = "Invariant violated: "
)

// Finding is a tool-independent report of one problem.
//
// The first block of fields is the normalized shape every analysis tool
// emits. Invariant and Actions are specific to state exploration and feed
// Fingerprint.
type Finding struct {
	Tool        string      `json:"tool"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Severity    string      `json:"severity"`
	Category    string      `json:"category,omitempty"`
	FilePath    string      `json:"file_path,omitempty"`
	LineNumber  string      `json:"line_number,omitempty"`
	Function    string      `json:"function,omitempty"`
	ToolVersion string      `json:"tool_version,omitempty"`
	InputSeed   string      `json:"input_seed,omitempty"`
	Coverage    ir.IRObject `json:"coverage,omitempty"`
	Assertions  ir.IRObject `json:"assertions,omitempty"`
	Raw         ir.IRObject `json:"raw"`

	Invariant string   `json:"invariant"`
	Actions   []string `json:"actions"`
}

// Option adds run context to a translated finding.
type Option func(*Finding)

// WithSeed records the seed that reproduces the finding.
func WithSeed(seed uint64) Option {
	return func(f *Finding) {
		f.InputSeed = strconv.FormatUint(seed, 10)
	}
}

// WithCoverage records how much of the state space the run covered.
func WithCoverage(uniqueStates, exploredTraces int) Option {
	return func(f *Finding) {
		f.Coverage = ir.IRObject{
			"unique_states":   ir.IRInt(uniqueStates),
			"explored_traces": ir.IRInt(exploredTraces),
		}
	}
}

// FromViolation translates v. The raw payload carries the full trace with
// each step's resulting storage and the storage of the violating state.
func FromViolation(v state.Violation, opts ...Option) Finding {
	trace := make(ir.IRArray, len(v.Trace))
	for i, step := range v.Trace {
		trace[i] = ir.IRObject{
			"action":     ir.IRString(step.Action),
			"parameters": step.Parameters.Clone(),
			"note":       ir.IRString(step.Note),
			"state":      step.State.Storage.Clone(),
		}
	}

	f := Finding{
		Tool:        ir.ToolName,
		Title:       TitlePrefix + v.Invariant,
		Description: v.Description,
		Severity:    v.Severity,
		Category:    Category,
		ToolVersion: ir.EngineVersion,
		Raw: ir.IRObject{
			"trace":    trace,
			"snapshot": v.Snapshot.Storage.Clone(),
		},
		Invariant: v.Invariant,
		Actions:   v.ActionNames(),
	}
	if src, ok := v.Snapshot.Metadata["source"].(ir.IRString); ok {
		f.FilePath = string(src)
	}

	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// FromViolations translates every violation with the same options.
func FromViolations(vs []state.Violation, opts ...Option) []Finding {
	out := make([]Finding, len(vs))
	for i, v := range vs {
		out[i] = FromViolation(v, opts...)
	}
	return out
}

// Fingerprint is the dedupe key: a hash over the invariant and the action
// names along the trace. Parameters do not take part.
func (f Finding) Fingerprint() (string, error) {
	return ir.FindingFingerprint(f.Invariant, f.Actions)
}

// ToIR converts f to an IRObject with the same keys as its JSON encoding.
func (f Finding) ToIR() ir.IRObject {
	actions := make(ir.IRArray, len(f.Actions))
	for i, a := range f.Actions {
		actions[i] = ir.IRString(a)
	}

	obj := ir.IRObject{
		"tool":        ir.IRString(f.Tool),
		"title":       ir.IRString(f.Title),
		"description": ir.IRString(f.Description),
		"severity":    ir.IRString(f.Severity),
		"raw":         f.Raw.Clone(),
		"invariant":   ir.IRString(f.Invariant),
		"actions":     actions,
	}
	optional := map[string]string{
		"category":     f.Category,
		"file_path":    f.FilePath,
		"line_number":  f.LineNumber,
		"function":     f.Function,
		"tool_version": f.ToolVersion,
		"input_seed":   f.InputSeed,
	}
	for k, v := range optional {
		if v != "" {
			obj[k] = ir.IRString(v)
		}
	}
	if len(f.Coverage) > 0 {
		obj["coverage"] = f.Coverage.Clone()
	}
	if len(f.Assertions) > 0 {
		obj["assertions"] = f.Assertions.Clone()
	}
	return obj
}

// CanonicalJSON returns the RFC 8785 encoding of f.
func (f Finding) CanonicalJSON() ([]byte, error) {
	return ir.MarshalCanonical(f.ToIR())
}
