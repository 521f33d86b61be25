package harness

import (
	"github.com/roach88/statefuzz/internal/finding"
	"github.com/roach88/statefuzz/internal/scan"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions match.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Findings are the run's findings in discovery order.
	Findings []finding.Finding `json:"findings"`

	// Summary is nil when the model could not be loaded.
	Summary *scan.Summary `json:"summary,omitempty"`

	// Tool is the full outcome of the run.
	Tool scan.ToolResult `json:"tool"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Errors:   []string{},
		Findings: []finding.Finding{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
