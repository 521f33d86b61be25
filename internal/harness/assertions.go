package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/statefuzz/internal/finding"
	"github.com/roach88/statefuzz/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string            // Assertion type for categorization
	Expected string            // Human-readable expected outcome
	Actual   string            // Human-readable actual outcome
	Findings []finding.Finding // All findings for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Findings) > 0 {
		fmt.Fprintf(&buf, "\nFindings:\n")
		for i, f := range e.Findings {
			fmt.Fprintf(&buf, "  [%d] %s via %v\n", i, f.Invariant, f.Actions)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFindingCount:
			err = assertFindingCount(result, assertion)
		case AssertTraceEquals:
			err = assertTraceEquals(result, assertion)
		case AssertFinalStorage:
			err = assertFinalStorage(result, assertion)
		case AssertCoverageCount:
			err = assertCoverageCount(result, assertion)
		case AssertSuccess:
			err = assertSuccess(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertFindingCount(result *Result, assertion Assertion) error {
	if len(result.Findings) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertFindingCount,
		Expected: fmt.Sprintf("%d findings", assertion.Count),
		Actual:   fmt.Sprintf("%d findings", len(result.Findings)),
		Findings: result.Findings,
	}
}

// findingAt returns the indexed finding or an AssertionError naming the
// assertion type.
func findingAt(result *Result, kind string, index int) (finding.Finding, error) {
	if index < 0 || index >= len(result.Findings) {
		return finding.Finding{}, &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("finding %d to exist", index),
			Actual:   fmt.Sprintf("%d findings", len(result.Findings)),
			Findings: result.Findings,
		}
	}
	return result.Findings[index], nil
}

func assertTraceEquals(result *Result, assertion Assertion) error {
	f, err := findingAt(result, AssertTraceEquals, assertion.Finding)
	if err != nil {
		return err
	}
	if slices.Equal(f.Actions, assertion.Actions) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceEquals,
		Expected: fmt.Sprintf("finding %d trace %v", assertion.Finding, assertion.Actions),
		Actual:   fmt.Sprintf("trace %v", f.Actions),
		Findings: result.Findings,
	}
}

// assertFinalStorage checks the storage of a finding's violating state.
// Subset semantics: only keys named in Expect are compared; values are
// converted with ir.FromAny and compared with ir.Equal.
func assertFinalStorage(result *Result, assertion Assertion) error {
	f, err := findingAt(result, AssertFinalStorage, assertion.Finding)
	if err != nil {
		return err
	}

	snapshot, _ := f.Raw["snapshot"].(ir.IRObject)

	// Sort keys for deterministic error messages
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expected, err := ir.FromAny(assertion.Expect[key])
		if err != nil {
			return fmt.Errorf("final_storage: expected value for %q: %w", key, err)
		}
		actual, exists := snapshot[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalStorage,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("storage keys %v", snapshot.SortedKeys()),
				Findings: result.Findings,
			}
		}
		if !ir.Equal(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalStorage,
				Expected: fmt.Sprintf("field %q = %s", key, ir.FormatValue(expected)),
				Actual:   fmt.Sprintf("field %q = %s", key, ir.FormatValue(actual)),
				Findings: result.Findings,
			}
		}
	}
	return nil
}

func assertCoverageCount(result *Result, assertion Assertion) error {
	if result.Summary == nil {
		return &AssertionError{
			Type:     AssertCoverageCount,
			Expected: fmt.Sprintf("%d unique states", assertion.Count),
			Actual:   fmt.Sprintf("no summary (run failed: %s)", result.Tool.Error),
		}
	}
	if result.Summary.UniqueStates == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCoverageCount,
		Expected: fmt.Sprintf("%d unique states", assertion.Count),
		Actual:   fmt.Sprintf("%d unique states", result.Summary.UniqueStates),
	}
}

func assertSuccess(result *Result, assertion Assertion) error {
	if result.Tool.Success == *assertion.Success {
		return nil
	}
	actual := "success"
	if !result.Tool.Success {
		actual = fmt.Sprintf("failure: %s", result.Tool.Error)
	}
	return &AssertionError{
		Type:     AssertSuccess,
		Expected: fmt.Sprintf("success = %t", *assertion.Success),
		Actual:   actual,
	}
}
