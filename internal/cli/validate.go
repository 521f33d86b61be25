package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []ValidationIssue          `json:"errors,omitempty"`
	Warnings []compiler.DataflowWarning `json:"warnings,omitempty"`
}

// ValidationIssue is a validation error with the source line when the
// decoder knows it.
type ValidationIssue struct {
	compiler.ValidationError
	Line int `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model>",
		Short: "Validate a state model without exploring it",
		Long: `Validate a state model without exploring it.

Decodes the model, checks every expression against the expression grammar,
checks input ranges and update directives, and reports dataflow warnings
such as variables that are read but never defined.

Exit codes:
  0 - Model valid (warnings do not fail validation)
  1 - Model invalid
  2 - Command error (model not found, undecodable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, modelPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	spec, err := compiler.LoadModelFile(modelPath)
	if err != nil {
		if errors.Is(err, compiler.ErrModelNotFound) {
			return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("model not found: %s", modelPath))
		}
		var cErr *compiler.CompileError
		if errors.As(err, &cErr) {
			issue := compileIssue(cErr)
			return outputValidationErrors(formatter, []ValidationIssue{issue}, nil)
		}
		return outputValidateError(formatter, ErrCodeInvalidModel, err.Error())
	}

	formatter.VerboseLog("Loaded %s: %d action(s), %d invariant(s)",
		modelPath, len(spec.Actions), len(spec.Invariants))

	verrs := compiler.ValidateModel(spec)
	warnings := compiler.AnalyzeDataflow(spec)
	if len(verrs) > 0 {
		issues := make([]ValidationIssue, len(verrs))
		for i, e := range verrs {
			issues[i] = ValidationIssue{ValidationError: e}
		}
		return outputValidationErrors(formatter, issues, warnings)
	}

	return outputValidateSuccess(formatter, warnings)
}

// compileIssue turns a decode error into a validation issue, keeping the
// line of CUE sources.
func compileIssue(err *compiler.CompileError) ValidationIssue {
	issue := ValidationIssue{
		ValidationError: compiler.ValidationError{
			Field:   err.Field,
			Message: err.Message,
			Code:    ErrCodeInvalidModel,
		},
	}
	if err.Pos.IsValid() {
		issue.Line = err.Pos.Line()
	}
	return issue
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, warnings []compiler.DataflowWarning) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Warnings: warnings})
	}

	fmt.Fprintln(formatter.Writer, "✓ Model valid")
	writeWarnings(formatter, warnings)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue, warnings []compiler.DataflowWarning) error {
	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:    false,
				Errors:   issues,
				Warnings: warnings,
			},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", issue.Code, issue.Field, issue.Message)
	}
	writeWarnings(formatter, warnings)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}

func writeWarnings(formatter *OutputFormatter, warnings []compiler.DataflowWarning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "  %s [%s] %s: %s\n", w.Level, w.Kind, w.Subject, w.Message)
	}
}
