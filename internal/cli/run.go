package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/expr"
	"github.com/roach88/statefuzz/internal/finding"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/scan"
	"github.com/roach88/statefuzz/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	MaxDepth    int
	MaxBranches int
	Seed        uint64
	StepBudget  int
	Database    string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to scan.UUIDv7Generator.
	RunIDs scan.RunIDGenerator
}

// RunReport is the JSON payload of the run command.
type RunReport struct {
	Result   scan.ToolResult   `json:"result"`
	Findings []finding.Finding `json:"findings"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	rootOpts := opts.RootOptions
	cmd := &cobra.Command{
		Use:   "run <model>",
		Short: "Explore a state model and report invariant violations",
		Long: `Explore the states reachable from a model's initial state with a
seeded, bounded depth-first search. Every reached state is checked
against the model's invariants; each violation is reported with the
action trace that produced it.

The model may be JSON, YAML or CUE. Bounds default to the
STATEFUZZ_MAX_DEPTH, STATEFUZZ_MAX_BRANCHES, STATEFUZZ_SEED and
STATEFUZZ_STEP_BUDGET environment variables when set.

Exit codes:
  0 - No invariant violated
  1 - Findings reported or step budget exhausted
  2 - Command error (model missing or invalid, unsupported expression)

Examples:
  statefuzz run ./vault.yaml
  statefuzz run ./vault.yaml --depth 6 --branches 3 --seed 42
  statefuzz run ./vault.yaml --db ./statefuzz.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxDepth, "depth", rootOpts.Env.MaxDepth, "maximum trace length (at least 1)")
	cmd.Flags().IntVar(&opts.MaxBranches, "branches", rootOpts.Env.MaxBranches, "maximum actions expanded per state (at least 1)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", rootOpts.Env.Seed, "seed for branch order and parameter draws (at least 1)")
	cmd.Flags().IntVar(&opts.StepBudget, "budget", rootOpts.Env.StepBudget, "maximum states popped (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Env.Database, "path to SQLite database to record the run in")

	return cmd
}

func runExplore(opts *RunOptions, modelPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.MaxDepth < 1 || opts.MaxBranches < 1 || opts.Seed == 0 {
		return NewExitError(ExitCommandError, "--depth, --branches and --seed must be at least 1")
	}
	if opts.StepBudget < 0 {
		return NewExitError(ExitCommandError, "--budget must be non-negative")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter.VerboseLog("Exploring %s (depth=%d branches=%d seed=%d)",
		modelPath, opts.MaxDepth, opts.MaxBranches, opts.Seed)

	result, findings, err := scan.Run(ctx, modelPath, scan.Options{
		MaxDepth:    opts.MaxDepth,
		MaxBranches: opts.MaxBranches,
		Seed:        opts.Seed,
		StepBudget:  opts.StepBudget,
		RunIDs:      opts.RunIDs,
		Logger:      opts.logger(formatter.GetErrWriter()),
	})
	if err != nil {
		if expr.IsUnsupportedExpression(err) {
			_ = formatter.Error(ErrCodeUnsupportedExpr, err.Error(), nil)
			return WrapExitError(ExitCommandError, "unsupported expression", err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "exploration failed", err)
	}

	if opts.Database != "" {
		if err := recordRun(ctx, opts, modelPath, result, findings); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		formatter.VerboseLog("Recorded run %s in %s", result.RunID, opts.Database)
	}

	if findings == nil {
		findings = []finding.Finding{}
	}

	// A run without a summary never explored: the model could not be loaded.
	if result.Summary == nil {
		if opts.Format == "json" {
			if err := formatter.JSON(CLIResponse{
				Status: "error",
				Data:   RunReport{Result: result, Findings: findings},
				Error:  &CLIError{Code: ErrCodeInvalidModel, Message: result.Error},
				RunID:  result.RunID,
			}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s\n", result.Error)
		}
		return NewExitError(ExitCommandError, result.Error)
	}

	if opts.Format == "json" {
		resp := CLIResponse{
			Status: "ok",
			Data:   RunReport{Result: result, Findings: findings},
			RunID:  result.RunID,
		}
		if len(findings) > 0 || !result.Success {
			resp.Status = "error"
			resp.Error = runFailure(result, findings)
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		writeRunText(formatter.Writer, result, findings)
	}

	if !result.Success {
		return NewExitError(ExitFailure, result.Error)
	}
	if len(findings) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invariant violation(s) found", len(findings)))
	}
	return nil
}

func runFailure(result scan.ToolResult, findings []finding.Finding) *CLIError {
	if !result.Success {
		return &CLIError{Code: ErrCodeGeneric, Message: result.Error}
	}
	return &CLIError{
		Code:    ErrCodeFindings,
		Message: fmt.Sprintf("%d invariant violation(s) found", len(findings)),
	}
}

func writeRunText(w io.Writer, result scan.ToolResult, findings []finding.Finding) {
	s := result.Summary
	mark := "✓"
	if len(findings) > 0 || !result.Success {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %d trace(s) explored, %d unique state(s), %d finding(s)\n",
		mark, s.ExploredTraces, s.UniqueStates, s.Findings)

	for i, f := range findings {
		fmt.Fprintf(w, "  [%d] %s (%s)\n", i, f.Invariant, f.Severity)
		fmt.Fprintf(w, "      trace: %v\n", f.Actions)
		if f.Description != "" {
			fmt.Fprintf(w, "      %s\n", f.Description)
		}
	}

	if !result.Success {
		fmt.Fprintf(w, "  stopped early: %s\n", result.Error)
	}
	fmt.Fprintf(w, "run %s (seed %s)\n", result.RunID, seedOf(result))
}

func seedOf(result scan.ToolResult) string {
	if result.Search == nil {
		return "-"
	}
	return fmt.Sprintf("%d", result.Search.Seed)
}

// recordRun persists a scan outcome. Load failures are recorded too, with
// the requested bounds and no coverage.
func recordRun(ctx context.Context, opts *RunOptions, target string, result scan.ToolResult, findings []finding.Finding) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run := store.Run{
		ID:              result.RunID,
		Target:          target,
		ModelHash:       result.ModelHash,
		Seed:            opts.Seed,
		MaxDepth:        opts.MaxDepth,
		MaxBranches:     opts.MaxBranches,
		StepBudget:      opts.StepBudget,
		Success:         result.Success,
		Error:           result.Error,
		DurationSeconds: result.DurationSeconds,
		EngineVersion:   ir.EngineVersion,
		Findings:        findings,
	}
	if search := result.Search; search != nil {
		run.Seed = search.Seed
		run.MaxDepth = search.MaxDepth
		run.MaxBranches = search.MaxBranches
		run.ExploredTraces = search.Explored
		run.UniqueStates = search.UniqueStates()
		run.Popped = search.Popped
		run.Coverage = search.Coverage
	}

	_, err = st.WriteRun(ctx, run)
	return err
}
