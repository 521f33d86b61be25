package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/compiler"
	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
	Finding  int
}

// ReplayReport holds the outcome of replaying one recorded finding.
type ReplayReport struct {
	RunID         string   `json:"run_id"`
	Finding       int      `json:"finding"`
	Invariant     string   `json:"invariant"`
	Actions       []string `json:"actions"`
	Reproduced    bool     `json:"reproduced"`
	Violated      string   `json:"violated,omitempty"` // invariant broken on replay, if any
	StorageMatch  bool     `json:"storage_match"`
	ModelChanged  bool     `json:"model_changed"`
	FinalStorage  any      `json:"final_storage"`
	RecordedState any      `json:"recorded_storage"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [model]",
		Short: "Replay a recorded finding against its model",
		Long: `Re-apply the action trace of a recorded finding, with the recorded
parameters, and check that the same invariant is violated with the same
storage.

The model defaults to the target the run was recorded with. A warning is
printed when the model content changed since the run.

Exit codes:
  0 - Finding reproduced
  1 - Finding not reproduced
  2 - Command error (database, run or finding not found, trace not applicable)

Examples:
  statefuzz replay --db ./statefuzz.db --run 0190...
  statefuzz replay ./vault.yaml --db ./statefuzz.db --run 0190... --finding 2`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := ""
			if len(args) == 1 {
				modelPath = args[0]
			}
			return runReplay(opts, modelPath, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Env.Database, "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID holding the finding (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().IntVar(&opts.Finding, "finding", 0, "index of the finding within the run")

	return cmd
}

func runReplay(opts *ReplayOptions, modelPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Database == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if opts.Finding < 0 || opts.Finding >= len(run.Findings) {
		msg := fmt.Sprintf("run %s has %d finding(s); index %d out of range", run.ID, len(run.Findings), opts.Finding)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	f := run.Findings[opts.Finding]

	if modelPath == "" {
		modelPath = run.Target
	}
	compiled, err := compiler.LoadAndCompile(modelPath)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidModel, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load model", err)
	}

	steps, err := f.ReplaySteps()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read recorded trace", err)
	}
	formatter.VerboseLog("Replaying %d step(s) of finding %d from run %s", len(steps), opts.Finding, run.ID)

	replayed, err := engine.Replay(compiled.Model, compiled.Invariants, steps)
	if err != nil {
		_ = formatter.Error(ErrCodeNotReproduced, err.Error(), nil)
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	report := ReplayReport{
		RunID:         run.ID,
		Finding:       opts.Finding,
		Invariant:     f.Invariant,
		Actions:       f.Actions,
		StorageMatch:  ir.Equal(f.Snapshot(), replayed.Final.Storage),
		ModelChanged:  run.ModelHash != "" && run.ModelHash != compiled.Hash,
		FinalStorage:  ir.ToAny(replayed.Final.Storage),
		RecordedState: ir.ToAny(f.Snapshot()),
	}
	if replayed.Violation != nil {
		report.Violated = replayed.Violation.Invariant
	}
	report.Reproduced = report.Violated == f.Invariant && report.StorageMatch

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report, RunID: run.ID}
		if !report.Reproduced {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeNotReproduced, Message: "finding not reproduced"}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		writeReplayText(formatter, report)
	}

	if !report.Reproduced {
		return NewExitError(ExitFailure, "finding not reproduced")
	}
	return nil
}

func writeReplayText(formatter *OutputFormatter, r ReplayReport) {
	w := formatter.Writer
	if r.ModelChanged {
		fmt.Fprintln(w, "! model changed since the run was recorded")
	}
	if r.Reproduced {
		fmt.Fprintf(w, "✓ %s reproduced via %v\n", r.Invariant, r.Actions)
		return
	}

	fmt.Fprintf(w, "✗ %s not reproduced via %v\n", r.Invariant, r.Actions)
	if r.Violated == "" {
		fmt.Fprintln(w, "  every invariant holds at the final state")
	} else if r.Violated != r.Invariant {
		fmt.Fprintf(w, "  %s violated instead\n", r.Violated)
	}
	if !r.StorageMatch {
		fmt.Fprintf(w, "  recorded storage: %v\n", r.RecordedState)
		fmt.Fprintf(w, "  replayed storage: %v\n", r.FinalStorage)
	}
}
