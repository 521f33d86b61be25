package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunSummary is one row of the runs listing.
type RunSummary struct {
	ID             string  `json:"id"`
	Target         string  `json:"target"`
	ModelHash      string  `json:"model_hash,omitempty"`
	Seed           string  `json:"seed"`
	MaxDepth       int     `json:"max_depth"`
	MaxBranches    int     `json:"max_branches"`
	Success        bool    `json:"success"`
	Error          string  `json:"error,omitempty"`
	ExploredTraces int     `json:"explored_traces"`
	UniqueStates   int     `json:"unique_states"`
	Findings       int     `json:"findings"`
	Duration       float64 `json:"duration_seconds"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List runs recorded with run --db, in the order they were recorded.

Examples:
  statefuzz runs --db ./statefuzz.db
  statefuzz runs --db ./statefuzz.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Env.Database, "path to SQLite database (required)")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
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

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		findings, err := st.ListFindings(ctx, store.FindingFilter{RunID: r.ID})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count findings", err)
		}
		summaries = append(summaries, RunSummary{
			ID:             r.ID,
			Target:         r.Target,
			ModelHash:      r.ModelHash,
			Seed:           fmt.Sprintf("%d", r.Seed),
			MaxDepth:       r.MaxDepth,
			MaxBranches:    r.MaxBranches,
			Success:        r.Success,
			Error:          r.Error,
			ExploredTraces: r.ExploredTraces,
			UniqueStates:   r.UniqueStates,
			Findings:       len(findings),
			Duration:       r.DurationSeconds,
		})
	}

	if opts.Format == "json" {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, s := range summaries {
		mark := "✓"
		if !s.Success || s.Findings > 0 {
			mark = "✗"
		}
		fmt.Fprintf(formatter.Writer, "%s %s  %s  seed=%s depth=%d branches=%d  %d trace(s), %d state(s), %d finding(s)\n",
			mark, s.ID, s.Target, s.Seed, s.MaxDepth, s.MaxBranches, s.ExploredTraces, s.UniqueStates, s.Findings)
		if s.Error != "" {
			fmt.Fprintf(formatter.Writer, "  %s\n", s.Error)
		}
	}
	return nil
}
