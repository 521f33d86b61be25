package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/store"
)

// FindingsOptions holds flags for the findings command.
type FindingsOptions struct {
	*RootOptions
	Database  string
	RunID     string
	Severity  string
	Invariant string
	Limit     int
}

// NewFindingsCommand creates the findings command.
func NewFindingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "findings",
		Short: "List recorded findings",
		Long: `List findings recorded by previous runs, oldest run first.

Filters combine with AND. Severity matching ignores case.

Examples:
  statefuzz findings --db ./statefuzz.db
  statefuzz findings --db ./statefuzz.db --severity high --limit 10
  statefuzz findings --db ./statefuzz.db --run 0190... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFindings(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Env.Database, "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "only findings of this run")
	cmd.Flags().StringVar(&opts.Severity, "severity", "", "only findings of this severity")
	cmd.Flags().StringVar(&opts.Invariant, "invariant", "", "only findings of this invariant")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum findings to list (0 = all)")

	return cmd
}

func runFindings(opts *FindingsOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Database == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must be non-negative")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	findings, err := st.ListFindings(ctx, store.FindingFilter{
		RunID:     opts.RunID,
		Severity:  strings.ToUpper(opts.Severity),
		Invariant: opts.Invariant,
		Limit:     opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list findings", err)
	}

	if opts.Format == "json" {
		return formatter.Success(findings)
	}

	if len(findings) == 0 {
		fmt.Fprintln(formatter.Writer, "No findings.")
		return nil
	}
	for _, sf := range findings {
		fmt.Fprintf(formatter.Writer, "%s #%d  %-8s %s\n", sf.RunID, sf.Seq, sf.Finding.Severity, sf.Finding.Invariant)
		fmt.Fprintf(formatter.Writer, "  trace: %v\n", sf.Finding.Actions)
		fmt.Fprintf(formatter.Writer, "  fingerprint: %s\n", sf.Fingerprint)
	}
	return nil
}
