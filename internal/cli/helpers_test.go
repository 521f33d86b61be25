package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/testutil"
)

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return buf.String(), err
}

// executeRoot runs the full command tree.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, NewRootCommand(), args...)
}

// runCommand builds a run command with a fixed run ID.
func runCommand(format, runID string) *cobra.Command {
	return newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: format, Env: EnvConfig{MaxDepth: 4, MaxBranches: 6, Seed: 1}},
		RunIDs:      testutil.NewFixedRunIDGenerator(runID),
	})
}

// writeModel writes spec as a JSON model in a fresh temp dir.
func writeModel(t *testing.T, name string, spec *ir.ModelSpec) string {
	t.Helper()
	return testutil.WriteModelJSON(t, t.TempDir(), name, spec)
}
