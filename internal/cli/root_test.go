package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "statefuzz", cmd.Use)
	assert.Contains(t, cmd.Long, "invariant violation")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "validate", "replay", "findings", "runs", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	defaults := map[string]string{
		"depth":    "4",
		"branches": "6",
		"seed":     "1",
		"budget":   "0",
		"db":       "",
	}
	for name, def := range defaults {
		flag := runCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, def, flag.DefValue, name)
	}
}

func TestReplayCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	replayCmd, _, err := cmd.Find([]string{"replay"})
	require.NoError(t, err)

	require.NotNil(t, replayCmd.Flags().Lookup("db"))
	require.NotNil(t, replayCmd.Flags().Lookup("run"))

	findingFlag := replayCmd.Flags().Lookup("finding")
	require.NotNil(t, findingFlag)
	assert.Equal(t, "0", findingFlag.DefValue)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, err := executeRoot(t, "--format", "invalid", "runs", "--db", filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEnvConfigDefaults(t *testing.T) {
	t.Setenv("STATEFUZZ_MAX_DEPTH", "9")
	t.Setenv("STATEFUZZ_MAX_BRANCHES", "2")
	t.Setenv("STATEFUZZ_SEED", "42")
	t.Setenv("STATEFUZZ_DB", "/tmp/statefuzz.db")

	cfg, err := LoadEnvConfig()
	require.NoError(t, err)
	assert.Equal(t, EnvConfig{MaxDepth: 9, MaxBranches: 2, Seed: 42, Database: "/tmp/statefuzz.db"}, cfg)

	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "9", runCmd.Flags().Lookup("depth").DefValue)
	assert.Equal(t, "42", runCmd.Flags().Lookup("seed").DefValue)
	assert.Equal(t, "/tmp/statefuzz.db", runCmd.Flags().Lookup("db").DefValue)
}

func TestEnvConfigUnset(t *testing.T) {
	for _, name := range []string{"STATEFUZZ_MAX_DEPTH", "STATEFUZZ_MAX_BRANCHES", "STATEFUZZ_SEED", "STATEFUZZ_STEP_BUDGET", "STATEFUZZ_DB"} {
		t.Setenv(name, "") // restores the original value on cleanup
		require.NoError(t, os.Unsetenv(name))
	}

	cfg, err := LoadEnvConfig()
	require.NoError(t, err)
	assert.Equal(t, EnvConfig{MaxDepth: 4, MaxBranches: 6, Seed: 1}, cfg)
}

func TestEnvConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"not a number", "STATEFUZZ_SEED", "abc"},
		{"negative depth", "STATEFUZZ_MAX_DEPTH", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadEnvConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parse env")

			_, err = executeRoot(t, "runs", "--db", filepath.Join(t.TempDir(), "x.db"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid environment")
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
