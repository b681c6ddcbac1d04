package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pagecheck/internal/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(config.Default())
	require.NotNil(t, cmd)
	assert.Equal(t, "pagecheck", cmd.Use)
	assert.Contains(t, cmd.Long, "contract")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(config.Default())
	commands := []string{"check", "timing", "validate", "serve", "history", "watch"}

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
	cmd := NewRootCommand(config.Default())

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCheckCommandFlags(t *testing.T) {
	cmd := NewRootCommand(config.Default())
	checkCmd, _, err := cmd.Find([]string{"check"})
	require.NoError(t, err)

	for _, name := range []string{"contract", "variant", "base-url", "driver", "db", "filter", "timeout", "golden", "update", "headless"} {
		assert.NotNil(t, checkCmd.Flags().Lookup(name), "check should have --%s", name)
	}
	assert.Equal(t, "cdp", checkCmd.Flags().Lookup("driver").DefValue)
	assert.Equal(t, "react", checkCmd.Flags().Lookup("variant").DefValue)
	assert.Equal(t, "10s", checkCmd.Flags().Lookup("timeout").DefValue)
	assert.Equal(t, "false", checkCmd.Flags().Lookup("update").DefValue)
}

func TestFlagDefaultsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Driver = config.DriverStatic
	cfg.BaseURL = "http://app.test:8080"
	cfg.DB = "runs.db"

	cmd := NewRootCommand(cfg)
	checkCmd, _, err := cmd.Find([]string{"check"})
	require.NoError(t, err)

	assert.Equal(t, "static", checkCmd.Flags().Lookup("driver").DefValue)
	assert.Equal(t, "http://app.test:8080", checkCmd.Flags().Lookup("base-url").DefValue)
	assert.Equal(t, "runs.db", checkCmd.Flags().Lookup("db").DefValue)
}

func TestTimingCommandFlags(t *testing.T) {
	cmd := NewRootCommand(config.Default())
	timingCmd, _, err := cmd.Find([]string{"timing"})
	require.NoError(t, err)

	assert.NotNil(t, timingCmd.Flags().Lookup("runs"))
	assert.NotNil(t, timingCmd.Flags().Lookup("ceiling"))
	assert.Nil(t, timingCmd.Flags().Lookup("update"))
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand(config.Default())
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	addrFlag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, "127.0.0.1:3000", addrFlag.DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("skip-range-check"))
	assert.NotNil(t, serveCmd.Flags().Lookup("keep-session-on-logout"))
	assert.NotNil(t, serveCmd.Flags().Lookup("allow-anonymous"))
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand(config.Default())
	historyCmd, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)

	dbFlag := historyCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	limitFlag := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "20", limitFlag.DefValue)
}

func TestWatchCommandFlags(t *testing.T) {
	cmd := NewRootCommand(config.Default())
	watchCmd, _, err := cmd.Find([]string{"watch"})
	require.NoError(t, err)

	debounceFlag := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, debounceFlag)
	assert.Equal(t, "300ms", debounceFlag.DefValue)
	assert.NotNil(t, watchCmd.Flags().Lookup("contract"))
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
	cmd := NewRootCommand(config.Default())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "validate", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
