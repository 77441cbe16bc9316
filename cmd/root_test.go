package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	assert.Equal(t, testVersion, rootCmd.Version)
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "botctl", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)

	for _, flag := range []string{"config", "debug", "log-format", "dir", "name"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), "missing persistent flag %s", flag)
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "botctl version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())

	assert.Equal(t, "botctl version 1.0.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}

	for _, expected := range []string{
		"install", "check", "unit", "status", "logs",
		"start", "stop", "restart", "disable",
		"version", "self-update",
	} {
		assert.True(t, found[expected], "expected subcommand %s to be registered", expected)
	}
}

func TestInstallFlags(t *testing.T) {
	c := newInstallCmd()
	assert.NotNil(t, c.Flags().Lookup("force-script"))
	assert.NotNil(t, c.Flags().Lookup("no-service"))
	assert.NotNil(t, c.Flags().ShorthandLookup("o"))
	assert.Contains(t, c.Long, "The unit is regenerated on every run.")
}

func TestLogsFlags(t *testing.T) {
	c := newLogsCmd()
	require.NotNil(t, c.Flags().ShorthandLookup("f"))
	n := c.Flags().ShorthandLookup("n")
	require.NotNil(t, n)
	assert.Equal(t, "50", n.DefValue)
}

func TestRootCommandHelp(t *testing.T) {
	var buf bytes.Buffer
	testRootCmd := &cobra.Command{
		Use:          rootCmd.Use,
		Short:        rootCmd.Short,
		Long:         rootCmd.Long,
		SilenceUsage: true,
	}
	testRootCmd.SetOut(&buf)
	testRootCmd.SetArgs([]string{"--help"})
	require.NoError(t, testRootCmd.Execute())

	output := buf.String()
	assert.True(t, strings.Contains(output, "botctl"))
	assert.Contains(t, output, "bootstraps the AI sysadmin Telegram bot")
}
