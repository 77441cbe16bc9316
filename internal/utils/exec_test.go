package utils

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	c := Command{Name: "systemctl", Args: []string{"enable", "bot.service"}}
	assert.Equal(t, "systemctl enable bot.service", c.String())
	assert.Equal(t, "true", Command{Name: "true"}.String())
}

func TestResultDiagnostic(t *testing.T) {
	assert.Equal(t, "boom", Result{Stdout: "out", Stderr: " boom\n"}.Diagnostic())
	assert.Equal(t, "out", Result{Stdout: "out\n"}.Diagnostic())
}

func TestExecRunner_CapturesOutput(t *testing.T) {
	r := NewExecRunner()
	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo hello; echo oops >&2"}})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewExecRunner()
	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo denied >&2; exit 3"}})
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, err.Error(), "denied")
	assert.Equal(t, "denied", res.Diagnostic())
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner()
	res, err := r.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, err.Error(), "failed to execute")
}

func TestExecRunner_Attach(t *testing.T) {
	var out bytes.Buffer
	r := &ExecRunner{Stdout: &out, Stderr: &out}
	_, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo attached"}, Attach: true})
	require.NoError(t, err)
	assert.Equal(t, "attached\n", out.String())
}

func TestExecRunner_Dir(t *testing.T) {
	dir := t.TempDir()
	r := NewExecRunner()
	res, err := r.Run(context.Background(), Command{Name: "pwd", Dir: dir})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, dir)
}
