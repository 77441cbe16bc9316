package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command describes one external program invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty inherits the caller's.
	Dir string
	// Attach connects the process to the caller's terminal instead of
	// capturing its output. Used for pass-through commands like log tails.
	Attach bool
}

// String renders the command line for logs and diagnostics.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Diagnostic returns the most useful text for an operator: stderr when
// present, otherwise stdout.
func (r Result) Diagnostic() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner executes external commands. Production code uses ExecRunner;
// tests substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner attached to the process's standard streams
// for Attach commands.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes cmd and waits for it. A non-zero exit is returned as an error
// that includes the command's stderr for diagnostics; the Result is populated
// either way.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var stdoutBuf, stderrBuf bytes.Buffer
	if c.Attach {
		cmd.Stdin = r.Stdin
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr
	} else {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
		// sudo may still prompt for a password on the controlling terminal.
		cmd.Stdin = r.Stdin
	}

	runErr := cmd.Run()
	result := Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return result, fmt.Errorf("'%s' exited with status %d: %w. Stderr: %s", c, result.ExitCode, runErr, strings.TrimSpace(result.Stderr))
		}
		if result.ExitCode == 0 {
			result.ExitCode = -1
		}
		return result, fmt.Errorf("failed to execute '%s': %w", c, runErr)
	}
	return result, nil
}

// LookPath is exec.LookPath, swappable in tests.
var LookPath = exec.LookPath
