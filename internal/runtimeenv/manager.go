// Package runtimeenv provisions the bot's isolated Python virtual environment.
//
// An existing environment is reused as-is and never deleted or recreated
// automatically; an operator may have customized it.
package runtimeenv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"botctl/internal/utils"
	"botctl/pkg/logging"
)

// State is the creation state of a runtime environment.
type State string

const (
	StateAbsent    State = "absent"
	StateCreated   State = "created"
	StatePopulated State = "populated"
)

// Environment describes a runtime environment root after Ensure.
type Environment struct {
	Root  string
	State State
	// Reused is true when the environment existed before this run.
	Reused bool
}

// CreationError means the environment could not be created or validated.
// Dependency installation is not attempted after it.
type CreationError struct {
	Root       string
	Diagnostic string
	Err        error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("failed to create runtime environment at %s: %s", e.Root, e.Diagnostic)
}

func (e *CreationError) Unwrap() error { return e.Err }

// InstallError means dependency installation failed. Diagnostic holds the
// installer's own output.
type InstallError struct {
	Root       string
	Diagnostic string
	Err        error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("failed to install dependencies into %s: %s", e.Root, e.Diagnostic)
}

func (e *InstallError) Unwrap() error { return e.Err }

// Dependencies is the declared dependency set. RequirementsFile wins when it
// exists on disk; Packages is the fallback.
type Dependencies struct {
	RequirementsFile string
	Packages         []string
}

// Manager creates virtual environments with `<python> -m venv` and installs
// dependencies with the environment's own pip.
type Manager struct {
	runner utils.Runner
	python string
	deps   Dependencies
	// workDir is where pip runs, so relative requirement includes resolve.
	workDir string
}

// NewManager creates a Manager.
func NewManager(runner utils.Runner, python string, deps Dependencies, workDir string) *Manager {
	if python == "" {
		python = "python3"
	}
	return &Manager{runner: runner, python: python, deps: deps, workDir: workDir}
}

// markerFile is written by venv into every environment root.
const markerFile = "pyvenv.cfg"

// Ensure creates the environment at root if absent, then installs the
// declared dependencies into it.
func (m *Manager) Ensure(ctx context.Context, root string) (Environment, error) {
	env := Environment{Root: root, State: StateAbsent}

	info, err := os.Stat(root)
	switch {
	case err == nil && !info.IsDir():
		return env, &CreationError{Root: root, Diagnostic: "path exists and is not a directory; remove or move it manually"}
	case err == nil:
		if _, markerErr := os.Stat(filepath.Join(root, markerFile)); markerErr != nil {
			return env, &CreationError{
				Root:       root,
				Diagnostic: fmt.Sprintf("directory exists but has no %s, so it is not a virtual environment; remove or move it manually", markerFile),
				Err:        markerErr,
			}
		}
		env.Reused = true
		if err := m.checkPip(ctx, root); err != nil {
			return env, err
		}
		logging.Info("Runtime", "Reusing existing virtual environment at %s", root)
		env.State = StateCreated
	case errors.Is(err, fs.ErrNotExist):
		logging.Info("Runtime", "Creating virtual environment at %s", root)
		res, runErr := m.runner.Run(ctx, utils.Command{Name: m.python, Args: []string{"-m", "venv", root}})
		if runErr != nil {
			return env, &CreationError{Root: root, Diagnostic: diagnosticOf(res, runErr), Err: runErr}
		}
		env.State = StateCreated
	default:
		return env, &CreationError{Root: root, Diagnostic: err.Error(), Err: err}
	}

	if err := m.install(ctx, root); err != nil {
		return env, err
	}
	env.State = StatePopulated
	return env, nil
}

// checkPip confirms a reused environment can run its own pip. venv writes
// pyvenv.cfg before bootstrapping pip, so a failed creation leaves a marker
// behind without a usable installer.
func (m *Manager) checkPip(ctx context.Context, root string) error {
	res, err := m.runner.Run(ctx, utils.Command{Name: PythonPath(root), Args: []string{"-m", "pip", "--version"}})
	if err != nil {
		return &CreationError{
			Root:       root,
			Diagnostic: fmt.Sprintf("virtual environment exists but is incomplete (%s); remove it and rerun", diagnosticOf(res, err)),
			Err:        err,
		}
	}
	return nil
}

func (m *Manager) install(ctx context.Context, root string) error {
	args := []string{"-m", "pip", "install", "--disable-pip-version-check"}
	if req := m.requirementsPath(); req != "" {
		logging.Info("Runtime", "Installing dependencies from %s", req)
		args = append(args, "-r", req)
	} else if len(m.deps.Packages) > 0 {
		logging.Info("Runtime", "Installing packages: %v", m.deps.Packages)
		args = append(args, m.deps.Packages...)
	} else {
		logging.Warn("Runtime", "No requirements file and no packages declared; skipping dependency installation")
		return nil
	}

	res, err := m.runner.Run(ctx, utils.Command{Name: PythonPath(root), Args: args, Dir: m.workDir})
	if err != nil {
		return &InstallError{Root: root, Diagnostic: diagnosticOf(res, err), Err: err}
	}
	return nil
}

func (m *Manager) requirementsPath() string {
	if m.deps.RequirementsFile == "" {
		return ""
	}
	path := m.deps.RequirementsFile
	if !filepath.IsAbs(path) && m.workDir != "" {
		path = filepath.Join(m.workDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// PythonPath returns the interpreter inside an environment root.
func PythonPath(root string) string {
	return filepath.Join(root, "bin", "python")
}

func diagnosticOf(res utils.Result, err error) string {
	combined := res.Stdout
	if res.Stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += res.Stderr
	}
	combined = strings.TrimSpace(combined)
	if combined == "" {
		return err.Error()
	}
	return combined
}
