// Package launcher writes the bot's entry-point script, the single program
// run both by an operator and by the service manager.
package launcher

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"botctl/pkg/logging"
)

// WriteError means the script could not be written or made executable.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write launch script %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Options are the script's inputs, both relative to the script's own directory.
type Options struct {
	VenvDir    string
	EntryPoint string
}

// The script cds into its own directory so it behaves the same when run by
// hand or by systemd, then execs python so no shell stays between the
// service manager and the bot.
var scriptTemplate = template.Must(template.New("launcher").Parse(`#!/bin/sh
# Entry point for the bot. Generated by botctl; edits are preserved unless
# 'botctl install --force-script' is used.
set -e
SCRIPT_DIR=$(CDPATH= cd -- "$(dirname -- "$0")" && pwd)
cd "$SCRIPT_DIR"
. "$SCRIPT_DIR/{{ .VenvDir }}/bin/activate"
exec python "$SCRIPT_DIR/{{ .EntryPoint }}"
`))

// Render returns the script text.
func Render(opts Options) (string, error) {
	if opts.VenvDir == "" || opts.EntryPoint == "" {
		return "", fmt.Errorf("venv dir and entry point are required")
	}
	if filepath.IsAbs(opts.VenvDir) || filepath.IsAbs(opts.EntryPoint) {
		return "", fmt.Errorf("venv dir and entry point must be relative to the install directory")
	}
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Writer writes the launch script.
type Writer struct {
	opts Options
}

// NewWriter creates a Writer.
func NewWriter(opts Options) *Writer {
	return &Writer{opts: opts}
}

// Ensure writes the script at path unless it exists and force is false.
// The executable bits are asserted on every call. It reports whether the
// file content was written.
func (w *Writer) Ensure(path string, force bool) (bool, error) {
	wrote := false
	_, err := os.Stat(path)
	switch {
	case err == nil && !force:
		logging.Debug("Launcher", "Keeping existing launch script %s", path)
	case err == nil || errors.Is(err, fs.ErrNotExist):
		text, renderErr := Render(w.opts)
		if renderErr != nil {
			return false, &WriteError{Path: path, Err: renderErr}
		}
		if writeErr := os.WriteFile(path, []byte(text), 0755); writeErr != nil {
			return false, &WriteError{Path: path, Err: writeErr}
		}
		logging.Info("Launcher", "Wrote launch script %s", path)
		wrote = true
	default:
		return false, &WriteError{Path: path, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return wrote, &WriteError{Path: path, Err: err}
	}
	// WriteFile leaves an existing file's mode alone, so always re-assert.
	if mode := info.Mode().Perm() | 0111; mode != info.Mode().Perm() {
		if err := os.Chmod(path, mode); err != nil {
			return wrote, &WriteError{Path: path, Err: err}
		}
		logging.Info("Launcher", "Restored executable permission on %s", path)
	}
	return wrote, nil
}
