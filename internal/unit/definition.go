// Package unit builds systemd service definitions for the bot.
//
// Everything here is pure: a Definition is derived from host and install
// facts and rendered to text without touching the system, so the unit can be
// regenerated on every install and tested without systemd.
package unit

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Facts are the host- and install-specific inputs, computed once per run.
type Facts struct {
	Name        string
	Description string
	User        string
	// InstallDir is the absolute install root and the service's working directory.
	InstallDir string
	// ScriptPath is the absolute path of the launch script.
	ScriptPath string
	// EnvFile is the absolute path of the secret file.
	EnvFile    string
	RestartSec int
	WantedBy   string
}

// Definition is a complete systemd service description.
type Definition struct {
	Name             string
	Description      string
	After            string
	User             string
	WorkingDirectory string
	EnvironmentFile  string
	ExecStart        string
	Restart          string
	RestartSec       int
	WantedBy         string
}

// FileName is the unit file name, e.g. "ai-sysadmin-bot.service".
func (d Definition) FileName() string {
	return FileName(d.Name)
}

// FileName returns the unit file name for a unit name with or without suffix.
func FileName(name string) string {
	if strings.HasSuffix(name, ".service") {
		return name
	}
	return name + ".service"
}

// InvalidError reports facts that cannot produce a valid unit.
type InvalidError struct {
	Field  string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid service definition: %s %s", e.Field, e.Reason)
}

// Build derives a Definition from facts. The restart policy is always
// "always" with a positive fixed delay, and the unit starts after the
// network target.
func Build(f Facts) (Definition, error) {
	if err := requireValue("name", f.Name); err != nil {
		return Definition{}, err
	}
	if strings.ContainsAny(f.Name, "/ ") {
		return Definition{}, &InvalidError{Field: "name", Reason: "must not contain '/' or spaces"}
	}
	if err := requireValue("user", f.User); err != nil {
		return Definition{}, err
	}
	for _, p := range []struct{ field, path string }{
		{"working directory", f.InstallDir},
		{"exec start", f.ScriptPath},
		{"environment file", f.EnvFile},
	} {
		if err := requireValue(p.field, p.path); err != nil {
			return Definition{}, err
		}
		if !filepath.IsAbs(p.path) {
			return Definition{}, &InvalidError{Field: p.field, Reason: fmt.Sprintf("must be an absolute path (got %q)", p.path)}
		}
	}
	if f.RestartSec <= 0 {
		return Definition{}, &InvalidError{Field: "restart delay", Reason: "must be a positive number of seconds"}
	}
	if strings.ContainsAny(f.Description, "\n\r") {
		return Definition{}, &InvalidError{Field: "description", Reason: "must be a single line"}
	}

	description := f.Description
	if description == "" {
		description = f.Name
	}
	wantedBy := f.WantedBy
	if wantedBy == "" {
		wantedBy = "multi-user.target"
	}

	return Definition{
		Name:             strings.TrimSuffix(f.Name, ".service"),
		Description:      description,
		After:            "network.target",
		User:             f.User,
		WorkingDirectory: filepath.Clean(f.InstallDir),
		EnvironmentFile:  filepath.Clean(f.EnvFile),
		ExecStart:        filepath.Clean(f.ScriptPath),
		Restart:          "always",
		RestartSec:       f.RestartSec,
		WantedBy:         wantedBy,
	}, nil
}

func requireValue(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &InvalidError{Field: field, Reason: "must not be empty"}
	}
	if strings.ContainsAny(v, "\n\r") {
		return &InvalidError{Field: field, Reason: "must not contain line breaks"}
	}
	return nil
}
