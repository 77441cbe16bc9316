// Package probe checks that the host tools botctl depends on are installed.
//
// Probing has no side effects beyond running an optional read-only detection
// command. A missing prerequisite is never retried: absence of a binary on
// PATH is not transient.
package probe

import (
	"context"
	"fmt"

	"botctl/internal/config"
	"botctl/internal/utils"
	"botctl/pkg/logging"
)

// Prerequisite is one host tool the install depends on.
type Prerequisite struct {
	Name string
	// Binary is looked up on PATH.
	Binary string
	// Check is an optional detection command run once Binary is found,
	// for tools that exist but may lack an optional module.
	Check []string
	// Hint tells the operator how to fix the absence.
	Hint string
}

// FromConfig converts the YAML prerequisite list.
func FromConfig(cfgs []config.PrerequisiteConfig) []Prerequisite {
	out := make([]Prerequisite, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, Prerequisite{Name: c.Name, Binary: c.Binary, Check: c.Check, Hint: c.Hint})
	}
	return out
}

// MissingError identifies the first prerequisite that is not satisfied.
type MissingError struct {
	Prerequisite Prerequisite
	// Diagnostic is the detection command's output when the binary exists
	// but the check failed.
	Diagnostic string
}

func (e *MissingError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("prerequisite %q is missing: %s", e.Prerequisite.Name, e.Diagnostic)
	}
	return fmt.Sprintf("prerequisite %q is missing: %q not found on PATH", e.Prerequisite.Name, e.Prerequisite.Binary)
}

// CommandProbe looks binaries up on PATH and runs detection commands.
type CommandProbe struct {
	runner   utils.Runner
	lookPath func(string) (string, error)
}

// New creates a CommandProbe. lookPath defaults to utils.LookPath.
func New(runner utils.Runner) *CommandProbe {
	return &CommandProbe{runner: runner, lookPath: utils.LookPath}
}

// Probe reports whether a binary is present on PATH.
func (p *CommandProbe) Probe(name string) bool {
	_, err := p.lookPath(name)
	return err == nil
}

// CheckAll verifies prerequisites in order and stops at the first one missing.
func (p *CommandProbe) CheckAll(ctx context.Context, prereqs []Prerequisite) error {
	for _, pr := range prereqs {
		if !p.Probe(pr.Binary) {
			logging.Debug("Probe", "%s: %s not on PATH", pr.Name, pr.Binary)
			return &MissingError{Prerequisite: pr}
		}
		if len(pr.Check) > 0 {
			res, err := p.runner.Run(ctx, utils.Command{Name: pr.Check[0], Args: pr.Check[1:]})
			if err != nil {
				diag := res.Diagnostic()
				if diag == "" {
					diag = err.Error()
				}
				return &MissingError{Prerequisite: pr, Diagnostic: diag}
			}
		}
		logging.Debug("Probe", "%s: ok", pr.Name)
	}
	return nil
}
