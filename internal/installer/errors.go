package installer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"botctl/internal/launcher"
	"botctl/internal/probe"
	"botctl/internal/runtimeenv"
	"botctl/internal/secrets"
	"botctl/internal/systemd"
	"botctl/internal/unit"
)

// Kind is the operator-facing failure category of a stage.
type Kind string

const (
	KindMissingPrerequisite          Kind = "MissingPrerequisite"
	KindEnvironmentCreationFailed    Kind = "EnvironmentCreationFailed"
	KindDependencyInstallFailed      Kind = "DependencyInstallFailed"
	KindSecretValidationFailed       Kind = "SecretValidationFailed"
	KindSecretPersistFailed          Kind = "SecretPersistFailed"
	KindScriptWriteFailed            Kind = "ScriptWriteFailed"
	KindServiceInstallFailed         Kind = "ServiceInstallFailed"
	KindServiceActivationUnconfirmed Kind = "ServiceActivationUnconfirmed"
)

// StageError is a stage failure with enough context for an operator to act.
type StageError struct {
	Stage string `json:"stage" yaml:"stage"`
	Kind  Kind   `json:"kind" yaml:"kind"`
	// Subject names what failed: a prerequisite, a path, missing keys or a unit.
	Subject string `json:"subject" yaml:"subject"`
	// Reason refines ServiceInstallFailed.
	Reason      systemd.Reason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Diagnostic  string         `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
	Remediation []string       `json:"remediation,omitempty" yaml:"remediation,omitempty"`
	Err         error          `json:"-" yaml:"-"`
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Subject)
}

func (e *StageError) Unwrap() error { return e.Err }

// AsStageError extracts a *StageError from err.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// classify maps a component error onto the stage taxonomy.
func classify(stage string, err error, facts Facts) *StageError {
	se := &StageError{Stage: stage, Err: err, Diagnostic: err.Error()}

	var (
		missing     *probe.MissingError
		creation    *runtimeenv.CreationError
		install     *runtimeenv.InstallError
		validation  *secrets.ValidationError
		persist     *secrets.PersistError
		write       *launcher.WriteError
		invalidUnit *unit.InvalidError
		svcInstall  *systemd.InstallError
	)

	switch {
	case errors.As(err, &missing):
		se.Kind = KindMissingPrerequisite
		se.Subject = missing.Prerequisite.Name
		se.Diagnostic = missing.Diagnostic
		if missing.Prerequisite.Hint != "" {
			se.Remediation = []string{missing.Prerequisite.Hint}
		}
	case errors.As(err, &creation):
		se.Kind = KindEnvironmentCreationFailed
		se.Subject = creation.Root
		se.Diagnostic = creation.Diagnostic
		se.Remediation = []string{"botctl never deletes an existing directory; fix or remove " + creation.Root + " and rerun 'botctl install'"}
	case errors.As(err, &install):
		se.Kind = KindDependencyInstallFailed
		se.Subject = install.Root
		se.Diagnostic = install.Diagnostic
		se.Remediation = []string{"check network access and the requirements file, then rerun 'botctl install'; the environment is reused"}
	case errors.As(err, &validation):
		se.Kind = KindSecretValidationFailed
		se.Subject = strings.Join(validation.Missing, ", ")
		se.Diagnostic = validation.Reason
		se.Remediation = []string{fmt.Sprintf("add the missing keys to %s as KEY=value lines, or remove the file to be prompted", validation.Path)}
	case errors.As(err, &persist):
		se.Kind = KindSecretPersistFailed
		se.Subject = persist.Path
		se.Remediation = []string{"check that " + filepath.Dir(persist.Path) + " is writable; nothing was written"}
	case errors.As(err, &write):
		se.Kind = KindScriptWriteFailed
		se.Subject = write.Path
		se.Remediation = []string{"check permissions on " + write.Path}
	case errors.As(err, &invalidUnit):
		se.Kind = KindServiceInstallFailed
		se.Reason = systemd.ReasonMalformed
		se.Subject = subjectForUnit(facts.ServiceName, se.Reason)
		se.Remediation = []string{"inspect the rendered unit with 'botctl unit' and fix the service settings"}
	case errors.As(err, &svcInstall):
		se.Kind = KindServiceInstallFailed
		se.Reason = svcInstall.Reason
		se.Subject = subjectForUnit(facts.ServiceName, se.Reason)
		se.Diagnostic = svcInstall.Diagnostic
		se.Remediation = serviceRemediation(facts.ServiceName, svcInstall.Reason)
	default:
		return nil
	}
	return se
}

func subjectForUnit(name string, reason systemd.Reason) string {
	return fmt.Sprintf("%s (%s)", unit.FileName(name), reason)
}

func serviceRemediation(name string, reason systemd.Reason) []string {
	switch reason {
	case systemd.ReasonPrivilegeDenied:
		return []string{"rerun with sudo, or allow escalation with service.sudo: auto"}
	case systemd.ReasonMalformed:
		return []string{"inspect the rendered unit with 'botctl unit'"}
	default:
		return activationHints(name)
	}
}

func activationHints(name string) []string {
	file := unit.FileName(name)
	return []string{
		"systemctl status " + file,
		"journalctl -u " + file + " -n 50 --no-pager",
	}
}
