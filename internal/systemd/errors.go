package systemd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"botctl/internal/utils"
)

// Reason classifies why the service manager refused an install.
type Reason string

const (
	ReasonPrivilegeDenied Reason = "privilege-denied"
	ReasonMalformed       Reason = "malformed-definition"
	ReasonFailed          Reason = "failed"
)

// InstallError reports a failed install step along with the service
// manager's own diagnostic output.
type InstallError struct {
	Reason     Reason
	Step       string
	Diagnostic string
	Err        error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("service install failed at %s (%s)", e.Step, e.Reason)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}

func (e *InstallError) Unwrap() error { return e.Err }

var privilegeMarkers = []string{
	"a password is required",
	"not in the sudoers",
	"permission denied",
	"access denied",
	"interactive authentication required",
	"operation not permitted",
}

var malformedMarkers = []string{
	"bad-setting",
	"bad unit file setting",
	"invalid",
	"failed to parse",
	"unknown key",
	"unknown section",
	"is not valid",
}

// classify decides the Reason for a failed step from the error and the
// service manager's output.
func classify(res utils.Result, err error) Reason {
	if errors.Is(err, os.ErrPermission) {
		return ReasonPrivilegeDenied
	}
	text := strings.ToLower(res.Stderr + "\n" + res.Stdout)
	for _, m := range privilegeMarkers {
		if strings.Contains(text, m) {
			return ReasonPrivilegeDenied
		}
	}
	for _, m := range malformedMarkers {
		if strings.Contains(text, m) {
			return ReasonMalformed
		}
	}
	return ReasonFailed
}

func newInstallError(step string, res utils.Result, err error) *InstallError {
	diag := res.Diagnostic()
	if diag == "" && err != nil {
		diag = err.Error()
	}
	return &InstallError{Reason: classify(res, err), Step: step, Diagnostic: diag, Err: err}
}
