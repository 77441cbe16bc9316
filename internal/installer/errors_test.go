package installer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botctl/internal/launcher"
	"botctl/internal/probe"
	"botctl/internal/runtimeenv"
	"botctl/internal/secrets"
	"botctl/internal/systemd"
	"botctl/internal/unit"
)

func TestClassify(t *testing.T) {
	facts := Facts{ServiceName: "bot"}
	tests := []struct {
		name    string
		err     error
		kind    Kind
		subject string
	}{
		{"missing prerequisite", &probe.MissingError{Prerequisite: probe.Prerequisite{Name: "pip"}}, KindMissingPrerequisite, "pip"},
		{"venv creation", &runtimeenv.CreationError{Root: "/opt/bot/venv"}, KindEnvironmentCreationFailed, "/opt/bot/venv"},
		{"pip install", &runtimeenv.InstallError{Root: "/opt/bot/venv"}, KindDependencyInstallFailed, "/opt/bot/venv"},
		{"secret validation", &secrets.ValidationError{Path: ".env", Missing: []string{"A", "B"}}, KindSecretValidationFailed, "A, B"},
		{"secret persist", &secrets.PersistError{Path: "/opt/bot/.env", Err: errors.New("read-only")}, KindSecretPersistFailed, "/opt/bot/.env"},
		{"script write", &launcher.WriteError{Path: "/opt/bot/start.sh", Err: errors.New("denied")}, KindScriptWriteFailed, "/opt/bot/start.sh"},
		{"invalid unit", &unit.InvalidError{Field: "user", Reason: "must not be empty"}, KindServiceInstallFailed, "bot.service (malformed-definition)"},
		{"systemd install", &systemd.InstallError{Reason: systemd.ReasonFailed, Step: "restart"}, KindServiceInstallFailed, "bot.service (failed)"},
		{"wrapped", fmt.Errorf("stage: %w", &probe.MissingError{Prerequisite: probe.Prerequisite{Name: "systemctl"}}), KindMissingPrerequisite, "systemctl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := classify("stage", tt.err, facts)
			require.NotNil(t, se)
			assert.Equal(t, tt.kind, se.Kind)
			assert.Equal(t, tt.subject, se.Subject)
			assert.ErrorIs(t, se, tt.err)
		})
	}

	assert.Nil(t, classify("stage", errors.New("plain"), facts))
}

func TestStageErrorFormat(t *testing.T) {
	se := &StageError{Kind: KindSecretValidationFailed, Subject: "GEMINI_API_KEY"}
	assert.Equal(t, "SecretValidationFailed: GEMINI_API_KEY", se.Error())

	got, ok := AsStageError(fmt.Errorf("install: %w", se))
	require.True(t, ok)
	assert.Same(t, se, got)
}
