package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botctl/internal/config"
	"botctl/internal/launcher"
	"botctl/internal/probe"
	"botctl/internal/reporting"
	"botctl/internal/runtimeenv"
	"botctl/internal/secrets"
	"botctl/internal/systemd"
	"botctl/internal/testutil"
	"botctl/internal/utils"
)

type fakePrompter struct {
	interactive bool
	values      map[string]string
	asked       []string
}

func (p *fakePrompter) Interactive() bool { return p.interactive }

func (p *fakePrompter) Prompt(_ context.Context, key secrets.Key) (string, error) {
	p.asked = append(p.asked, key.Name)
	return p.values[key.Name], nil
}

type fakeService struct {
	priv       systemd.Privilege
	installErr error
	state      systemd.ServiceState
	statusErr  error

	installs    []string
	statusCalls int
}

func (s *fakeService) PrivilegeRequirement() systemd.Privilege { return s.priv }

func (s *fakeService) Install(_ context.Context, unitText, _ string) error {
	if s.installErr != nil {
		return s.installErr
	}
	s.installs = append(s.installs, unitText)
	return nil
}

func (s *fakeService) Status(context.Context, string) (systemd.ServiceState, error) {
	s.statusCalls++
	return s.state, s.statusErr
}

type harness struct {
	dir      string
	cfg      config.BotctlConfig
	facts    Facts
	runner   *testutil.FakeRunner
	prompter *fakePrompter
	service  *fakeService
	recorder *reporting.Recorder
	missing  map[string]bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	cfg := config.GetDefaultConfig()
	cfg.InstallDir = dir
	noSettle := time.Duration(0)
	cfg.Service.SettleDelay = &noSettle

	h := &harness{
		dir: dir,
		cfg: cfg,
		facts: Facts{
			User:        "alice",
			InstallDir:  dir,
			VenvDir:     filepath.Join(dir, "venv"),
			EnvFile:     filepath.Join(dir, ".env"),
			ScriptPath:  filepath.Join(dir, "start.sh"),
			ServiceName: "ai-sysadmin-bot",
		},
		runner: &testutil.FakeRunner{},
		prompter: &fakePrompter{
			interactive: true,
			values: map[string]string{
				config.TelegramTokenKey: "123:abc",
				config.GeminiAPIKey:     "gem-key",
			},
		},
		service:  &fakeService{state: systemd.StateInstalledActive},
		recorder: reporting.NewRecorder(),
		missing:  map[string]bool{},
	}

	h.runner.On("python3 -m venv", testutil.Response{Do: func(cmd utils.Command) {
		root := cmd.Args[len(cmd.Args)-1]
		require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "pyvenv.cfg"), []byte("home = /usr/bin\n"), 0o644))
	}})

	orig := utils.LookPath
	utils.LookPath = func(name string) (string, error) {
		if h.missing[name] {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	t.Cleanup(func() { utils.LookPath = orig })

	return h
}

func (h *harness) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	opts, err := h.facts.LauncherOptions(h.cfg.Launcher.EntryPoint)
	require.NoError(t, err)

	o := New(h.cfg, Stages{
		Probe: probe.New(h.runner),
		Environment: runtimeenv.NewManager(h.runner, h.cfg.Runtime.Python, runtimeenv.Dependencies{
			RequirementsFile: h.cfg.Runtime.RequirementsFile,
			Packages:         h.cfg.Runtime.Packages,
		}, h.dir),
		Secrets: secrets.NewStore(h.prompter),
		Script:  launcher.NewWriter(opts),
		Service: h.service,
	}, h.recorder)
	o.newRunID = func() string { return "run-1" }
	return o
}

func (h *harness) run(t *testing.T, opts Options) (*Report, error) {
	t.Helper()
	return h.orchestrator(t).Run(context.Background(), h.facts, opts)
}

func outcomes(r *Report) map[string]reporting.Outcome {
	out := make(map[string]reporting.Outcome)
	for _, s := range r.Stages {
		out[s.Stage] = s.Outcome
	}
	return out
}

func TestRun_FreshHost(t *testing.T) {
	h := newHarness(t)

	report, err := h.run(t, Options{})
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, systemd.StateInstalledActive, report.FinalState)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, map[string]reporting.Outcome{
		StagePrerequisites:     reporting.OutcomeChecked,
		StageEnvironment:       reporting.OutcomeCreated,
		StageSecrets:           reporting.OutcomeCreated,
		StageLaunchScript:      reporting.OutcomeCreated,
		StageServiceDefinition: reporting.OutcomeUpdated,
		StageService:           reporting.OutcomeInstalled,
		StageVerification:      reporting.OutcomeChecked,
	}, outcomes(report))

	env, err := godotenvRead(h.facts.EnvFile)
	require.NoError(t, err)
	assert.Len(t, env, 2)
	assert.Equal(t, "123:abc", env[config.TelegramTokenKey])
	assert.Equal(t, "gem-key", env[config.GeminiAPIKey])

	info, err := os.Stat(h.facts.EnvFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	info, err = os.Stat(h.facts.ScriptPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o111)

	require.Len(t, h.service.installs, 1)
	assert.Contains(t, h.service.installs[0], "WorkingDirectory="+h.dir+"\n")
	assert.Contains(t, h.service.installs[0], "EnvironmentFile="+h.facts.EnvFile+"\n")
	assert.Contains(t, h.service.installs[0], "Restart=always\n")
	assert.Equal(t, 1, h.service.statusCalls)

	assert.Equal(t, []string{
		StagePrerequisites, StageEnvironment, StageSecrets, StageLaunchScript,
		StageServiceDefinition, StageService, StageVerification,
	}, h.recorder.Stages())
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, Options{})
	require.NoError(t, err)
	envBefore, err := os.ReadFile(h.facts.EnvFile)
	require.NoError(t, err)
	scriptBefore, err := os.ReadFile(h.facts.ScriptPath)
	require.NoError(t, err)
	h.prompter.asked = nil

	report, err := h.run(t, Options{})
	require.NoError(t, err)

	got := outcomes(report)
	assert.Equal(t, reporting.OutcomeReused, got[StageEnvironment])
	assert.Equal(t, reporting.OutcomeReused, got[StageSecrets])
	assert.Equal(t, reporting.OutcomeReused, got[StageLaunchScript])
	assert.Equal(t, reporting.OutcomeInstalled, got[StageService])
	assert.Empty(t, h.prompter.asked)

	envAfter, err := os.ReadFile(h.facts.EnvFile)
	require.NoError(t, err)
	assert.Equal(t, envBefore, envAfter)
	scriptAfter, err := os.ReadFile(h.facts.ScriptPath)
	require.NoError(t, err)
	assert.Equal(t, scriptBefore, scriptAfter)

	venvCreates := 0
	for _, line := range h.runner.Lines() {
		if line == "python3 -m venv "+h.facts.VenvDir {
			venvCreates++
		}
	}
	assert.Equal(t, 1, venvCreates)

	require.Len(t, h.service.installs, 2)
	assert.Equal(t, h.service.installs[0], h.service.installs[1])
}

func TestRun_MissingPrerequisiteStopsBeforeAnyChange(t *testing.T) {
	h := newHarness(t)
	h.missing["python3"] = true

	report, err := h.run(t, Options{})

	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindMissingPrerequisite, se.Kind)
	assert.Equal(t, "python3", se.Subject)
	assert.Equal(t, "MissingPrerequisite: python3", err.Error())
	assert.NotEmpty(t, se.Remediation)

	assert.Empty(t, h.runner.Calls)
	assert.NoDirExists(t, h.facts.VenvDir)
	assert.NoFileExists(t, h.facts.EnvFile)
	assert.NoFileExists(t, h.facts.ScriptPath)
	assert.Empty(t, h.service.installs)
	assert.Equal(t, reporting.OutcomeFailed, outcomes(report)[StagePrerequisites])
}

func TestRun_DependencyInstallFailureKeepsEnvironment(t *testing.T) {
	h := newHarness(t)
	h.runner.Fail(filepath.Join(h.facts.VenvDir, "bin", "python")+" -m pip", "ERROR: Could not find a version that satisfies the requirement")

	_, err := h.run(t, Options{})

	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindDependencyInstallFailed, se.Kind)
	assert.Contains(t, se.Diagnostic, "Could not find a version")
	assert.DirExists(t, h.facts.VenvDir)
	assert.NoFileExists(t, h.facts.EnvFile)
	assert.Empty(t, h.prompter.asked)
}

func TestRun_EnvironmentCreationFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.Fail("python3 -m venv "+h.facts.VenvDir, "Error: ensurepip is not available")

	_, err := h.run(t, Options{})

	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindEnvironmentCreationFailed, se.Kind)
	assert.Equal(t, h.facts.VenvDir, se.Subject)
	assert.Contains(t, se.Diagnostic, "ensurepip")
	assert.False(t, h.runner.Called(filepath.Join(h.facts.VenvDir, "bin", "python")))
}

func TestRun_PartialSecretFile(t *testing.T) {
	h := newHarness(t)
	original := []byte(config.TelegramTokenKey + "=123:abc\n")
	require.NoError(t, os.WriteFile(h.facts.EnvFile, original, 0o600))

	report, err := h.run(t, Options{})

	require.Error(t, err)
	assert.Equal(t, "SecretValidationFailed: GEMINI_API_KEY", err.Error())
	assert.Empty(t, h.prompter.asked)
	assert.Empty(t, h.service.installs)
	assert.NoFileExists(t, h.facts.ScriptPath)

	data, readErr := os.ReadFile(h.facts.EnvFile)
	require.NoError(t, readErr)
	assert.Equal(t, original, data)

	_, reached := report.Outcome(StageService)
	assert.False(t, reached)
}

func TestRun_ExistingSecretsAreAuthoritative(t *testing.T) {
	h := newHarness(t)
	original := []byte(config.TelegramTokenKey + "=file-token\n" + config.GeminiAPIKey + "=file-gemini\nEXTRA=kept\n")
	require.NoError(t, os.WriteFile(h.facts.EnvFile, original, 0o600))

	report, err := h.run(t, Options{})
	require.NoError(t, err)

	assert.Equal(t, reporting.OutcomeReused, outcomes(report)[StageSecrets])
	assert.Empty(t, h.prompter.asked)
	data, err := os.ReadFile(h.facts.EnvFile)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestRun_NonInteractiveWithoutSecretFile(t *testing.T) {
	h := newHarness(t)
	h.prompter.interactive = false

	_, err := h.run(t, Options{})

	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindSecretValidationFailed, se.Kind)
	assert.Equal(t, config.TelegramTokenKey+", "+config.GeminiAPIKey, se.Subject)
	assert.NoFileExists(t, h.facts.EnvFile)
}

func TestRun_UnitRegeneratedAfterMove(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, Options{})
	require.NoError(t, err)

	moved := filepath.Join(t.TempDir(), "moved")
	require.NoError(t, os.Rename(h.dir, moved))
	h.dir = moved
	h.facts.InstallDir = moved
	h.facts.VenvDir = filepath.Join(moved, "venv")
	h.facts.EnvFile = filepath.Join(moved, ".env")
	h.facts.ScriptPath = filepath.Join(moved, "start.sh")

	report, err := h.run(t, Options{})
	require.NoError(t, err)

	assert.Equal(t, reporting.OutcomeReused, outcomes(report)[StageEnvironment])
	require.Len(t, h.service.installs, 2)
	assert.Contains(t, h.service.installs[1], "WorkingDirectory="+moved+"\n")
	assert.Contains(t, h.service.installs[1], "ExecStart="+filepath.Join(moved, "start.sh"))
	assert.NotEqual(t, h.service.installs[0], h.service.installs[1])
}

func TestRun_ForceScript(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.facts.ScriptPath, []byte("#!/bin/sh\necho custom\n"), 0o644))

	report, err := h.run(t, Options{ForceScript: true})
	require.NoError(t, err)

	assert.Equal(t, reporting.OutcomeUpdated, outcomes(report)[StageLaunchScript])
	data, err := os.ReadFile(h.facts.ScriptPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "echo custom")
}

func TestRun_SkipService(t *testing.T) {
	h := newHarness(t)

	report, err := h.run(t, Options{SkipService: true})
	require.NoError(t, err)

	assert.Equal(t, reporting.OutcomeSkipped, outcomes(report)[StageService])
	assert.Empty(t, h.service.installs)
	assert.Zero(t, h.service.statusCalls)
	assert.Empty(t, report.FinalState)
	assert.FileExists(t, h.facts.ScriptPath)
}

func TestRun_PrivilegeDenied(t *testing.T) {
	h := newHarness(t)
	h.service.installErr = &systemd.InstallError{
		Reason:     systemd.ReasonPrivilegeDenied,
		Step:       "write",
		Diagnostic: "sudo: a password is required",
	}

	report, err := h.run(t, Options{})

	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindServiceInstallFailed, se.Kind)
	assert.Equal(t, systemd.ReasonPrivilegeDenied, se.Reason)
	assert.Equal(t, "ServiceInstallFailed: ai-sysadmin-bot.service (privilege-denied)", err.Error())
	assert.Equal(t, "sudo: a password is required", se.Diagnostic)
	assert.Zero(t, h.service.statusCalls)
	assert.Equal(t, reporting.OutcomeFailed, outcomes(report)[StageService])
}

func TestRun_MalformedDefinition(t *testing.T) {
	h := newHarness(t)
	h.cfg.Service.RestartSec = 0

	_, err := h.run(t, Options{})

	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindServiceInstallFailed, se.Kind)
	assert.Equal(t, systemd.ReasonMalformed, se.Reason)
	assert.Empty(t, h.service.installs)
}

func TestRun_ActivationUnconfirmedIsWarning(t *testing.T) {
	h := newHarness(t)
	h.service.state = systemd.StateInstalledFailed

	report, err := h.run(t, Options{})
	require.NoError(t, err)

	assert.Equal(t, systemd.StateInstalledFailed, report.FinalState)
	require.Len(t, report.Warnings, 1)
	w := report.Warnings[0]
	assert.Equal(t, KindServiceActivationUnconfirmed, w.Kind)
	assert.Contains(t, w.Remediation, "systemctl status ai-sysadmin-bot.service")
	assert.Contains(t, w.Remediation, "journalctl -u ai-sysadmin-bot.service -n 50 --no-pager")
	assert.Equal(t, reporting.OutcomeWarning, outcomes(report)[StageVerification])
	assert.Equal(t, 1, h.service.statusCalls)
}

func TestRun_StatusErrorIsWarning(t *testing.T) {
	h := newHarness(t)
	h.service.statusErr = errors.New("Failed to connect to bus")

	report, err := h.run(t, Options{})
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0].Diagnostic, "Failed to connect to bus")
}

func TestRun_SettleDelayRespectsCancellation(t *testing.T) {
	h := newHarness(t)
	hour := time.Hour
	h.cfg.Service.SettleDelay = &hour
	o := h.orchestrator(t)
	o.sleep = func(ctx context.Context, d time.Duration) error {
		assert.Equal(t, time.Hour, d)
		return context.Canceled
	}

	_, err := o.Run(context.Background(), h.facts, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.service.statusCalls)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orchestrator(t).Run(ctx, h.facts, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.runner.Calls)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
