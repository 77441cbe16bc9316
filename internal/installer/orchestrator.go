package installer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"botctl/internal/config"
	"botctl/internal/probe"
	"botctl/internal/reporting"
	"botctl/internal/runtimeenv"
	"botctl/internal/secrets"
	"botctl/internal/systemd"
	"botctl/internal/unit"
)

// Stage names, in pipeline order.
const (
	StagePrerequisites     = "prerequisites"
	StageEnvironment       = "environment"
	StageSecrets           = "secrets"
	StageLaunchScript      = "launch-script"
	StageServiceDefinition = "service-definition"
	StageService           = "service"
	StageVerification      = "verification"
)

// Prober checks host prerequisites.
type Prober interface {
	CheckAll(ctx context.Context, prereqs []probe.Prerequisite) error
}

// EnvironmentEnsurer provisions the runtime environment.
type EnvironmentEnsurer interface {
	Ensure(ctx context.Context, root string) (runtimeenv.Environment, error)
}

// SecretEnsurer loads or captures the secret file.
type SecretEnsurer interface {
	Ensure(ctx context.Context, path string, keys []secrets.Key) (secrets.Result, error)
}

// ScriptEnsurer writes the launch script.
type ScriptEnsurer interface {
	Ensure(path string, force bool) (bool, error)
}

// ServiceInstaller installs the unit and reports its live state.
type ServiceInstaller interface {
	PrivilegeRequirement() systemd.Privilege
	Install(ctx context.Context, unitText, unitName string) error
	Status(ctx context.Context, unitName string) (systemd.ServiceState, error)
}

// Stages are the components the orchestrator drives.
type Stages struct {
	Probe       Prober
	Environment EnvironmentEnsurer
	Secrets     SecretEnsurer
	Script      ScriptEnsurer
	Service     ServiceInstaller
}

// Options tune a single run.
type Options struct {
	// ForceScript rewrites the launch script even if it exists.
	ForceScript bool
	// SkipService stops after the launch script.
	SkipService bool
}

// StageResult is how one stage finished.
type StageResult struct {
	Stage   string            `json:"stage" yaml:"stage"`
	Outcome reporting.Outcome `json:"outcome" yaml:"outcome"`
	Detail  string            `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Report summarizes a run. It is returned even when the run fails, holding
// the stages that completed.
type Report struct {
	RunID      string               `json:"runId" yaml:"runId"`
	Facts      Facts                `json:"facts" yaml:"facts"`
	Stages     []StageResult        `json:"stages" yaml:"stages"`
	FinalState systemd.ServiceState `json:"finalState,omitempty" yaml:"finalState,omitempty"`
	Warnings   []*StageError        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Outcome returns the recorded outcome of stage.
func (r *Report) Outcome(stage string) (reporting.Outcome, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s.Outcome, true
		}
	}
	return "", false
}

// Orchestrator runs the install pipeline.
type Orchestrator struct {
	stages   Stages
	prereqs  []probe.Prerequisite
	keys     []secrets.Key
	service  config.ServiceConfig
	reporter reporting.Reporter

	newRunID func() string
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates an Orchestrator for cfg. A nil reporter discards updates.
func New(cfg config.BotctlConfig, stages Stages, reporter reporting.Reporter) *Orchestrator {
	if reporter == nil {
		reporter = reporting.NewRecorder()
	}
	return &Orchestrator{
		stages:   stages,
		prereqs:  probe.FromConfig(cfg.ResolvedPrerequisites()),
		keys:     secrets.KeysFromConfig(cfg.Secrets.Keys),
		service:  cfg.Service,
		reporter: reporter,
		newRunID: uuid.NewString,
		sleep:    sleepContext,
	}
}

// run carries per-run state through the stages.
type run struct {
	o      *Orchestrator
	report *Report
}

// Run executes the pipeline. A fatal stage failure is returned as a
// *StageError; an unconfirmed activation is recorded in Report.Warnings and
// Run returns nil.
func (o *Orchestrator) Run(ctx context.Context, facts Facts, opts Options) (*Report, error) {
	r := &run{o: o, report: &Report{RunID: o.newRunID(), Facts: facts}}

	steps := []struct {
		stage string
		fn    func(context.Context, Options) (reporting.Outcome, string, error)
	}{
		{StagePrerequisites, r.prerequisites},
		{StageEnvironment, r.environment},
		{StageSecrets, r.secrets},
		{StageLaunchScript, r.launchScript},
	}
	for _, s := range steps {
		if err := r.step(ctx, s.stage, opts, s.fn); err != nil {
			return r.report, err
		}
	}

	if opts.SkipService {
		r.record(StageService, reporting.OutcomeSkipped, "service installation skipped (--no-service)")
		return r.report, nil
	}

	var unitText string
	if err := r.step(ctx, StageServiceDefinition, opts, func(context.Context, Options) (reporting.Outcome, string, error) {
		def, text, err := unit.BuildAndRender(facts.UnitFacts(o.service))
		if err != nil {
			return "", "", err
		}
		unitText = text
		return reporting.OutcomeUpdated, "rendered " + def.FileName(), nil
	}); err != nil {
		return r.report, err
	}

	if err := r.step(ctx, StageService, opts, func(ctx context.Context, _ Options) (reporting.Outcome, string, error) {
		priv := o.stages.Service.PrivilegeRequirement()
		r.update(StageService, reporting.OutcomeStarted, reporting.LogLevelInfo, priv.String(), nil)
		if err := o.stages.Service.Install(ctx, unitText, facts.ServiceName); err != nil {
			return "", "", err
		}
		return reporting.OutcomeInstalled, "enabled and restarted " + unit.FileName(facts.ServiceName), nil
	}); err != nil {
		return r.report, err
	}

	if err := r.verify(ctx); err != nil {
		return r.report, err
	}
	return r.report, nil
}

func (r *run) step(ctx context.Context, stage string, opts Options, fn func(context.Context, Options) (reporting.Outcome, string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.update(stage, reporting.OutcomeStarted, reporting.LogLevelDebug, "starting "+stage, nil)
	outcome, detail, err := fn(ctx, opts)
	if err != nil {
		se := classify(stage, err, r.report.Facts)
		if se == nil {
			se = &StageError{Stage: stage, Kind: kindForStage(stage), Subject: stage, Diagnostic: err.Error(), Err: err}
		}
		r.report.Stages = append(r.report.Stages, StageResult{Stage: stage, Outcome: reporting.OutcomeFailed, Detail: se.Diagnostic})
		r.update(stage, reporting.OutcomeFailed, reporting.LogLevelError, se.Error(), se)
		return se
	}
	r.record(stage, outcome, detail)
	return nil
}

func (r *run) record(stage string, outcome reporting.Outcome, detail string) {
	r.report.Stages = append(r.report.Stages, StageResult{Stage: stage, Outcome: outcome, Detail: detail})
	level := reporting.LogLevelInfo
	if outcome == reporting.OutcomeWarning {
		level = reporting.LogLevelWarn
	}
	r.update(stage, outcome, level, fmt.Sprintf("%s: %s", stage, detail), nil)
}

func (r *run) update(stage string, outcome reporting.Outcome, level reporting.LogLevel, msg string, err error) {
	var detail string
	if se, ok := err.(*StageError); ok {
		detail = se.Diagnostic
	}
	r.o.reporter.Report(reporting.StageUpdate{
		Timestamp: time.Now(),
		RunID:     r.report.RunID,
		Stage:     stage,
		Outcome:   outcome,
		Level:     level,
		Message:   msg,
		Detail:    detail,
		Err:       err,
	})
}

func (r *run) prerequisites(ctx context.Context, _ Options) (reporting.Outcome, string, error) {
	if err := r.o.stages.Probe.CheckAll(ctx, r.o.prereqs); err != nil {
		return "", "", err
	}
	return reporting.OutcomeChecked, fmt.Sprintf("%d prerequisites present", len(r.o.prereqs)), nil
}

func (r *run) environment(ctx context.Context, _ Options) (reporting.Outcome, string, error) {
	env, err := r.o.stages.Environment.Ensure(ctx, r.report.Facts.VenvDir)
	if err != nil {
		return "", "", err
	}
	if env.Reused {
		return reporting.OutcomeReused, "reused " + env.Root, nil
	}
	return reporting.OutcomeCreated, "created " + env.Root, nil
}

func (r *run) secrets(ctx context.Context, _ Options) (reporting.Outcome, string, error) {
	res, err := r.o.stages.Secrets.Ensure(ctx, r.report.Facts.EnvFile, r.o.keys)
	if err != nil {
		return "", "", err
	}
	// Only ever report key counts, never values.
	if res.Created {
		return reporting.OutcomeCreated, fmt.Sprintf("wrote %d keys to %s", len(res.Secrets), r.report.Facts.EnvFile), nil
	}
	return reporting.OutcomeReused, fmt.Sprintf("%d keys present in %s", len(res.Secrets), r.report.Facts.EnvFile), nil
}

func (r *run) launchScript(_ context.Context, opts Options) (reporting.Outcome, string, error) {
	wrote, err := r.o.stages.Script.Ensure(r.report.Facts.ScriptPath, opts.ForceScript)
	if err != nil {
		return "", "", err
	}
	switch {
	case wrote && opts.ForceScript:
		return reporting.OutcomeUpdated, "rewrote " + r.report.Facts.ScriptPath, nil
	case wrote:
		return reporting.OutcomeCreated, "wrote " + r.report.Facts.ScriptPath, nil
	default:
		return reporting.OutcomeReused, "kept " + r.report.Facts.ScriptPath, nil
	}
}

// verify queries the service state exactly once, after the settle delay.
func (r *run) verify(ctx context.Context) error {
	name := r.report.Facts.ServiceName
	if err := r.o.sleep(ctx, r.o.service.SettleDuration()); err != nil {
		return err
	}

	state, err := r.o.stages.Service.Status(ctx, name)
	if err == nil {
		r.report.FinalState = state
		if state.Active() {
			r.record(StageVerification, reporting.OutcomeChecked, unit.FileName(name)+" is "+string(state))
			return nil
		}
	}

	warning := &StageError{
		Stage:       StageVerification,
		Kind:        KindServiceActivationUnconfirmed,
		Subject:     unit.FileName(name),
		Remediation: activationHints(name),
		Err:         err,
	}
	if err != nil {
		warning.Diagnostic = err.Error()
	} else {
		warning.Diagnostic = "service state is " + string(state)
	}
	r.report.Warnings = append(r.report.Warnings, warning)
	r.record(StageVerification, reporting.OutcomeWarning, warning.Diagnostic)
	return nil
}

func kindForStage(stage string) Kind {
	switch stage {
	case StagePrerequisites:
		return KindMissingPrerequisite
	case StageEnvironment:
		return KindEnvironmentCreationFailed
	case StageSecrets:
		return KindSecretValidationFailed
	case StageLaunchScript:
		return KindScriptWriteFailed
	default:
		return KindServiceInstallFailed
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
