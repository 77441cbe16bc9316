package app

import (
	"fmt"
	"os"

	"botctl/internal/installer"
	"botctl/internal/launcher"
	"botctl/internal/probe"
	"botctl/internal/reporting"
	"botctl/internal/runtimeenv"
	"botctl/internal/secrets"
	"botctl/internal/systemd"
	"botctl/internal/utils"
	"botctl/pkg/logging"
)

// Services holds the install pipeline components for one host.
type Services struct {
	Facts       installer.Facts
	Runner      utils.Runner
	Probe       *probe.CommandProbe
	Environment *runtimeenv.Manager
	Secrets     *secrets.Store
	Script      *launcher.Writer
	Controller  *systemd.Controller
	Reporter    *reporting.ConsoleReporter
}

// For mocking in tests
var osGeteuid = os.Geteuid

// InitializeServices resolves run facts and wires the components.
func InitializeServices(cfg *Config) (*Services, error) {
	botCfg := cfg.BotctlConfig

	facts, err := installer.ResolveFacts(*botCfg)
	if err != nil {
		return nil, err
	}
	logging.Debug("Bootstrap", "Install dir %s, service user %s", facts.InstallDir, facts.User)

	scriptOpts, err := facts.LauncherOptions(botCfg.Launcher.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("invalid launcher settings: %w", err)
	}

	runner := cfg.Runner
	if runner == nil {
		runner = utils.NewExecRunner()
	}
	prompter := cfg.Prompter
	if prompter == nil {
		prompter = secrets.NewTerminalPrompter()
	}

	store := secrets.NewStore(prompter)
	// Under sudo the secret file must still be readable by the service user.
	if osGeteuid() == 0 && facts.UID != 0 {
		store = store.WithOwner(facts.UID, facts.GID)
	}

	return &Services{
		Facts:  facts,
		Runner: runner,
		Probe:  probe.New(runner),
		Environment: runtimeenv.NewManager(runner, botCfg.Runtime.Python, runtimeenv.Dependencies{
			RequirementsFile: botCfg.Runtime.RequirementsFile,
			Packages:         botCfg.Runtime.Packages,
		}, facts.InstallDir),
		Secrets:    store,
		Script:     launcher.NewWriter(scriptOpts),
		Controller: systemd.NewController(runner, botCfg.Service),
		Reporter:   reporting.NewConsoleReporter(),
	}, nil
}
