package app

import (
	"fmt"
	"os"

	"botctl/internal/config"
	"botctl/pkg/logging"
)

// Application is the main application structure that bootstraps botctl
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance
func NewApplication(cfg *Config) (*Application, error) {
	// Configure logging based on debug flag
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	output := cfg.LogOutput
	if output == nil {
		output = os.Stderr
	}
	logging.Init(appLogLevel, output, logging.ParseFormat(cfg.LogFormat))

	var botCfg config.BotctlConfig
	var err error

	if cfg.ConfigPath != "" {
		botCfg, err = config.LoadConfigFromPath(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load botctl configuration from path: %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load botctl configuration from path %s: %w", cfg.ConfigPath, err)
		}
		logging.Debug("Bootstrap", "Loaded configuration from custom path: %s", cfg.ConfigPath)
	} else {
		botCfg, err = config.LoadConfig()
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load botctl configuration")
			return nil, fmt.Errorf("failed to load botctl configuration: %w", err)
		}
		logging.Debug("Bootstrap", "Loaded configuration using layered approach")
	}

	if cfg.InstallDir != "" {
		botCfg.InstallDir = cfg.InstallDir
	}
	if cfg.ServiceName != "" {
		botCfg.Service.Name = cfg.ServiceName
	}
	if err := botCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.BotctlConfig = &botCfg

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services exposes the wired components.
func (a *Application) Services() *Services {
	return a.services
}
