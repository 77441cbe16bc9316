package app

import (
	"io"

	"botctl/internal/config"
	"botctl/internal/secrets"
	"botctl/internal/utils"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug     bool
	LogFormat string

	// ConfigPath loads one explicit config file instead of the layered lookup.
	ConfigPath string

	// Flag overrides applied on top of the loaded configuration.
	InstallDir  string
	ServiceName string

	// LogOutput receives log lines; nil means stderr.
	LogOutput io.Writer

	// Runner and Prompter replace the real command runner and terminal
	// prompter when set.
	Runner   utils.Runner
	Prompter secrets.Prompter

	// Loaded configuration, set by NewApplication.
	BotctlConfig *config.BotctlConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, logFormat, configPath string) *Config {
	return &Config{
		Debug:      debug,
		LogFormat:  logFormat,
		ConfigPath: configPath,
	}
}
