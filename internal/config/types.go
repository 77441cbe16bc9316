package config

import (
	"time"
)

// BotctlConfig is the top-level configuration structure for botctl.
type BotctlConfig struct {
	// InstallDir is the bot's install root. Empty means the current working directory.
	InstallDir    string               `yaml:"installDir,omitempty"`
	Runtime       RuntimeConfig        `yaml:"runtime"`
	Secrets       SecretsConfig        `yaml:"secrets"`
	Launcher      LauncherConfig       `yaml:"launcher"`
	Service       ServiceConfig        `yaml:"service"`
	Prerequisites []PrerequisiteConfig `yaml:"prerequisites,omitempty"`
}

// RuntimeConfig describes the Python virtual environment the bot runs in.
type RuntimeConfig struct {
	Python           string   `yaml:"python,omitempty"`           // Interpreter used to create the venv, e.g. "python3"
	VenvDir          string   `yaml:"venvDir,omitempty"`          // Relative to InstallDir unless absolute
	RequirementsFile string   `yaml:"requirementsFile,omitempty"` // Relative to InstallDir unless absolute
	Packages         []string `yaml:"packages,omitempty"`         // Installed when the requirements file is missing
}

// SecretKey declares one credential the bot needs.
type SecretKey struct {
	Name      string `yaml:"name"`
	Label     string `yaml:"label,omitempty"`
	Sensitive bool   `yaml:"sensitive"`
}

// SecretsConfig points at the environment file shared by the bot and the unit.
type SecretsConfig struct {
	File string      `yaml:"file,omitempty"`
	Keys []SecretKey `yaml:"keys,omitempty"`
}

// LauncherConfig controls the generated entry-point script.
type LauncherConfig struct {
	Script     string `yaml:"script,omitempty"`
	EntryPoint string `yaml:"entryPoint,omitempty"`
}

// SudoMode controls how privileged service-manager commands are run.
type SudoMode string

const (
	SudoAuto   SudoMode = "auto"   // sudo only when not already root
	SudoAlways SudoMode = "always" // always prefix with sudo
	SudoNever  SudoMode = "never"  // never escalate; fail if not root
)

// ServiceConfig describes the systemd unit and how to talk to systemd.
type ServiceConfig struct {
	Name        string         `yaml:"name,omitempty"`
	Description string         `yaml:"description,omitempty"`
	User        string         `yaml:"user,omitempty"` // Empty means the invoking user (SUDO_USER aware)
	UnitDir     string         `yaml:"unitDir,omitempty"`
	RestartSec  int            `yaml:"restartSec,omitempty"`
	WantedBy    string         `yaml:"wantedBy,omitempty"`
	Sudo        SudoMode       `yaml:"sudo,omitempty"`
	Verify      *bool          `yaml:"verify,omitempty"` // Run systemd-analyze verify before installing
	SettleDelay *time.Duration `yaml:"settleDelay,omitempty"`
	Systemctl   string         `yaml:"systemctl,omitempty"`
	Journalctl  string         `yaml:"journalctl,omitempty"`
}

// DefaultSettleDelay is used when settleDelay is unset.
const DefaultSettleDelay = 2 * time.Second

// SettleDuration returns the configured settle delay. An explicit 0s is kept.
func (s ServiceConfig) SettleDuration() time.Duration {
	if s.SettleDelay == nil {
		return DefaultSettleDelay
	}
	return *s.SettleDelay
}

// VerifyEnabled reports whether unit verification is on. Defaults to true.
func (s ServiceConfig) VerifyEnabled() bool {
	return s.Verify == nil || *s.Verify
}

// PrerequisiteConfig is the YAML form of a host prerequisite.
type PrerequisiteConfig struct {
	Name   string   `yaml:"name"`
	Binary string   `yaml:"binary"`
	Check  []string `yaml:"check,omitempty"`
	Hint   string   `yaml:"hint,omitempty"`
}
