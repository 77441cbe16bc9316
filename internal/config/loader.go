package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/botctl"
	projectConfigDir = ".botctl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the botctl configuration by layering default, user, and project settings.
func LoadConfig() (BotctlConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		config, err = overlayIfExists(config, userConfigPath, "user")
		if err != nil {
			return BotctlConfig{}, err
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		config, err = overlayIfExists(config, projectConfigPath, "project")
		if err != nil {
			return BotctlConfig{}, err
		}
	}

	return config, nil
}

// LoadConfigFromPath loads a single explicit config file on top of the defaults.
// Unlike the layered lookup the file must exist.
func LoadConfigFromPath(path string) (BotctlConfig, error) {
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return BotctlConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return mergeConfigs(GetDefaultConfig(), overlay), nil
}

func overlayIfExists(base BotctlConfig, path, layer string) (BotctlConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return BotctlConfig{}, fmt.Errorf("error loading %s config from %s: %w", layer, path, err)
	}
	return mergeConfigs(base, overlay), nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a BotctlConfig from a YAML file.
func loadConfigFromFile(filePath string) (BotctlConfig, error) {
	var config BotctlConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return BotctlConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return BotctlConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Scalar fields are
// replaced when set in the overlay; lists replace the base list wholesale.
func mergeConfigs(base, overlay BotctlConfig) BotctlConfig {
	merged := base

	if overlay.InstallDir != "" {
		merged.InstallDir = overlay.InstallDir
	}

	// Runtime
	setString(&merged.Runtime.Python, overlay.Runtime.Python)
	setString(&merged.Runtime.VenvDir, overlay.Runtime.VenvDir)
	setString(&merged.Runtime.RequirementsFile, overlay.Runtime.RequirementsFile)
	if len(overlay.Runtime.Packages) > 0 {
		merged.Runtime.Packages = overlay.Runtime.Packages
	}

	// Secrets
	setString(&merged.Secrets.File, overlay.Secrets.File)
	if len(overlay.Secrets.Keys) > 0 {
		merged.Secrets.Keys = overlay.Secrets.Keys
	}

	// Launcher
	setString(&merged.Launcher.Script, overlay.Launcher.Script)
	setString(&merged.Launcher.EntryPoint, overlay.Launcher.EntryPoint)

	// Service
	s, o := &merged.Service, overlay.Service
	setString(&s.Name, o.Name)
	setString(&s.Description, o.Description)
	setString(&s.User, o.User)
	setString(&s.UnitDir, o.UnitDir)
	setString(&s.WantedBy, o.WantedBy)
	setString(&s.Systemctl, o.Systemctl)
	setString(&s.Journalctl, o.Journalctl)
	if o.Sudo != "" {
		s.Sudo = o.Sudo
	}
	if o.RestartSec != 0 {
		s.RestartSec = o.RestartSec
	}
	if o.Verify != nil {
		s.Verify = o.Verify
	}
	if o.SettleDelay != nil {
		s.SettleDelay = o.SettleDelay
	}

	// Prerequisites are merged by name so a project can tweak a single hint.
	if len(overlay.Prerequisites) > 0 {
		index := make(map[string]int, len(merged.Prerequisites))
		prereqs := append([]PrerequisiteConfig(nil), merged.Prerequisites...)
		for i, p := range prereqs {
			index[p.Name] = i
		}
		for _, p := range overlay.Prerequisites {
			if i, ok := index[p.Name]; ok {
				prereqs[i] = p
				continue
			}
			index[p.Name] = len(prereqs)
			prereqs = append(prereqs, p)
		}
		merged.Prerequisites = prereqs
	}

	return merged
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks values that cannot be defaulted sensibly.
func (c BotctlConfig) Validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service.name must not be empty")
	}
	if c.Secrets.File == "" {
		return fmt.Errorf("secrets.file must not be empty")
	}
	if len(c.Secrets.Keys) == 0 {
		return fmt.Errorf("secrets.keys must declare at least one key")
	}
	for _, k := range c.Secrets.Keys {
		if k.Name == "" {
			return fmt.Errorf("secrets.keys contains an entry without a name")
		}
	}
	switch c.Service.Sudo {
	case SudoAuto, SudoAlways, SudoNever:
	default:
		return fmt.Errorf("service.sudo must be one of auto, always, never (got %q)", c.Service.Sudo)
	}
	if c.Service.RestartSec <= 0 {
		return fmt.Errorf("service.restartSec must be positive")
	}
	return nil
}
