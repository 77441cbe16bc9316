package installer

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"botctl/internal/config"
	"botctl/internal/launcher"
	"botctl/internal/unit"
)

// Facts are computed once at the start of a run and never change during it.
type Facts struct {
	User string `json:"user" yaml:"user"`
	UID  int    `json:"uid" yaml:"uid"`
	GID  int    `json:"gid" yaml:"gid"`

	InstallDir  string `json:"installDir" yaml:"installDir"`
	VenvDir     string `json:"venvDir" yaml:"venvDir"`
	EnvFile     string `json:"envFile" yaml:"envFile"`
	ScriptPath  string `json:"scriptPath" yaml:"scriptPath"`
	ServiceName string `json:"serviceName" yaml:"serviceName"`
}

// Mockable for tests.
var (
	osGetwd     = os.Getwd
	osGeteuid   = os.Geteuid
	osGetenv    = os.Getenv
	userCurrent = user.Current
	userLookup  = user.Lookup
)

// ResolveFacts derives absolute paths and the service user from cfg.
//
// The service user is service.user when set. Otherwise, when botctl runs as
// root via sudo, it is SUDO_USER, so the bot does not silently run as root.
func ResolveFacts(cfg config.BotctlConfig) (Facts, error) {
	installDir := cfg.InstallDir
	if installDir == "" {
		wd, err := osGetwd()
		if err != nil {
			return Facts{}, fmt.Errorf("failed to determine install directory: %w", err)
		}
		installDir = wd
	}
	installDir, err := filepath.Abs(installDir)
	if err != nil {
		return Facts{}, fmt.Errorf("failed to resolve install directory %s: %w", cfg.InstallDir, err)
	}

	u, err := serviceUser(cfg.Service.User)
	if err != nil {
		return Facts{}, err
	}
	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)

	return Facts{
		User:        u.Username,
		UID:         uid,
		GID:         gid,
		InstallDir:  installDir,
		VenvDir:     within(installDir, cfg.Runtime.VenvDir),
		EnvFile:     within(installDir, cfg.Secrets.File),
		ScriptPath:  within(installDir, cfg.Launcher.Script),
		ServiceName: strings.TrimSuffix(cfg.Service.Name, ".service"),
	}, nil
}

func serviceUser(configured string) (*user.User, error) {
	if configured != "" {
		u, err := userLookup(configured)
		if err != nil {
			return nil, fmt.Errorf("service user %q: %w", configured, err)
		}
		return u, nil
	}
	if osGeteuid() == 0 {
		if name := osGetenv("SUDO_USER"); name != "" && name != "root" {
			u, err := userLookup(name)
			if err != nil {
				return nil, fmt.Errorf("SUDO_USER %q: %w", name, err)
			}
			return u, nil
		}
	}
	u, err := userCurrent()
	if err != nil {
		return nil, fmt.Errorf("failed to determine current user: %w", err)
	}
	return u, nil
}

func within(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// LauncherOptions returns the launch script inputs, relative to the script's
// directory.
func (f Facts) LauncherOptions(entryPoint string) (launcher.Options, error) {
	scriptDir := filepath.Dir(f.ScriptPath)
	venv, err := filepath.Rel(scriptDir, f.VenvDir)
	if err != nil || strings.HasPrefix(venv, "..") {
		return launcher.Options{}, fmt.Errorf("virtual environment %s must live under %s", f.VenvDir, scriptDir)
	}
	entry := entryPoint
	if filepath.IsAbs(entry) {
		entry, err = filepath.Rel(scriptDir, entry)
		if err != nil || strings.HasPrefix(entry, "..") {
			return launcher.Options{}, fmt.Errorf("entry point %s must live under %s", entryPoint, scriptDir)
		}
	}
	return launcher.Options{VenvDir: venv, EntryPoint: entry}, nil
}

// UnitFacts combines run facts with service settings.
func (f Facts) UnitFacts(svc config.ServiceConfig) unit.Facts {
	return unit.Facts{
		Name:        f.ServiceName,
		Description: svc.Description,
		User:        f.User,
		InstallDir:  f.InstallDir,
		ScriptPath:  f.ScriptPath,
		EnvFile:     f.EnvFile,
		RestartSec:  svc.RestartSec,
		WantedBy:    svc.WantedBy,
	}
}
