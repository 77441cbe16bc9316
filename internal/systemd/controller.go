// Package systemd installs and controls the bot's systemd unit.
//
// Privileged commands are prefixed with sudo according to the configured
// mode. Status is read live on every call.
package systemd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"botctl/internal/config"
	"botctl/internal/unit"
	"botctl/internal/utils"
	"botctl/pkg/logging"
)

const (
	sudoBinary    = "sudo"
	analyzeBinary = "systemd-analyze"
	installBinary = "install"
)

// Privilege describes how privileged commands will be run.
type Privilege struct {
	// Sudo is true when privileged commands are prefixed with sudo.
	Sudo bool
	// Denied is true when privileges are needed but escalation is disabled.
	Denied bool
}

func (p Privilege) String() string {
	switch {
	case p.Denied:
		return "root required but sudo is disabled"
	case p.Sudo:
		return "privileged steps run via sudo"
	default:
		return "running as root"
	}
}

// Controller drives systemctl and journalctl for one host.
type Controller struct {
	runner   utils.Runner
	cfg      config.ServiceConfig
	geteuid  func() int
	lookPath func(string) (string, error)
}

// NewController creates a Controller using the process's effective uid.
func NewController(runner utils.Runner, cfg config.ServiceConfig) *Controller {
	if cfg.Systemctl == "" {
		cfg.Systemctl = "systemctl"
	}
	if cfg.Journalctl == "" {
		cfg.Journalctl = "journalctl"
	}
	if cfg.UnitDir == "" {
		cfg.UnitDir = "/etc/systemd/system"
	}
	if cfg.Sudo == "" {
		cfg.Sudo = config.SudoAuto
	}
	return &Controller{runner: runner, cfg: cfg, geteuid: os.Geteuid, lookPath: utils.LookPath}
}

// PrivilegeRequirement reports whether installing requires sudo, or cannot
// proceed at all.
func (c *Controller) PrivilegeRequirement() Privilege {
	root := c.geteuid() == 0
	switch c.cfg.Sudo {
	case config.SudoAlways:
		return Privilege{Sudo: true}
	case config.SudoNever:
		return Privilege{Denied: !root}
	default:
		return Privilege{Sudo: !root}
	}
}

// UnitPath is where the unit file for name is installed.
func (c *Controller) UnitPath(name string) string {
	return filepath.Join(c.cfg.UnitDir, unit.FileName(name))
}

// Install writes unitText as the unit named unitName, reloads the manager,
// enables the unit for boot and (re)starts it. Existing unit files are
// replaced.
func (c *Controller) Install(ctx context.Context, unitText, unitName string) error {
	priv := c.PrivilegeRequirement()
	if priv.Denied {
		return &InstallError{
			Reason:     ReasonPrivilegeDenied,
			Step:       "preflight",
			Diagnostic: "writing to " + c.cfg.UnitDir + " requires root and sudo mode is 'never'",
		}
	}

	stageDir, err := os.MkdirTemp("", "botctl-unit-")
	if err != nil {
		return &InstallError{Reason: ReasonFailed, Step: "stage", Diagnostic: err.Error(), Err: err}
	}
	defer os.RemoveAll(stageDir)

	fileName := unit.FileName(unitName)
	staged := filepath.Join(stageDir, fileName)
	if err := os.WriteFile(staged, []byte(unitText), 0o644); err != nil {
		return &InstallError{Reason: ReasonFailed, Step: "stage", Diagnostic: err.Error(), Err: err}
	}

	if err := c.verify(ctx, staged); err != nil {
		return err
	}

	dest := c.UnitPath(unitName)
	if priv.Sudo {
		cmd := utils.Command{Name: installBinary, Args: []string{"-m", "0644", staged, dest}}
		if res, err := c.runner.Run(ctx, c.privileged(cmd)); err != nil {
			return newInstallError("write", res, err)
		}
	} else if err := writeAtomic(dest, []byte(unitText)); err != nil {
		return newInstallError("write", utils.Result{Stderr: err.Error()}, err)
	}
	logging.Info("Systemd", "Wrote unit file %s", dest)

	steps := []struct {
		step string
		args []string
	}{
		{"daemon-reload", []string{"daemon-reload"}},
		{"enable", []string{"enable", fileName}},
		{"restart", []string{"restart", fileName}},
	}
	for _, s := range steps {
		cmd := c.privileged(utils.Command{Name: c.cfg.Systemctl, Args: s.args})
		logging.Debug("Systemd", "Running %s", cmd)
		if res, err := c.runner.Run(ctx, cmd); err != nil {
			return newInstallError(s.step, res, err)
		}
	}
	return nil
}

// verify runs systemd-analyze over the staged unit when enabled and available.
func (c *Controller) verify(ctx context.Context, path string) error {
	if !c.cfg.VerifyEnabled() {
		return nil
	}
	if _, err := c.lookPath(analyzeBinary); err != nil {
		logging.Debug("Systemd", "%s not found, skipping unit verification", analyzeBinary)
		return nil
	}
	res, err := c.runner.Run(ctx, utils.Command{Name: analyzeBinary, Args: []string{"verify", path}})
	if err != nil {
		ie := newInstallError("verify", res, err)
		ie.Reason = ReasonMalformed
		return ie
	}
	return nil
}

// Status queries the unit's live state.
func (c *Controller) Status(ctx context.Context, unitName string) (ServiceState, error) {
	props, err := c.Show(ctx, unitName)
	if err != nil {
		return "", err
	}
	return stateOf(props), nil
}

// Show returns the raw load and active states for unitName.
func (c *Controller) Show(ctx context.Context, unitName string) (Properties, error) {
	cmd := utils.Command{
		Name: c.cfg.Systemctl,
		Args: []string{"show", unit.FileName(unitName), "--property=LoadState,ActiveState,SubState"},
	}
	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return Properties{}, fmt.Errorf("failed to query %s: %w", unit.FileName(unitName), err)
	}
	props, err := parseShow(res.Stdout)
	if err != nil {
		return Properties{}, fmt.Errorf("failed to parse state of %s: %w", unit.FileName(unitName), err)
	}
	return props, nil
}

// Start starts the unit.
func (c *Controller) Start(ctx context.Context, unitName string) error {
	return c.control(ctx, "start", unitName)
}

// Stop stops the unit.
func (c *Controller) Stop(ctx context.Context, unitName string) error {
	return c.control(ctx, "stop", unitName)
}

// Restart restarts the unit.
func (c *Controller) Restart(ctx context.Context, unitName string) error {
	return c.control(ctx, "restart", unitName)
}

// Disable stops the unit and removes it from boot.
func (c *Controller) Disable(ctx context.Context, unitName string) error {
	return c.control(ctx, "disable", unitName, "--now")
}

func (c *Controller) control(ctx context.Context, verb, unitName string, extra ...string) error {
	if c.PrivilegeRequirement().Denied {
		return fmt.Errorf("cannot %s %s: root required and sudo mode is 'never'", verb, unit.FileName(unitName))
	}
	args := append([]string{verb}, extra...)
	args = append(args, unit.FileName(unitName))
	cmd := c.privileged(utils.Command{Name: c.cfg.Systemctl, Args: args})
	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		if diag := res.Diagnostic(); diag != "" {
			return fmt.Errorf("%s %s failed: %s", verb, unit.FileName(unitName), diag)
		}
		return fmt.Errorf("%s %s failed: %w", verb, unit.FileName(unitName), err)
	}
	logging.Info("Systemd", "%s %s: ok", verb, unit.FileName(unitName))
	return nil
}

// Logs streams the unit's journal to the terminal. lines <= 0 leaves
// journalctl's default.
func (c *Controller) Logs(ctx context.Context, unitName string, follow bool, lines int) error {
	args := []string{"-u", unit.FileName(unitName), "--no-pager"}
	if lines > 0 {
		args = append(args, "-n", strconv.Itoa(lines))
	}
	if follow {
		args = append(args, "-f")
	}
	_, err := c.runner.Run(ctx, utils.Command{Name: c.cfg.Journalctl, Args: args, Attach: true})
	return err
}

func (c *Controller) privileged(cmd utils.Command) utils.Command {
	if !c.PrivilegeRequirement().Sudo {
		return cmd
	}
	return utils.Command{
		Name:   sudoBinary,
		Args:   append([]string{cmd.Name}, cmd.Args...),
		Dir:    cmd.Dir,
		Attach: cmd.Attach,
	}
}

// writeAtomic replaces path via a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
