package app

import (
	"context"
	"fmt"

	"botctl/internal/cli"
	"botctl/internal/installer"
	"botctl/internal/probe"
	"botctl/internal/unit"
	"botctl/pkg/logging"
)

// Install runs the full install pipeline.
func (a *Application) Install(ctx context.Context, opts installer.Options) (*installer.Report, error) {
	s := a.services
	orch := installer.New(*a.config.BotctlConfig, installer.Stages{
		Probe:       s.Probe,
		Environment: s.Environment,
		Secrets:     s.Secrets,
		Script:      s.Script,
		Service:     s.Controller,
	}, s.Reporter)

	logging.Info("Installer", "Installing %s into %s", unit.FileName(s.Facts.ServiceName), s.Facts.InstallDir)
	return orch.Run(ctx, s.Facts, opts)
}

// Check verifies host prerequisites only.
func (a *Application) Check(ctx context.Context) ([]probe.Prerequisite, error) {
	prereqs := probe.FromConfig(a.config.BotctlConfig.ResolvedPrerequisites())
	return prereqs, a.services.Probe.CheckAll(ctx, prereqs)
}

// RenderUnit returns the unit botctl would install, without touching the system.
func (a *Application) RenderUnit() (unit.Definition, string, error) {
	return unit.BuildAndRender(a.services.Facts.UnitFacts(a.config.BotctlConfig.Service))
}

// Status queries the live state of the service.
func (a *Application) Status(ctx context.Context) (cli.StatusView, error) {
	name := a.services.Facts.ServiceName
	props, err := a.services.Controller.Show(ctx, name)
	if err != nil {
		return cli.StatusView{}, err
	}
	return cli.StatusView{
		Service:    unit.FileName(name),
		UnitPath:   a.services.Controller.UnitPath(name),
		State:      props.State(),
		Properties: props,
	}, nil
}

// Control passes start, stop, restart or disable through to systemd.
func (a *Application) Control(ctx context.Context, action string) error {
	c := a.services.Controller
	name := a.services.Facts.ServiceName
	switch action {
	case "start":
		return c.Start(ctx, name)
	case "stop":
		return c.Stop(ctx, name)
	case "restart":
		return c.Restart(ctx, name)
	case "disable":
		return c.Disable(ctx, name)
	default:
		return fmt.Errorf("unknown service action %q", action)
	}
}

// Logs streams the service journal.
func (a *Application) Logs(ctx context.Context, follow bool, lines int) error {
	return a.services.Controller.Logs(ctx, a.services.Facts.ServiceName, follow, lines)
}
