package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"botctl/internal/app"
)

// Persistent flags shared by every subcommand.
var (
	configPath  string
	debug       bool
	logFormat   string
	installDir  string
	serviceName string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "botctl",
	Short: "Install and manage the AI sysadmin bot as a systemd service",
	Long: `botctl bootstraps the AI sysadmin Telegram bot on a single host.

It checks host prerequisites, provisions a Python virtual environment,
captures the bot's secrets into an environment file, writes a launch script
and installs the bot as a systemd service that restarts on failure and at
boot. Every step is safe to re-run.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed install stages)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "botctl version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Load this config file instead of ~/.config/botctl and ./.botctl")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&installDir, "dir", "", "Bot install directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&serviceName, "name", "", "systemd service name (default from config)")

	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newUnitCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newLogsCmd())
	for _, c := range newControlCmds() {
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}

// newApplication bootstraps the application from the persistent flags.
func newApplication() (*app.Application, error) {
	cfg := app.NewConfig(debug, logFormat, configPath)
	cfg.InstallDir = installDir
	cfg.ServiceName = serviceName
	return app.NewApplication(cfg)
}
