package cmd

import (
	"github.com/spf13/cobra"

	"botctl/internal/cli"
	"botctl/internal/installer"
)

func newInstallCmd() *cobra.Command {
	var (
		opts   installer.Options
		output string
	)
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the bot and its systemd service",
		Long: `Runs the install pipeline in order, stopping at the first failure:

  1. check prerequisites (python3, pip, venv, systemctl)
  2. create or reuse the Python virtual environment and install dependencies
  3. load the secret file, or prompt for each secret and write it (mode 0600)
  4. write the launch script unless it already exists
  5. render and install the systemd unit, enable it and (re)start it
  6. confirm the service is active

An existing virtual environment, secret file and launch script are reused.
The unit is regenerated on every run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			application, err := newApplication()
			if err != nil {
				return err
			}
			report, runErr := application.Install(cmd.Context(), opts)
			if err := cli.WriteReport(cmd.OutOrStdout(), format, report, runErr); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&opts.ForceScript, "force-script", false, "Overwrite an existing launch script")
	cmd.Flags().BoolVar(&opts.SkipService, "no-service", false, "Prepare the environment, secrets and script but do not install the service")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Summary format: table, json or yaml")
	return cmd
}
