package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUnitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unit",
		Short: "Print the systemd unit botctl would install",
		Long: `Renders the service definition for the current install directory and
configuration and prints it. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}
			def, text, err := application.RenderUnit()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", application.Services().Controller.UnitPath(def.Name), text)
			return nil
		},
	}
}
