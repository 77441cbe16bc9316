package cmd

import (
	"github.com/spf13/cobra"
)

var controlActions = []struct {
	name  string
	short string
}{
	{"start", "Start the bot service"},
	{"stop", "Stop the bot service"},
	{"restart", "Restart the bot service"},
	{"disable", "Stop the bot service and disable it at boot"},
}

// newControlCmds returns the systemctl pass-through commands.
func newControlCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(controlActions))
	for _, a := range controlActions {
		action := a.name
		cmds = append(cmds, &cobra.Command{
			Use:   action,
			Short: a.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				application, err := newApplication()
				if err != nil {
					return err
				}
				return application.Control(cmd.Context(), action)
			},
		})
	}
	return cmds
}

func newLogsCmd() *cobra.Command {
	var (
		follow bool
		lines  int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the bot's journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}
			return application.Logs(cmd.Context(), follow, lines)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow new journal entries")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of journal lines to show")
	return cmd
}
