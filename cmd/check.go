package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"botctl/internal/color"
	"botctl/internal/probe"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check host prerequisites without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}
			prereqs, err := application.Check(cmd.Context())
			out := cmd.OutOrStdout()

			var missing *probe.MissingError
			failedAt := -1
			if errors.As(err, &missing) {
				for i, p := range prereqs {
					if p.Name == missing.Prerequisite.Name {
						failedAt = i
						break
					}
				}
			} else if err != nil {
				return err
			}

			for i, p := range prereqs {
				switch {
				case failedAt == -1 || i < failedAt:
					fmt.Fprintf(out, "%s %s\n", color.SuccessStyle.Render("✓"), p.Name)
				case i == failedAt:
					fmt.Fprintf(out, "%s %s\n", color.ErrorStyle.Render("✗"), p.Name)
					if p.Hint != "" {
						fmt.Fprintln(out, color.HintStyle.Render("  → "+p.Hint))
					}
				default:
					fmt.Fprintf(out, "%s %s\n", color.MutedStyle.Render("-"), color.MutedStyle.Render(p.Name+" (not checked)"))
				}
			}
			if missing != nil {
				return fmt.Errorf("MissingPrerequisite: %s", missing.Prerequisite.Name)
			}
			return nil
		},
	}
}
