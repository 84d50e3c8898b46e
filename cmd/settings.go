package cmd

import (
	"fmt"
	"strconv"

	"github.com/router-for-me/CloudAccountsBusiness/internal/app"
	"github.com/spf13/cobra"
)

func newSettingsCmd(rt *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage runtime settings read by the background jobs",
	}

	var updatedBy string
	setCmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set an integer setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("value must be an integer: %w", err)
			}
			if err = app.SetSetting(cmd.Context(), rt.cfg, args[0], value, updatedBy); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s=%d\n", args[0], value)
			return err
		},
	}
	setCmd.Flags().StringVar(&updatedBy, "as", "cli", "ID recorded as the editor")
	cmd.AddCommand(setCmd)
	return cmd
}
