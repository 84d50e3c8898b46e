package cmd

import (
	"encoding/json"

	"github.com/router-for-me/CloudAccountsBusiness/internal/app"
	"github.com/spf13/cobra"
)

func newQuotaConfigCmd(rt *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota-config",
		Short: "Manage the monitored model configuration",
	}

	var updatedBy string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Reset the configuration to the built-in model definitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.InitQuotaConfig(cmd.Context(), rt.cfg, updatedBy)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
	initCmd.Flags().StringVar(&updatedBy, "as", "cli", "admin ID recorded as the editor")
	cmd.AddCommand(initCmd)
	return cmd
}
