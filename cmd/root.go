// Package cmd implements the accountd command line.
package cmd

import (
	"io"

	"github.com/router-for-me/CloudAccountsBusiness/internal/config"
	"github.com/router-for-me/CloudAccountsBusiness/internal/logging"
	"github.com/spf13/cobra"
)

// cliState carries state shared by subcommands.
type cliState struct {
	configPath string
	cfg        config.Config
	logCloser  io.Closer
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rt := &cliState{}
	rootCmd := &cobra.Command{
		Use:           "accountd",
		Short:         "Multi-tenant cloud account management service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			closer, err := logging.Setup(cfg.Log)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.logCloser = closer
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if rt.logCloser != nil {
				return rt.logCloser.Close()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "path to config file (default ./config.yaml when present)")

	rootCmd.AddCommand(
		newServeCmd(rt),
		newMigrateCmd(rt),
		newTokenCmd(rt),
		newQuotaConfigCmd(rt),
		newSettingsCmd(rt),
		newVersionCmd(),
	)
	return rootCmd
}
