package cmd

import (
	"os/signal"
	"syscall"

	"github.com/router-for-me/CloudAccountsBusiness/internal/app"
	"github.com/spf13/cobra"
)

func newServeCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.RunServer(ctx, rt.cfg)
		},
	}
}
