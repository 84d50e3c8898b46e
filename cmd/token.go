package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/app"
	"github.com/spf13/cobra"
)

func newTokenCmd(rt *cliState) *cobra.Command {
	var (
		subject  string
		email    string
		username string
		role     string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the configured shared secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(subject) == "" {
				return errors.New("--subject is required")
			}
			a := actor.Actor{
				ID:       strings.TrimSpace(subject),
				Email:    strings.TrimSpace(email),
				Username: strings.TrimSpace(username),
				Role:     actor.ParseRole(role),
			}
			token, err := app.MintToken(rt.cfg, a, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user ID carried in the sub claim")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&username, "username", "", "username claim")
	cmd.Flags().StringVar(&role, "role", string(actor.RoleUser), "role claim (admin or user)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	return cmd
}
