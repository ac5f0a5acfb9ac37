package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/workshops/internal/adapter/auth"
	"github.com/neomorfeo/workshops/internal/config"
	"github.com/neomorfeo/workshops/internal/domain"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		roles  []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			who := domain.Identity{UserID: userID}
			for _, r := range roles {
				switch role := domain.Role(r); role {
				case domain.RoleUser, domain.RoleAdmin:
					who.Roles = append(who.Roles, role)
				default:
					return fmt.Errorf("unknown role %q (use %q or %q)", r, domain.RoleUser, domain.RoleAdmin)
				}
			}

			token, err := auth.NewTokenService(cfg.AuthSigningKey, cfg.AuthIssuer, cfg.AuthAudience).Issue(who, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "user ID carried as the token subject")
	cmd.Flags().StringSliceVarP(&roles, "role", "r", []string{string(domain.RoleUser)}, "roles to grant (user, admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
