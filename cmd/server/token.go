package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"readinglab-backend/internal/config"
	"readinglab-backend/internal/middleware"
)

// newTokenCommand mints a bearer token for a directory user. Sign-in lives
// outside this service; the command is for local runs and study setup.
func newTokenCommand() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(envFile)

			dir, closeDir, err := openDirectory(cfg)
			if err != nil {
				return err
			}
			defer closeDir()

			user, err := dir.GetUser(context.Background(), userID)
			if err != nil {
				return fmt.Errorf("user %s: %w", userID, err)
			}

			token, err := middleware.NewJWTAuth(cfg.JWTSecret).GenerateAccessToken(*user, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (e.g. u1, admin1)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.MarkFlagRequired("user")
	return cmd
}
