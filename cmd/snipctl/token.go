// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/snipcheck/internal/auth"
	"github.com/tomtom215/snipcheck/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
		secret string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 bearer token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != auth.RoleUser && role != auth.RoleAdmin {
				return fmt.Errorf("role must be %q or %q", auth.RoleUser, auth.RoleAdmin)
			}
			manager, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: secret})
			if err != nil {
				return err
			}
			token, err := manager.GenerateToken(userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id (token subject)")
	cmd.Flags().StringVar(&role, "role", auth.RoleUser, "Role (user or admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret (default $JWT_SECRET)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
