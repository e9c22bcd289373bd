// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/gymbuddy/gymbuddy/internal/auth"
)

func newSessionsCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage login sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions",
		Long: `Delete every session whose expiry has passed from the configured
session backend. Expired sessions are already rejected at validation; this
only reclaims storage.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessionsPurge(cmd, deps)
		},
	})
	return cmd
}

func runSessionsPurge(cmd *cobra.Command, deps Deps) error {
	deps = deps.withDefaults()
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, deps.Getenv)
	if err != nil {
		return err
	}

	pool, err := openPool(ctx, cfg.Database, deps)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo, _, closeSessions, err := openSessionRepository(ctx, cfg, pool, deps)
	if err != nil {
		return err
	}
	defer closeSessions()

	sessions, err := auth.NewSessionManager(repo)
	if err != nil {
		return err
	}

	n, err := sessions.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Purged %d expired sessions\n", n)
	return nil
}
