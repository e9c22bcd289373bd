// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gymbuddy/gymbuddy/internal/store"
)

func newMigrateCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the PostgreSQL schema. Without a subcommand, all pending
migrations are applied.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	})
	cmd.AddCommand(newMigrateDownCmd(deps))
	cmd.AddCommand(newMigrateStatusCmd(deps))
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Record VERSION as applied and clear the dirty flag. Use this only after
repairing a database whose last migration failed partway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateForce(cmd, deps, args[0])
		},
	})

	return cmd
}

func newMigrateDownCmd(deps Deps) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				if all {
					cmd.Println("Rolling back all migrations...")
					return m.Down()
				}
				cmd.Println("Rolling back one migration...")
				return m.Steps(-1)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration, dropping all data")
	return cmd
}

// migrationStatus is the JSON form of migrate status.
type migrationStatus struct {
	Version uint     `json:"version"`
	Dirty   bool     `json:"dirty"`
	Applied []string `json:"applied"`
	Pending []string `json:"pending"`
}

func newMigrateStatusCmd(deps Deps) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				status, err := collectMigrationStatus(m)
				if err != nil {
					return err
				}
				if jsonOutput {
					data, err := json.MarshalIndent(status, "", "  ")
					if err != nil {
						return oops.Code("STATUS_FORMAT_FAILED").Wrap(err)
					}
					cmd.Println(string(data))
					return nil
				}
				cmd.Print(formatMigrationStatus(status))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")
	return cmd
}

func runMigrateUp(cmd *cobra.Command, deps Deps) error {
	return withMigrator(cmd, deps, func(m Migrator) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations completed successfully")
		return nil
	})
}

func runMigrateForce(cmd *cobra.Command, deps Deps, arg string) error {
	version, err := parseForceVersion(arg)
	if err != nil {
		return err
	}
	return withMigrator(cmd, deps, func(m Migrator) error {
		if err := m.Force(version); err != nil {
			return err
		}
		cmd.Printf("Forced schema version to %d\n", version)
		return nil
	})
}

// withMigrator opens a migrator for the configured database, runs fn and
// closes the migrator.
func withMigrator(cmd *cobra.Command, deps Deps, fn func(Migrator) error) (err error) {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd, deps.Getenv)
	if err != nil {
		return err
	}

	m, err := deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(m)
}

func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("invalid version %q: must be an integer", s)
	}
	return version, nil
}

func collectMigrationStatus(m Migrator) (*migrationStatus, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return nil, err
	}
	applied, err := m.AppliedMigrations()
	if err != nil {
		return nil, err
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return nil, err
	}

	status := &migrationStatus{Version: version, Dirty: dirty, Applied: []string{}, Pending: []string{}}
	for _, v := range applied {
		status.Applied = append(status.Applied, migrationLabel(v))
	}
	for _, v := range pending {
		status.Pending = append(status.Pending, migrationLabel(v))
	}
	return status, nil
}

func migrationLabel(version uint) string {
	name, err := store.MigrationName(version)
	if err != nil || name == "" {
		return fmt.Sprintf("%06d", version)
	}
	return name
}

func formatMigrationStatus(s *migrationStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current version: %d", s.Version)
	if s.Dirty {
		b.WriteString(" (dirty)")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Applied (%d):\n", len(s.Applied))
	for _, name := range s.Applied {
		fmt.Fprintf(&b, "  %s\n", name)
	}
	fmt.Fprintf(&b, "Pending (%d):\n", len(s.Pending))
	for _, name := range s.Pending {
		fmt.Fprintf(&b, "  %s\n", name)
	}
	return b.String()
}
