// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/gymbuddy/gymbuddy/internal/config"
)

func newConfigCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration resolved from defaults, the config file, the
environment and flags, as YAML. Passwords in URLs are masked. The command
fails after printing if the configuration is invalid.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps = deps.withDefaults()
			cfg, err := config.Load(configSources(cmd, deps.Getenv))
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			return cfg.Validate()
		},
	}
}
