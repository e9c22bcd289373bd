// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/gymbuddy/gymbuddy/internal/config"
	"github.com/gymbuddy/gymbuddy/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the GymBuddy CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(Deps{})
}

func newRootCmdWithDeps(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gymbuddy",
		Short: "GymBuddy - weekly workout routines on demand",
		Long: `GymBuddy registers users, keeps their fitness profile and asks a
language model provider to plan a weekly routine for them.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(deps))
	cmd.AddCommand(newMigrateCmd(deps))
	cmd.AddCommand(newSessionsCmd(deps))
	cmd.AddCommand(newConfigCmd(deps))

	return cmd
}

// loadConfig resolves configuration for cmd from the config file, the
// environment and the flags set on the command line.
func loadConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	cfg, err := config.Load(configSources(cmd, getenv))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configSources uses --config when given and the XDG config file otherwise.
func configSources(cmd *cobra.Command, getenv func(string) string) config.Sources {
	file := configFile
	if file == "" {
		file = xdg.DefaultConfigFile(getenv)
	}
	return config.Sources{File: file, Flags: cmd.Flags(), Getenv: getenv}
}
