// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package xdg locates GymBuddy's XDG Base Directory config.
package xdg

import (
	"os"
	"path/filepath"
)

const (
	appName        = "gymbuddy"
	configFileName = "config.yaml"
)

// ConfigDir returns the XDG config directory for gymbuddy.
// Checks XDG_CONFIG_HOME first, falls back to $HOME/.config. It returns ""
// when neither is set.
func ConfigDir(getenv func(string) string) string {
	base := getenv("XDG_CONFIG_HOME")
	if base == "" {
		home := getenv("HOME")
		if home == "" {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns ConfigDir/config.yaml when that file exists,
// and "" otherwise.
func DefaultConfigFile(getenv func(string) string) string {
	dir := ConfigDir(getenv)
	if dir == "" {
		return ""
	}
	path := filepath.Join(dir, configFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
