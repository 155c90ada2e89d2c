// Package config provides configuration utilities for the application.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidConfig reports a configuration value that is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DefaultConfigDir is the directory holding config.yaml.
func DefaultConfigDir() string {
	return ExpandPath("~/.config/ledger")
}
