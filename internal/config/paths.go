package config

import (
	"os"
	"path/filepath"
)

// Application directory name used across all platforms.
const appName = "cloudbox"

// Config file name.
const configFileName = "config.toml"

// Session file name (token pair + cached profile metadata).
const sessionFileName = "session.json"

// DefaultConfigPath returns the platform default config file path,
// e.g. ~/.config/cloudbox/config.toml on Linux.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, appName, configFileName)
}

// DefaultSessionPath returns the platform default session file path.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, appName, sessionFileName)
}

// DefaultStateDir returns the platform default directory for mutable
// client state (the transfer history database).
func DefaultStateDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, appName)
}
