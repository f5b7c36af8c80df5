// Package config implements TOML configuration loading for cloudbox-go
// with a three-layer override chain: defaults -> config file ->
// environment (CLI flags are applied by the command layer and always win).
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Config is the top-level structure parsed from the TOML config file.
type Config struct {
	// ServerURL is the Cloudbox API root, e.g. "https://api.cloudbox.example".
	ServerURL string `toml:"server_url"`

	// ShareURL is the public base for rendered share links. Defaults to
	// ServerURL when empty.
	ShareURL string `toml:"share_url"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// StateDir holds mutable client state (transfer history database).
	// Defaults to the platform cache directory.
	StateDir string `toml:"state_dir"`
}

// Default returns a Config populated with all default values, supporting
// the zero-config first-run experience.
func Default() *Config {
	return &Config{
		ServerURL: "http://localhost:8080",
		LogLevel:  "info",
	}
}

// logLevels is the closed set of accepted log_level values.
var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks field values. Called after every load so a typo in the
// config file fails loudly instead of producing confusing behavior later.
func Validate(cfg *Config) error {
	if err := validateURL("server_url", cfg.ServerURL); err != nil {
		return err
	}

	if cfg.ShareURL != "" {
		if err := validateURL("share_url", cfg.ShareURL); err != nil {
			return err
		}
	}

	if cfg.LogLevel != "" && !logLevels[strings.ToLower(cfg.LogLevel)] {
		return fmt.Errorf("config: log_level must be one of debug, info, warn, error (got %q)", cfg.LogLevel)
	}

	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s is not a valid URL: %w", field, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: %s must be an http(s) URL (got %q)", field, raw)
	}

	if u.Host == "" {
		return fmt.Errorf("config: %s is missing a host (got %q)", field, raw)
	}

	return nil
}
