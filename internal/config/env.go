package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for overrides.
const (
	EnvConfig    = "CLOUDBOX_CONFIG"
	EnvServerURL = "CLOUDBOX_SERVER_URL"
	EnvShareURL  = "CLOUDBOX_SHARE_URL"
	EnvLogLevel  = "CLOUDBOX_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string
	ServerURL  string
	ShareURL   string
	LogLevel   string
}

// ReadEnvOverrides loads a .env file from the working directory when one
// exists (development convenience; real environment variables are never
// overwritten), then reads the CLOUDBOX_* overrides.
func ReadEnvOverrides() EnvOverrides {
	_ = godotenv.Load()

	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		ServerURL:  os.Getenv(EnvServerURL),
		ShareURL:   os.Getenv(EnvShareURL),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}
