package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadValidFile(t *testing.T) {
	path := writeConfig(t, `
server_url = "https://api.box.example"
share_url = "https://box.example"
log_level = "debug"
state_dir = "/tmp/cloudbox-state"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.box.example", cfg.ServerURL)
	assert.Equal(t, "https://box.example", cfg.ShareURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/cloudbox-state", cfg.StateDir)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
server_url = "https://api.box.example"
serverurl = "typo"
`)

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
	assert.Contains(t, err.Error(), "serverurl")
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", *Default(), false},
		{"https", Config{ServerURL: "https://x.example", LogLevel: "warn"}, false},
		{"bad scheme", Config{ServerURL: "ftp://x.example"}, true},
		{"no host", Config{ServerURL: "http://"}, true},
		{"bad share url", Config{ServerURL: "http://x.example", ShareURL: "not a url"}, true},
		{"bad log level", Config{ServerURL: "http://x.example", LogLevel: "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveOverrideChain(t *testing.T) {
	path := writeConfig(t, `
server_url = "https://file.example"
log_level = "warn"
`)

	// Environment outranks the file.
	cfg, err := Resolve(EnvOverrides{
		ConfigPath: path,
		ServerURL:  "https://env.example",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example", cfg.ServerURL)
	assert.Equal(t, "warn", cfg.LogLevel, "file value survives when env is silent")
}

func TestResolveFlagPathOutranksEnvPath(t *testing.T) {
	envPath := writeConfig(t, `server_url = "https://env-file.example"`)
	flagPath := writeConfig(t, `server_url = "https://flag-file.example"`)

	cfg, err := Resolve(EnvOverrides{ConfigPath: envPath}, flagPath)
	require.NoError(t, err)

	assert.Equal(t, "https://flag-file.example", cfg.ServerURL)
}

func TestResolveDefaultsShareURLToServerURL(t *testing.T) {
	path := writeConfig(t, `server_url = "https://api.box.example"`)

	cfg, err := Resolve(EnvOverrides{ConfigPath: path}, "")
	require.NoError(t, err)

	assert.Equal(t, "https://api.box.example", cfg.ShareURL)
	assert.NotEmpty(t, cfg.StateDir)
}
