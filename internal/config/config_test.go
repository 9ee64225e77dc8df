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
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath
}

func TestLoadConfig(t *testing.T) {
	configPath := writeConfig(t, `
app:
  name: zanara-test
database:
  path: "test.db"
auth:
  jwt_secret: "secret"
rate_limit:
  requests: 30
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "zanara-test", cfg.App.Name)
	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, 30, cfg.RateLimit.Requests)

	// Defaults fill in what the file omits.
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.RateLimit.Window)
	assert.Equal(t, "exports", cfg.Exports.Path)
	assert.Equal(t, 20, cfg.Notifications.BatchSize)
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "from-env")

	configPath := writeConfig(t, `
database:
  path: "test.db"
auth:
  jwt_secret: ${TEST_JWT_SECRET}
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: true,
		},
		{
			name:    "placeholder jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "CHANGE_ME" },
			wantErr: true,
		},
		{
			name: "notifications without token",
			mutate: func(c *Config) {
				c.Notifications.Enabled = true
				c.Notifications.TelegramToken = ""
			},
			wantErr: true,
		},
		{
			name: "notifications with token",
			mutate: func(c *Config) {
				c.Notifications.Enabled = true
				c.Notifications.TelegramToken = "123:abc"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Database: DatabaseConfig{Path: "test.db"},
				Auth:     AuthConfig{JWTSecret: "secret"},
			}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
