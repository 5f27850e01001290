package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("SHAREIT_TEST_DB", "data/shareit.db")

	yamlContent := `
app:
  name: "shareit"
  environment: "test"
database:
  path: "${SHAREIT_TEST_DB}"
api:
  http:
    port: 8181
    write_timeout: 20s
  auth:
    enabled: true
    api_keys:
      - key: "k1"
        name: "web"
        permissions: ["read", "write"]
booking:
  owner_page_size: 5
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "data/shareit.db", cfg.Database.Path)
	assert.Equal(t, 8181, cfg.API.HTTP.Port)
	assert.Equal(t, 20*time.Second, cfg.API.HTTP.WriteTimeout)
	assert.Equal(t, 5*time.Second, cfg.API.HTTP.ReadHeaderTimeout)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, []string{"read", "write"}, cfg.API.Auth.APIKeys[0].Permissions)
	assert.Equal(t, 5, cfg.Booking.OwnerPageSize)
	assert.Equal(t, 20, cfg.Booking.DefaultPageSize)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		c := Config{Database: DatabaseConfig{Path: "path"}}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "auth without keys", mutate: func(c *Config) { c.API.Auth.Enabled = true }, wantErr: true},
		{name: "bot token without chat", mutate: func(c *Config) { c.Telegram.BotToken = "t" }, wantErr: true},
		{name: "credentials without sheet", mutate: func(c *Config) { c.Google.CredentialsFile = "creds.json" }, wantErr: true},
		{name: "max page below default", mutate: func(c *Config) { c.Booking.MaxPageSize = 5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default HTTP port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.API.GRPC.Port != 9091 {
		t.Errorf("expected default gRPC port 9091, got %d", cfg.API.GRPC.Port)
	}
	if cfg.API.Auth.HeaderAPIKey != "x-api-key" {
		t.Errorf("expected default api key header, got %s", cfg.API.Auth.HeaderAPIKey)
	}
	if cfg.Booking.OwnerPageSize != 10 {
		t.Errorf("expected default owner page size 10, got %d", cfg.Booking.OwnerPageSize)
	}
	if cfg.Monitoring.PrometheusPort != 0 {
		t.Errorf("prometheus port should stay unset while disabled")
	}
}
