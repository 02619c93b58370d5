package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api", cfg.Server.APIPrefix)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.TokenDuration)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.Agenda.EnforceRecurrenceBounds)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_port: "8080"
  timezone: UTC
database:
  driver: sqlite3
  dsn: "file:dev.db"
cache:
  suggestion_ttl: 1h
agenda:
  enforce_recurrence_bounds: true
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://a.test/, http://b.test")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.HTTPPort, "env overrides file")
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file:dev.db", cfg.DSN())
	assert.Equal(t, time.Hour, cfg.Cache.SuggestionTTL)
	assert.True(t, cfg.Agenda.EnforceRecurrenceBounds)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 2.5, cfg.RateLimit.RPS, 1e-9)
	assert.False(t, cfg.Server.TrustProxy, "proxy headers are ignored by default")

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "development defaults", mutate: func(c *Config) {}},
		{
			name:    "production without secret",
			mutate:  func(c *Config) { c.Server.Environment = "production" },
			wantErr: true,
		},
		{
			name: "production with secret",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.JWT.Secret = "s3cret"
			},
		},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.Database.Driver = "sqlite3" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "llama" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Server.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "zero burst", mutate: func(c *Config) { c.RateLimit.Burst = 0 }, wantErr: true},
		{name: "zero burst disabled", mutate: func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.Burst = 0
		}},
		{name: "prefix without slash", mutate: func(c *Config) { c.Server.APIPrefix = "api" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.ValidateConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotEmpty(t, cfg.JWT.Secret)
		})
	}
}

func TestDSN_Postgres(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=barakaflow sslmode=disable", cfg.DSN())
}
