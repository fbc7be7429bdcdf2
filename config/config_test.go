package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECIPE_DATABASE_URL", "user:pass@tcp(localhost:3306)/recipes")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "mysql", cfg.DatabaseDriver)
	assert.Equal(t, "recipe-api", cfg.ServiceName)
	assert.Equal(t, DefaultTokenSecret, cfg.TokenSecret)
	assert.Equal(t, bcrypt.DefaultCost, cfg.BcryptCost)
	assert.Equal(t, float64(50), cfg.RateLimit)
	assert.Equal(t, 100, cfg.RateLimitBurst)
	assert.False(t, cfg.Consul.Enabled)
	assert.Equal(t, "127.0.0.1:8500", cfg.Consul.Address)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`http_port: 9000
database_driver: sqlite
database_url: recipes.db
superuser:
  email: admin@example.com
  password: adminpass
consul:
  enabled: true
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("RECIPE_HTTP_PORT", "9100")
	t.Setenv("RECIPE_CONSUL_ADDRESS", "consul:8500")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "recipes.db", cfg.DatabaseURL)
	assert.Equal(t, "admin@example.com", cfg.Superuser.Email)
	assert.True(t, cfg.Consul.Enabled)
	assert.Equal(t, "consul:8500", cfg.Consul.Address)
}

func TestValidate(t *testing.T) {
	base := Config{DatabaseDriver: "sqlite", DatabaseURL: "x.db", BcryptCost: bcrypt.MinCost}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.DatabaseDriver = "oracle" }, wantErr: true},
		{name: "cost too low", mutate: func(c *Config) { c.BcryptCost = 1 }, wantErr: true},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit = -1 }, wantErr: true},
		{name: "rate limit without burst", mutate: func(c *Config) { c.RateLimit = 10 }, wantErr: true},
		{name: "superuser without password", mutate: func(c *Config) { c.Superuser.Email = "a@b.c" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
