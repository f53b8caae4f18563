package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "19", cfg.Pricing.OverheadCoefficient.String())
	assert.Equal(t, "15", cfg.Pricing.GlobalMargin.String())
	assert.Equal(t, "20", cfg.Pricing.VATRate.String())
	assert.Equal(t, "DEV", cfg.Pricing.NumberPrefix)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.Idempotency.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hubchantier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: "9090"
database:
  url: postgres://file
  max_conn_lifetime: 10m
pricing:
  overhead_coefficient: "21.5"
  global_margin: 12
`), 0o600))

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("PRICING_VAT_RATE", "5.5")
	t.Setenv("IDEMPOTENCY_TTL", "2h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "postgres://env", cfg.Database.URL)
	assert.Equal(t, 10*time.Minute, cfg.Database.MaxConnLifetime)
	assert.Equal(t, "21.5", cfg.Pricing.OverheadCoefficient.String())
	assert.Equal(t, "12", cfg.Pricing.GlobalMargin.String())
	assert.Equal(t, "5.5", cfg.Pricing.VATRate.String())
	assert.Equal(t, 2*time.Hour, cfg.Idempotency.TTL)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "many")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_CONNS")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Database.URL = "postgres://localhost/hub"
		cfg.Auth.Secret = "s3cret"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing dsn", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"missing secret", func(c *Config) { c.Auth.Secret = "" }, "auth.secret"},
		{"negative overhead", func(c *Config) { c.Pricing.OverheadCoefficient = c.Pricing.OverheadCoefficient.Neg() }, "overhead"},
		{"vat above 100", func(c *Config) { c.Pricing.VATRate = c.Pricing.VATRate.Mul(c.Pricing.VATRate) }, "vat_rate"},
		{"no prefix", func(c *Config) { c.Pricing.NumberPrefix = "" }, "number_prefix"},
		{"idempotency without ttl", func(c *Config) { c.Idempotency.TTL = 0 }, "idempotency.ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
