// Package config loads Hub Chantier settings from an optional YAML file,
// a .env file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Import   ImportConfig   `yaml:"import"`

	Idempotency IdempotencyConfig `yaml:"idempotency"`
}

// AppConfig configures process-level settings.
type AppConfig struct {
	// Env is "development" or "production"
	Env      string `yaml:"env"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	// AutoMigrate applies the embedded schema on startup
	AutoMigrate bool `yaml:"auto_migrate"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer"`
}

// PricingConfig holds the company-wide pricing defaults applied when a
// quote does not carry its own value.
type PricingConfig struct {
	// OverheadCoefficient is the overhead markup in percent (default 19)
	OverheadCoefficient decimal.Decimal `yaml:"overhead_coefficient"`
	// GlobalMargin is the margin given to new quotes (default 15)
	GlobalMargin decimal.Decimal `yaml:"global_margin"`
	// VATRate is the default VAT given to new quotes (default 20)
	VATRate decimal.Decimal `yaml:"vat_rate"`
	// NumberPrefix prefixes generated quote numbers (default "DEV")
	NumberPrefix string `yaml:"number_prefix"`
}

// ImportConfig configures DPGF uploads.
type ImportConfig struct {
	// MaxFileSize is the upload limit in bytes
	MaxFileSize int64 `yaml:"max_file_size"`
}

// IdempotencyConfig configures replay of writes sent with X-Idempotency-Key.
type IdempotencyConfig struct {
	Enabled bool `yaml:"enabled"`
	// TTL is how long a completed response is replayed
	TTL time.Duration `yaml:"ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:      "development",
			Port:     "8080",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			Enabled: true,
			Issuer:  "hubchantier",
		},
		Pricing: PricingConfig{
			OverheadCoefficient: decimal.NewFromInt(19),
			GlobalMargin:        decimal.NewFromInt(15),
			VATRate:             decimal.NewFromInt(20),
			NumberPrefix:        "DEV",
		},
		Import: ImportConfig{
			MaxFileSize: 10 << 20,
		},
		Idempotency: IdempotencyConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.App.Port == "" {
		return fmt.Errorf("app.port is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required when auth is enabled")
	}
	if c.Pricing.OverheadCoefficient.IsNegative() {
		return fmt.Errorf("pricing.overhead_coefficient must not be negative")
	}
	if c.Pricing.GlobalMargin.IsNegative() {
		return fmt.Errorf("pricing.global_margin must not be negative")
	}
	if c.Pricing.VATRate.IsNegative() || c.Pricing.VATRate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("pricing.vat_rate must be between 0 and 100")
	}
	if c.Pricing.NumberPrefix == "" {
		return fmt.Errorf("pricing.number_prefix is required")
	}
	if c.Import.MaxFileSize <= 0 {
		return fmt.Errorf("import.max_file_size must be positive")
	}
	if c.Idempotency.Enabled && c.Idempotency.TTL <= 0 {
		return fmt.Errorf("idempotency.ttl must be positive")
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.App.Env, "APP_ENV")
	setString(&c.App.Port, "APP_PORT")
	setString(&c.App.LogLevel, "LOG_LEVEL")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Auth.Secret, "JWT_SECRET")
	setString(&c.Auth.Issuer, "JWT_ISSUER")
	setString(&c.Pricing.NumberPrefix, "QUOTE_NUMBER_PREFIX")

	var errs []error
	errs = append(errs,
		setBool(&c.App.AutoMigrate, "AUTO_MIGRATE"),
		setBool(&c.Auth.Enabled, "AUTH_ENABLED"),
		setInt32(&c.Database.MaxConns, "DB_MAX_CONNS"),
		setInt32(&c.Database.MinConns, "DB_MIN_CONNS"),
		setDuration(&c.Database.MaxConnLifetime, "DB_MAX_CONN_LIFETIME"),
		setDuration(&c.Database.MaxConnIdleTime, "DB_MAX_CONN_IDLE_TIME"),
		setDecimal(&c.Pricing.OverheadCoefficient, "PRICING_OVERHEAD_COEFFICIENT"),
		setDecimal(&c.Pricing.GlobalMargin, "PRICING_GLOBAL_MARGIN"),
		setDecimal(&c.Pricing.VATRate, "PRICING_VAT_RATE"),
		setInt64(&c.Import.MaxFileSize, "IMPORT_MAX_FILE_SIZE"),
		setBool(&c.Idempotency.Enabled, "IDEMPOTENCY_ENABLED"),
		setDuration(&c.Idempotency.TTL, "IDEMPOTENCY_TTL"),
	)
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setBool(dst *bool, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setInt32(dst *int32, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = int32(n)
	return nil
}

func setInt64(dst *int64, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setDecimal(dst *decimal.Decimal, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
