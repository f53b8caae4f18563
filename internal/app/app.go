// Package app wires configuration, storage and the quote services together.
// Both the API server and quotectl start from here.
package app

import (
	"context"
	"fmt"

	"hubchantier/internal/config"
	"hubchantier/internal/domain/auth"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/domain/quote/dpgf"
	"hubchantier/internal/domain/quote/pricing"
	"hubchantier/internal/domain/quote/versioning"
	"hubchantier/internal/infrastructure/metrics"
	"hubchantier/internal/infrastructure/numerator"
	"hubchantier/internal/infrastructure/storage/postgres"
	"hubchantier/internal/infrastructure/storage/postgres/quote_repo"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config    *config.Config
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Metrics   *metrics.Metrics
	JWT       *auth.JWTService

	// Idempotency is nil when disabled
	Idempotency *postgres.IdempotencyStore

	Quotes     *quote.Service
	Pricing    *pricing.Service
	Import     *dpgf.Service
	Versioning *versioning.Service
}

// New connects to the database and builds every service.
// The caller owns the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a, err := build(cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *config.Config, pool *postgres.Pool) (*App, error) {
	txm := postgres.NewTxManager(pool)

	journal, err := postgres.NewJournalStore(txm)
	if err != nil {
		return nil, fmt.Errorf("create journal store: %w", err)
	}
	repos := quote_repo.Repositories(txm, journal)

	m := metrics.New()
	m.TrackPool(func() metrics.PoolStats {
		s := pool.Stats()
		return metrics.PoolStats{Total: s.Total, Acquired: s.Acquired, Idle: s.Idle, Max: s.Max, AcquireWait: s.AcquireWait}
	})
	engine := pricing.NewEngine(cfg.Pricing.OverheadCoefficient)

	jwtCfg := auth.DefaultJWTConfig(cfg.Auth.Secret)
	if cfg.Auth.Issuer != "" {
		jwtCfg.Issuer = cfg.Auth.Issuer
	}

	var keys *postgres.IdempotencyStore
	if cfg.Idempotency.Enabled {
		keys = postgres.NewIdempotencyStore(txm, cfg.Idempotency.TTL)
	}

	return &App{
		Config:    cfg,
		Pool:      pool,
		TxManager: txm,
		Metrics:   m,
		JWT:       auth.NewJWTService(jwtCfg),

		Idempotency: keys,

		Quotes:     quote.NewService(repos, numerator.New(txm, pool), txm, PricingDefaults(cfg)),
		Pricing:    pricing.NewService(repos, txm, engine).WithObserver(m),
		Import:     dpgf.NewService(repos, txm, cfg.Import.MaxFileSize).WithObserver(m),
		Versioning: versioning.NewService(repos, txm, engine),
	}, nil
}

// PricingDefaults maps the pricing section of the configuration.
func PricingDefaults(cfg *config.Config) quote.PricingDefaults {
	defaults := quote.DefaultPricing()
	defaults.GlobalMargin = cfg.Pricing.GlobalMargin
	defaults.VATRate = cfg.Pricing.VATRate
	defaults.OverheadCoefficient = cfg.Pricing.OverheadCoefficient
	if cfg.Pricing.NumberPrefix != "" {
		defaults.NumberPrefix = cfg.Pricing.NumberPrefix
	}
	return defaults
}

// Migrate applies the embedded schema.
func (a *App) Migrate(ctx context.Context) error {
	return postgres.Migrate(ctx, a.TxManager)
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}
