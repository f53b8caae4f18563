// Package postgres stores quotes in PostgreSQL: pool, transactions, schema
// and the journal store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig holds the pgxpool settings exposed through configuration.
type PoolConfig struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ApplicationName   string
}

// DefaultPoolConfig returns the settings used when configuration leaves a
// value at zero.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:               dsn,
		MaxConns:          10,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   15 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ApplicationName:   "hubchantier",
	}
}

// Pool is the shared connection pool.
type Pool struct {
	*pgxpool.Pool
}

var errPoolClosed = errors.New("database pool is not initialized")

// NewPool parses cfg, connects and pings once before returning.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.ApplicationName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	// NUMERIC text output must not depend on the server locale.
	pc.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET lc_numeric = 'C'")
		return err
	}

	pgxPool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pgxPool.Ping(ctx); err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{Pool: pgxPool}, nil
}

func (p *Pool) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// Ping backs the readiness check.
func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return errPoolClosed
	}
	return p.Pool.Ping(ctx)
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	Total       int32
	Acquired    int32
	Idle        int32
	Max         int32
	AcquireWait time.Duration
}

// Stats returns the current usage; a nil pool reports zeros.
func (p *Pool) Stats() PoolStats {
	if p == nil || p.Pool == nil {
		return PoolStats{}
	}
	s := p.Pool.Stat()
	return PoolStats{
		Total:       s.TotalConns(),
		Acquired:    s.AcquiredConns(),
		Idle:        s.IdleConns(),
		Max:         s.MaxConns(),
		AcquireWait: s.AcquireDuration(),
	}
}
