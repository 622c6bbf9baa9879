package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payfast/payfast/internal/config"
)

const (
	defaultConnLifetime      = time.Hour
	defaultConnIdleTime      = 30 * time.Minute
	defaultHealthCheckPeriod = time.Minute
)

// PoolOption tunes the Postgres pool before it connects.
type PoolOption func(*pgxpool.Config)

// WithMaxConns caps the pool size. Transfers hold a connection for their whole unit of work,
// so this bounds how many run at once. Zero keeps the driver default.
func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// WithMinConns keeps n connections warm.
func WithMinConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MinConns = n
		}
	}
}

// WithConnLifetime recycles connections older than d.
func WithConnLifetime(d time.Duration) PoolOption {
	return func(c *pgxpool.Config) {
		if d > 0 {
			c.MaxConnLifetime = d
		}
	}
}

// PoolOptionsFrom maps the pool settings of cfg to options.
func PoolOptionsFrom(cfg config.Config) []PoolOption {
	return []PoolOption{WithMaxConns(cfg.DBMaxConns), WithMinConns(cfg.DBMinConns)}
}

func poolConfig(url string, opts ...PoolOption) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.MaxConnLifetime = defaultConnLifetime
	cfg.MaxConnIdleTime = defaultConnIdleTime
	cfg.HealthCheckPeriod = defaultHealthCheckPeriod
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("postgres pool: min conns %d exceeds max conns %d", cfg.MinConns, cfg.MaxConns)
	}
	return cfg, nil
}

// NewPostgresPool connects a pool for the ledger and account stores and verifies it with a ping.
func NewPostgresPool(ctx context.Context, url string, opts ...PoolOption) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(url, opts...)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
