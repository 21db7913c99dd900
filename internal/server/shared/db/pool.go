// Package db owns the process-wide PostgreSQL connection pool. It is opened
// once at startup, shared by every repository through the *sql.DB it
// exposes, and closed explicitly on shutdown.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Default pool settings.
const (
	DefaultMaxConns        = 10
	DefaultConnectTimeout  = 2 * time.Second
	DefaultMaxConnIdleTime = 30 * time.Second
)

// Options configures the pool. Zero values fall back to the defaults above.
type Options struct {
	DSN             string
	MaxConns        int
	ConnectTimeout  time.Duration
	MaxConnIdleTime time.Duration
}

// Pool wraps a pgxpool.Pool together with a database/sql view over it.
type Pool struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

func buildConfig(opts Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	cfg.MaxConns = int32(maxConns)

	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	cfg.ConnConfig.ConnectTimeout = connectTimeout

	idle := opts.MaxConnIdleTime
	if idle <= 0 {
		idle = DefaultMaxConnIdleTime
	}
	cfg.MaxConnIdleTime = idle

	return cfg, nil
}

// Open creates the pool and verifies it with a ping.
func Open(ctx context.Context, opts Options) (*Pool, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Pool{pool: pool, db: stdlib.OpenDBFromPool(pool)}, nil
}

// DB returns the database/sql handle backed by the pool.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Ping checks that a connection can be acquired and used.
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Stats reports current pool usage.
func (p *Pool) Stats() *pgxpool.Stat {
	return p.pool.Stat()
}

// Close releases the sql handle and then every pooled connection.
func (p *Pool) Close() error {
	err := p.db.Close()
	p.pool.Close()
	return err
}
