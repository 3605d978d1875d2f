package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"astrotoken/internal/config"
)

const (
	createSlotsTableSQL = `CREATE TABLE IF NOT EXISTS kv_slots (
        key        TEXT PRIMARY KEY,
        value      TEXT NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	upsertSlotSQL = `INSERT INTO kv_slots (key, value, updated_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (key) DO UPDATE
    SET value      = EXCLUDED.value,
        updated_at = EXCLUDED.updated_at;`

	selectSlotSQL = `SELECT value FROM kv_slots WHERE key = $1;`
)

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("watchlist.database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// PostgresSlot keeps documents in the kv_slots table.
type PostgresSlot struct {
	pool *pgxpool.Pool
}

// NewPostgresSlot wraps pool and ensures the table exists.
func NewPostgresSlot(ctx context.Context, pool *pgxpool.Pool) (*PostgresSlot, error) {
	s := &PostgresSlot{pool: pool}
	p, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if _, err := p.Exec(ctx, createSlotsTableSQL); err != nil {
		return nil, fmt.Errorf("create kv_slots table: %w", err)
	}
	return s, nil
}

func (s *PostgresSlot) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

func (s *PostgresSlot) Get(ctx context.Context, key string) (string, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return "", false, err
	}
	var value string
	if scanErr := pool.QueryRow(ctx, selectSlotSQL, key).Scan(&value); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select slot %s: %w", key, scanErr)
	}
	return value, true, nil
}

func (s *PostgresSlot) Put(ctx context.Context, key, value string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertSlotSQL, key, value, time.Now().UTC()); execErr != nil {
		return fmt.Errorf("upsert slot %s: %w", key, execErr)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *PostgresSlot) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

var _ Slot = (*PostgresSlot)(nil)
