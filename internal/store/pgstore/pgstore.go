// Package pgstore implements store.Store on PostgreSQL. Every Atomic scope is
// one transaction serialized by a transaction-level advisory lock.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/filehost/core/database"
	"github.com/m3rciful/filehost/core/logger"
	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/migrations"
)

// lockKey is the pg_advisory_xact_lock key shared by all scopes.
const lockKey int64 = 0x66696c65686f7374

// Store is a store.Store over a sqlx connection pool.
type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an already migrated database.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open applies pending migrations and connects, waiting up to wait for the
// server to come up.
func Open(ctx context.Context, cfg database.Config, wait time.Duration) (*Store, error) {
	db, err := database.Connect(ctx, cfg, wait)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(cfg, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.LogEvent(ctx, logger.Store, slog.LevelInfo, "store.open",
		slog.String("status", "ok"),
		slog.String("db", "postgres"),
	)
	return New(db), nil
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if _, err = sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return fmt.Errorf("pgstore: lock: %w", err)
	}
	if err = fn(&tx{ctx: ctx, tx: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("pgstore: commit: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
