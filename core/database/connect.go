package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/filehost/core/logger"
)

const (
	connectAttemptTimeout = 5 * time.Second
	connectRetryDelay     = 2 * time.Second
)

// Connect opens a pooled connection, retrying until the server answers or
// wait elapses. A zero wait tries once.
func Connect(ctx context.Context, cfg Config, wait time.Duration) (*sqlx.DB, error) {
	start := time.Now()
	attrs := []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}

	var (
		db  *sqlx.DB
		err error
	)
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, connectAttemptTimeout)
		db, err = sqlx.ConnectContext(attemptCtx, "postgres", cfg.DSN())
		cancel()
		if err == nil {
			break
		}
		if time.Since(start) >= wait || ctx.Err() != nil {
			logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.connect", append(attrs,
				slog.String("status", "fail"),
				slog.Int("attempts", attempt),
				slog.Duration("duration", logger.Took(start)),
				slog.String("err", err.Error()),
			)...)
			return nil, fmt.Errorf("db connect: %w", err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(connectRetryDelay):
		}
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	}
	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.connect", append(attrs,
		slog.String("status", "ok"),
		slog.Int("count", cfg.MaxConnections),
		slog.Duration("duration", logger.Took(start)),
	)...)
	return db, nil
}
