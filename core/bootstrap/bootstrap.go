package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/filehost/core/config"
	"github.com/m3rciful/filehost/core/logger"
)

// Options control the bootstrap pipeline: logger, storage, seeders.
type Options[S Storage] struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Open       func(ctx context.Context) (S, error)
	Seeders    []Seeder[S]
}

// Run initializes the logger, opens storage and runs the seeders in order.
// Storage is closed again when a seeder fails.
func Run[S Storage](ctx context.Context, opts Options[S]) (S, error) {
	var zero S
	if opts.Config == nil {
		return zero, fmt.Errorf("bootstrap: nil config provided")
	}
	if opts.Open == nil {
		return zero, fmt.Errorf("bootstrap: storage opener is required")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return zero, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	start := time.Now()
	storage, err := opts.Open(ctx)
	if err != nil {
		return zero, fmt.Errorf("bootstrap: storage initialization failed: %w", err)
	}

	for i, seeder := range opts.Seeders {
		if err := seeder.Seed(ctx, storage); err != nil {
			return zero, errors.Join(
				fmt.Errorf("bootstrap: seeder %d failed: %w", i, err),
				storage.Close(),
			)
		}
	}

	logger.Info(ctx, logger.CompApp, "bootstrap.complete",
		slog.String("status", "ok"),
		slog.Int("count", len(opts.Seeders)),
		slog.Duration("duration", logger.Took(start)),
	)
	return storage, nil
}
