// Package app wires configuration, storage, services and the Telegram surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/filehost/core/bootstrap"
	coreconfig "github.com/m3rciful/filehost/core/config"
	"github.com/m3rciful/filehost/core/logger"
	coretelegram "github.com/m3rciful/filehost/core/telegram"
	"github.com/m3rciful/filehost/core/telegram/middleware"
	"github.com/m3rciful/filehost/core/telegram/state"
	"github.com/m3rciful/filehost/internal/admin"
	"github.com/m3rciful/filehost/internal/bot"
	"github.com/m3rciful/filehost/internal/cryptopay"
	"github.com/m3rciful/filehost/internal/files"
	"github.com/m3rciful/filehost/internal/invoice"
	"github.com/m3rciful/filehost/internal/metrics"
	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/internal/store/jsonstore"
	"github.com/m3rciful/filehost/internal/store/pgstore"
	"github.com/m3rciful/filehost/internal/subscription"
)

// App owns the store and every service built on it.
type App struct {
	cfg     *Config
	store   store.Store
	metrics *metrics.Metrics

	ledger  *subscription.Ledger
	tracker *invoice.Tracker
	files   *files.Registry
	admin   *admin.Service
	bot     *bot.Bot
}

// Options override collaborators. Zero values select the production ones.
type Options struct {
	LoggerInit func(*coreconfig.Config) error
	// Open replaces the configured storage driver.
	Open func(ctx context.Context) (store.Store, error)
	// Provider replaces the CryptoPay client.
	Provider invoice.Provider
	Clock    func() time.Time
}

// New opens storage, seeds the default price and builds the services.
func New(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	a := &App{cfg: cfg, metrics: metrics.New()}

	open := opts.Open
	if open == nil {
		open = a.openStore
	}
	st, err := bootstrap.Run(ctx, bootstrap.Options[store.Store]{
		Config:     &cfg.Config,
		LoggerInit: opts.LoggerInit,
		Open:       open,
		Seeders: []bootstrap.Seeder[store.Store]{
			bootstrap.SeederFunc[store.Store](a.seedPrice),
		},
	})
	if err != nil {
		return nil, err
	}
	a.store = st

	provider := opts.Provider
	if provider == nil {
		provider = cryptopay.New(cryptopay.Options{
			Token:    cfg.CryptoPay.Token,
			BaseURL:  cfg.CryptoPay.BaseURL,
			Observer: a.metrics.ProviderCall,
		})
	}

	ledgerOpts := []subscription.Option{subscription.WithMetrics(a.metrics)}
	fileOpts := []files.Option{files.WithMetrics(a.metrics)}
	states := []state.Option{state.WithTTL(time.Duration(cfg.PromptTTLMinutes) * time.Minute)}
	if opts.Clock != nil {
		ledgerOpts = append(ledgerOpts, subscription.WithClock(opts.Clock))
		fileOpts = append(fileOpts, files.WithClock(opts.Clock))
		states = append(states, state.WithClock(opts.Clock))
	}

	a.ledger = subscription.NewLedger(st, ledgerOpts...)
	a.tracker = invoice.NewTracker(invoice.Options{
		Store:        st,
		Provider:     provider,
		Ledger:       a.ledger,
		Metrics:      a.metrics,
		DefaultPrice: cfg.DefaultPrice(),
	})
	a.files = files.NewRegistry(st, fileOpts...)
	a.admin = admin.NewService(cfg.Telegram.AdminID, state.NewManager(states...), st, a.tracker, a.ledger)
	a.bot = bot.New(bot.Deps{
		Ledger:     a.ledger,
		Tracker:    a.tracker,
		Files:      a.files,
		Admin:      a.admin,
		BackupChat: cfg.BackupChat,
	})
	return a, nil
}

func (a *App) openStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.Storage.Driver {
	case DriverPostgres:
		wait := time.Duration(a.cfg.Storage.WaitSeconds) * time.Second
		st, err := pgstore.Open(ctx, a.cfg.Storage.Database, wait)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st, err := jsonstore.Open(a.cfg.Storage.JSONPath)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// seedPrice stores the configured default price on first start.
func (a *App) seedPrice(ctx context.Context, st store.Store) error {
	t := invoice.NewTracker(invoice.Options{Store: st, DefaultPrice: a.cfg.DefaultPrice()})
	if err := t.SeedPrice(ctx); err != nil {
		return fmt.Errorf("seed price: %w", err)
	}
	return nil
}

// Store exposes the opened store.
func (a *App) Store() store.Store { return a.store }

// Metrics exposes the Prometheus collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Close releases the store. The runner calls it after the bot stops.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// TelegramRunOptions describes how the core runner drives the bot.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}

	core := &a.cfg.Config
	mws := coretelegram.DefaultMiddlewares(core, bot.OnRateLimited,
		middleware.NewUpdateMetrics(a.metrics.Registry, metrics.Namespace))
	mws = append(mws, coretelegram.Middleware{Name: "ensure_user", Use: a.bot.EnsureUserMiddleware})

	var (
		opsCancel context.CancelFunc
		opsDone   chan struct{}
	)

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: mws,
		Routes: func(rt coretelegram.Runtime) []coretelegram.Route {
			return a.bot.Routes(rt, core.Telegram.AdminID)
		},
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			if a.cfg.OpsListen == "" {
				return nil
			}
			srv := metrics.NewServer(a.cfg.OpsListen, metrics.Router(a.metrics, map[string]metrics.HealthFunc{
				"store": a.pingStore,
			}))
			var opsCtx context.Context
			opsCtx, opsCancel = context.WithCancel(ctx)
			opsDone = make(chan struct{})
			go func() {
				defer close(opsDone)
				if err := srv.Run(opsCtx); err != nil {
					logger.Error(opsCtx, logger.CompApp, "ops.serve",
						slog.String("status", "fail"),
						slog.String("err", err.Error()),
					)
				}
			}()
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			if opsCancel != nil {
				opsCancel()
				<-opsDone
			}
			return nil
		},
	}, nil
}

// pingStore runs an empty read-only scope.
func (a *App) pingStore(ctx context.Context) error {
	return a.store.Atomic(ctx, func(store.Tx) error { return nil })
}
