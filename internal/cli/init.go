// Package cli provides the initialization shared by the feedesk commands:
// environment loading, logging, and wiring of the ledger, cache and journal.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"feedesk/internal/amqp"
	"feedesk/internal/backend"
	"feedesk/internal/cache"
	"feedesk/internal/config"
	"feedesk/internal/ledger"
	applog "feedesk/internal/log"
	"feedesk/internal/notify"
	"feedesk/internal/services"
	"feedesk/internal/storage"
)

// noticeBacklog bounds the notifications kept for the facade.
const noticeBacklog = 100

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:  applog.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})
	applog.SetDefault(logger)
	return logger
}

// App holds every collaborator of a running feedesk process.
type App struct {
	Config      *config.Config
	Logger      *applog.Logger
	Ledger      ledger.Ledger
	Loader      *ledger.Loader
	Cache       *cache.Ledger
	Refresher   *services.Refresher
	History     *services.History
	Coordinator *services.Coordinator
	Journal     *storage.Journal
	Notices     *notify.Recorder
	Caches      *cache.Manager
	AMQP        *amqp.Client

	cleanups []func() error
}

// Option customizes BuildApp.
type Option func(*buildOptions)

type buildOptions struct {
	factory    backend.Factory
	skipAMQP   bool
	noJournal  bool
	extraSinks []notify.Sink
}

// WithFactory replaces the ledger factory.
func WithFactory(f backend.Factory) Option {
	return func(o *buildOptions) { o.factory = f }
}

// WithoutAMQP skips the broker even when AMQP_URL is set.
func WithoutAMQP() Option {
	return func(o *buildOptions) { o.skipAMQP = true }
}

// WithoutJournal skips opening the mutation journal.
func WithoutJournal() Option {
	return func(o *buildOptions) { o.noJournal = true }
}

// WithSinks adds notification sinks, e.g. the terminal of a CLI command.
func WithSinks(sinks ...notify.Sink) Option {
	return func(o *buildOptions) { o.extraSinks = append(o.extraSinks, sinks...) }
}

// BuildApp wires the ledger backend, caches, coordinator and the optional
// journal and broker. Call Close when done.
func BuildApp(ctx context.Context, cfg *config.Config, logger *applog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	o := buildOptions{factory: backend.NewFactory(logger)}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Cache:   cache.NewLedger(),
		Notices: notify.NewRecorder(noticeBacklog),
		Caches:  cache.NewManager(logger),
	}
	loaderLog := logger.WithComponent(applog.ComponentLedger)
	app.Loader = &ledger.Loader{OnChange: func(loading bool) {
		loaderLog.Debug("Loading indicator changed", "loading", loading)
	}}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.Indicator = app.Loader
	res, err := o.factory.Create(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	app.Ledger = res.Ledger
	if res.Cleanup != nil {
		app.cleanups = append(app.cleanups, res.Cleanup)
	}

	coordOpts := []services.CoordinatorOption{services.WithCoordinatorLogger(logger)}

	if !o.noJournal && cfg.JournalDBPath != "" {
		j, err := storage.NewJournal(cfg.JournalDBPath, logger)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		app.Journal = j
		app.cleanups = append(app.cleanups, j.Close)
		coordOpts = append(coordOpts, services.WithJournal(j))
	}

	sinks := notify.Multi{notify.NewLogSink(logger), app.Notices}
	sinks = append(sinks, o.extraSinks...)

	if !o.skipAMQP && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// The broker is optional; the desk keeps working without it.
			logger.Warn("AMQP unavailable, notifications stay local", "error", err)
		} else {
			app.AMQP = client
			app.cleanups = append(app.cleanups, client.Close)
			pub := amqp.NewPublisher(client)
			sinks = append(sinks, pub)
			coordOpts = append(coordOpts, services.WithReminderPublisher(pub))
		}
	}
	coordOpts = append(coordOpts, services.WithSink(sinks))

	app.Refresher = services.NewRefresher(app.Ledger, app.Ledger, app.Cache, logger)
	app.History = services.NewHistory(app.Ledger, cfg.HistoryCacheSize, cfg.HistoryCacheTTL)
	app.Caches.Register("history", app.History.Cache())
	app.Coordinator = services.NewCoordinator(app.Ledger, app.Cache, app.Refresher, app.History, coordOpts...)

	return app, nil
}

// StartBackground runs the periodic cache sweeper until ctx is done.
func (a *App) StartBackground(ctx context.Context) {
	interval := a.Config.HistoryCacheTTL
	if interval <= 0 {
		interval = time.Minute
	}
	a.Caches.Start(ctx, interval)
	a.cleanups = append(a.cleanups, func() error {
		a.Caches.Stop()
		return nil
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var result *multierror.Error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.cleanups = nil
	return result.ErrorOrNil()
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
