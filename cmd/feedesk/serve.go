package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/google/subcommands"

	"feedesk/internal/cli"
	apphttp "feedesk/internal/http"
	applog "feedesk/internal/log"
)

type serveCmd struct {
	port      string
	retention time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the fee desk HTTP facade" }
func (*serveCmd) Usage() string {
	return `feedesk serve [-port <port>] [-journal-retention <duration>]

  Serves the JSON facade over the configured ledger. The student cache is
  warmed in the background; /readyz reports 503 until it is loaded.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "", "Port to listen on. Overrides PORT.")
	f.DurationVar(&c.retention, "journal-retention", 30*24*time.Hour, "Drop journal entries older than this at startup. 0 keeps everything.")
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := openApp(context.Background())
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	logger := app.Logger
	port := c.port
	if port == "" {
		port = app.Config.Port
	}

	deps := apphttp.Deps{
		Coordinator: app.Coordinator,
		Refresher:   app.Refresher,
		History:     app.History,
		Cache:       app.Cache,
		Notices:     app.Notices,
		Logger:      logger,
	}
	if app.Journal != nil {
		deps.Journal = app.Journal
	}
	srv := apphttp.NewServer(":"+port, deps)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	app.StartBackground(ctx)
	go c.warmUp(ctx, app)

	logger.Info("Starting feedesk server", "port", port, "backend", app.Config.LedgerBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", port)
		return subcommands.ExitFailure
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return subcommands.ExitSuccess
}

func (c *serveCmd) warmUp(ctx context.Context, app *cli.App) {
	logger := app.Logger.WithComponent(applog.ComponentCache)
	if err := app.Refresher.AfterMutation(ctx); err != nil {
		logger.Warn("Initial ledger load failed", "error", err)
	} else {
		logger.Info("Ledger cache loaded", applog.FieldCount, len(app.Cache.Get()))
	}

	if app.Journal != nil && c.retention > 0 {
		n, err := app.Journal.Prune(ctx, c.retention)
		if err != nil {
			logger.Warn("Journal prune failed", "error", err)
		} else if n > 0 {
			logger.Info("Pruned journal", applog.FieldCount, n)
		}
	}
}
