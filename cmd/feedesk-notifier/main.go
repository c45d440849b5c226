// Command feedesk-notifier consumes the fee desk notification queue and
// hands reminder links to the dispatcher.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"feedesk/internal/amqp"
	"feedesk/internal/cli"
	"feedesk/internal/config"
	"feedesk/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	// Ledger settings are not validated; the notifier only needs the broker.
	cfg := config.Load()
	logger := cli.SetupLogger(cfg)
	logger.Info("Starting feedesk-notifier")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	notifier := worker.NewNotifier(nil, logger)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	go func() {
		if err := client.Consume(ctx, notifier.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			client.Close()
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	s := notifier.Stats()
	logger.Info("Notifier stopped",
		"notifications", s.Notifications,
		"reminders", s.Reminders,
		"dropped", s.Dropped)
}
