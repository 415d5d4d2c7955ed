package main

import (
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

// event-worker consumes domain events and stores in-app notifications.
func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting event-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for event-worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	client := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	defer client.Close()

	w := worker.NewEventWorker(client,
		services.NewNotificationService(repo, metrics.New()),
	)

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Consuming events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	if err := w.Run(ctx); err != nil {
		logger.Error("Event worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Event-worker shutdown complete")
}
