package main

import (
	"os"

	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
)

// recurring-worker materializes due recurring transactions on a ticker,
// for deployments that run the API with SCHEDULER_ENABLED=false.
func main() {
	cfg, logger := cli.Bootstrap(log.ComponentScheduler)
	logger.Info("Starting recurring-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()

	// The dashboard cache lives in the API process; its entries expire
	// after CACHE_TTL, so there is nothing to invalidate from here.
	processor := services.NewRecurringProcessor(
		repo,
		services.NewScheduler(cfg.RecurringMaxBacklog),
		publisher,
		nil,
		metrics.New(),
		cfg.RecurringWorkers,
	)

	runner := services.NewRecurringRunner(processor, services.RecurringRunnerConfig{
		Interval: cfg.RecurringInterval,
		Location: cfg.Location(),
	})

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"workers", cfg.RecurringWorkers,
		"max_backlog", cfg.RecurringMaxBacklog,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := runner.Run(ctx); err != nil {
		logger.Error("Recurring runner stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete")
}
