package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()

	m := metrics.New()
	loc := cfg.Location()
	scheduler := services.NewScheduler(cfg.RecurringMaxBacklog)

	dashboardCache := cache.NewLRUCache[services.DashboardSummary](cfg.CacheSize, cfg.CacheTTL)
	dashboard := services.NewDashboardService(repo, dashboardCache, m)
	processor := services.NewRecurringProcessor(repo, scheduler, publisher, dashboard, m, cfg.RecurringWorkers)

	svc := apphttp.Services{
		Rules:         services.NewRuleService(repo, scheduler, loc),
		Processor:     processor,
		Goals:         services.NewGoalService(repo, publisher, dashboard, m, loc),
		Transactions:  services.NewTransactionService(repo, publisher, dashboard, m),
		Dashboard:     dashboard,
		Notifications: services.NewNotificationService(repo, m),
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		CronSecret:         cfg.CronSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           loc,
	}, svc, repo, logger.WithComponent(log.ComponentHTTP), m)

	ctx, stop := cli.SignalContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"sqlite_db", cfg.SQLiteDBPath,
			"timezone", loc.String(),
			"scheduler_enabled", cfg.SchedulerEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return cache.NewManager(dashboardCache).Run(gctx, time.Minute)
	})

	// With the scheduler disabled, run cmd/recurring-worker or call the
	// process endpoint from an external cron instead.
	if cfg.SchedulerEnabled {
		runner := services.NewRecurringRunner(processor, services.RecurringRunnerConfig{
			Interval: cfg.RecurringInterval,
			Location: loc,
		})
		g.Go(func() error {
			return runner.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server shutdown complete")
}
