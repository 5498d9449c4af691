package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/amqp"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/config"
	applog "github.com/shubhamchaurasiya12/Carbon-Tracker/internal/log"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/services"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/storage"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting alert-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	alertWorker := worker.NewAlertWorker(services.NewSummaryService(repo), repo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One-shot sweep at startup covers anything missed while down.
	if err := alertWorker.SweepAll(ctx); err != nil {
		logger.Error("Startup sweep failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeEmissionRecorded(gctx, alertWorker.HandleEmissionEvent)
	})

	g.Go(func() error {
		return alertWorker.RunPeriodicSweep(gctx, cfg.SweepInterval)
	})

	logger.Info("Alert worker running",
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.SweepInterval.String())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Alert worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Alert worker stopped gracefully")
}
