package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/cli"
	"finanzas/internal/services"
	"finanzas/internal/storage"
	"finanzas/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("finanzas-worker")

	if cfg.DataBackend != "sqlite" || cfg.AMQPURL == "" {
		logger.Error("finanzas-worker needs DATA_BACKEND=sqlite and AMQP_URL",
			"backend", cfg.DataBackend,
			"amqp_configured", cfg.AMQPURL != "")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		_ = repo.Close()
		os.Exit(1)
	}

	w := worker.NewRecurrenceWorker(repo, services.NewRecurrenceExpander(repo, nil))

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
		if err := repo.Close(); err != nil {
			logger.Error("SQLite close error", "error", err)
		}
	})

	// Catch up on anything published while the worker was down.
	logger.Info("Performing startup recurrence check...")
	if err := w.ExpandPending(ctx); err != nil {
		logger.Error("Startup recurrence check failed", "error", err)
	}

	go w.RunPeriodic(ctx, cfg.RecurrenceSweepInterval)

	go func() {
		if err := amqpClient.ConsumeRecurrences(ctx, w.HandleRecurrenceMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	logger.Info("finanzas-worker started",
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.RecurrenceSweepInterval)
	cli.WaitForShutdown(ctx, done)
}
