package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	"finanzas/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap("finanzas")

	be := cli.InitBackend(context.Background(), logger.Logger, cfg)
	exporter := cli.InitExporter(context.Background(), logger.Logger, cfg)

	reports := services.NewReportService(be.Store, exporter, services.ReportConfig{
		CacheSize: services.DefaultReportConfig().CacheSize,
		CacheTTL:  cfg.CacheTTL,
	})

	opts := []services.TransactionOption{
		services.WithDefaultRateType(cfg.DefaultRateType),
		services.WithChangeHook(reports.Invalidate),
	}
	if be.Publisher != nil {
		opts = append(opts, services.WithPublisher(be.Publisher))
		logger.Info("Recurrences will be expanded by finanzas-worker")
	} else {
		logger.Info("Recurrences will be expanded in-process")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Transactions: services.NewTransactionService(be.Store, be.Store, opts...),
		Reports:      reports,
		Settings:     services.NewSettingsService(be.Store, be.Store, reports.Invalidate),
		Ready:        be.Ready,
	}, apphttp.Config{
		ProfileID:          cfg.ProfileID,
		DefaultRateType:    cfg.DefaultRateType,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	_, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting finanzas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"profile_id", cfg.ProfileID,
		"export_enabled", exporter != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
