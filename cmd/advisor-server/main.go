package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finadvisor/internal/cli"
	apphttp "finadvisor/internal/http"
	applog "finadvisor/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentHTTP)
	cfg := cli.LoadAndValidateConfig(logger)

	tables, err := cli.LoadTables(cfg)
	if err != nil {
		logger.Error("Failed to load advisory tables", "error", err, "path", cfg.TablesFile)
		os.Exit(1)
	}
	advisor, err := cli.NewBatchAdvisor(cfg, tables)
	if err != nil {
		logger.Error("Failed to build advisor", "error", err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	forecasting, err := cli.NewForecasting(bgCtx, logger, cfg, tables)
	if err != nil {
		logger.Error("Failed to configure predictor", "error", err, "url", cfg.PredictorURL)
		os.Exit(1)
	}
	defer forecasting.Close()

	deps := apphttp.Deps{
		Advisor: advisor,
		Store:   repo,
		Logger:  logger,
	}
	if forecasting != nil {
		deps.Forecaster = forecasting.Forecaster
		deps.PredictorReady = forecasting.Ready
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		stopBackground()
	})

	logger.Info("Starting advisor server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"db", cfg.SQLiteDBPath,
		"reminder_window_days", cfg.ReminderWindowDays,
		"forecast_enabled", forecasting != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
