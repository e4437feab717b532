package main

import (
	"os"
	"time"

	"finadvisor/internal/amqp"
	"finadvisor/internal/cli"
	applog "finadvisor/internal/log"
	"finadvisor/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting reminder-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err, "exchange", cfg.AMQPExchange)
		os.Exit(1)
	}
	defer amqpClient.Close()

	processor := services.NewReminderProcessor(repo, amqpClient, cfg.ReminderWindowDays)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	interval := cfg.ReminderInterval
	logger.Info("Reminder processor configured",
		"interval", interval,
		"window_days", cfg.ReminderWindowDays,
		"sqlite_db", cfg.SQLiteDBPath)

	run := func(now time.Time) {
		count, err := processor.ProcessDueReminders(ctx, now)
		if err != nil {
			logger.Error("Reminder processing failed", "error", err)
			return
		}
		logger.Info("Reminder processing complete",
			"reminders_published", count,
			"next_check", now.Add(interval).Format("15:04:05"))
	}

	run(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				run(now)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Reminder-worker shutdown complete")
}
