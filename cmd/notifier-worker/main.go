package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finadvisor/internal/amqp"
	"finadvisor/internal/cache"
	"finadvisor/internal/cli"
	applog "finadvisor/internal/log"
	"finadvisor/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentNotifier)
	logger.Info("Starting notifier-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	notifier := worker.NewNotifyWorker(repo, worker.LogSink{Logger: logger}, 4096, 48*time.Hour)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	caches := cache.NewManager()
	caches.Register(notifier.Seen())
	caches.StartCleanup(ctx, time.Hour)
	defer caches.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeReminders(gctx, notifier.HandleReminder)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Reminder consumption failed", "error", err, "delivered", notifier.Delivered())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Notifier-worker shutdown complete", "delivered", notifier.Delivered())
}
