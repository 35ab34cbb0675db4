// Package main runs the broker-backed calendar export worker. It consumes jobs
// submitted by the API server when queue.backend is "redis".
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/taskoverflow-api/internal/config"
	"github.com/phrazzld/taskoverflow-api/internal/platform/logger"
	"github.com/phrazzld/taskoverflow-api/internal/platform/redisq"
	"github.com/phrazzld/taskoverflow-api/internal/redact"
	"github.com/phrazzld/taskoverflow-api/internal/task"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker exited with error", "error", redact.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	if cfg.Queue.Backend != "redis" {
		return errors.New("the worker requires queue.backend=redis")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker, err := redisq.ParseRedisURL(cfg.Queue.BrokerURL)
	if err != nil {
		return err
	}
	results, err := redisq.DialResultBackend(ctx, cfg.Queue.ResultBackendURL, cfg.Queue.ResultRetention)
	if err != nil {
		return err
	}
	defer func() {
		if err := results.Close(); err != nil {
			l.Error("failed to close result backend", "error", err)
		}
	}()

	factory := task.NewCalendarExportTaskFactory(cfg.Export.GenerationDelay, l)
	worker := redisq.NewWorker(broker, factory, results, redisq.WorkerConfig{
		Queue:           cfg.Queue.DefaultQueue,
		Concurrency:     cfg.Queue.WorkerCount,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, l)

	if err := worker.Start(); err != nil {
		return err
	}
	l.Info("Worker started",
		"queue", cfg.Queue.DefaultQueue,
		"concurrency", cfg.Queue.WorkerCount,
		"broker", redact.URL(cfg.Queue.BrokerURL))

	<-ctx.Done()
	l.Info("Shutting down worker...")
	worker.Shutdown()
	l.Info("Worker shutdown completed")
	return nil
}
