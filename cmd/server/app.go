package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/taskoverflow-api/internal/config"
	"github.com/phrazzld/taskoverflow-api/internal/platform/memory"
	"github.com/phrazzld/taskoverflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskoverflow-api/internal/platform/redisq"
	"github.com/phrazzld/taskoverflow-api/internal/service"
	"github.com/phrazzld/taskoverflow-api/internal/store"
	"github.com/phrazzld/taskoverflow-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	todoStore store.TodoStore

	// set only for the local queue backend
	taskRunner *task.TaskRunner
	queue      service.JobQueue

	todoService   service.TodoService
	exportService service.ExportService

	closers []io.Closer
}

// newApplication creates a new application instance with all dependencies initialized.
// Background workers of the local queue backend are started here.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *application, err error) {
	app := &application{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	if err := app.setupStores(ctx); err != nil {
		return nil, err
	}
	if err := app.setupQueue(ctx); err != nil {
		return nil, err
	}

	app.todoService, err = service.NewTodoService(app.todoStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create todo service: %w", err)
	}
	app.exportService, err = service.NewExportService(app.queue, app.todoStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create export service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

func (app *application) setupStores(ctx context.Context) error {
	switch app.config.Database.Driver {
	case "postgres":
		db, err := setupAppDatabase(ctx, app.config, app.logger)
		if err != nil {
			return fmt.Errorf("failed to set up database: %w", err)
		}
		app.db = db
		app.todoStore = postgres.NewPostgresTodoStore(db, app.logger)
	case "memory":
		app.todoStore = memory.NewTodoStore(app.logger)
	default:
		return fmt.Errorf("unsupported database driver %q", app.config.Database.Driver)
	}
	return nil
}

func (app *application) setupQueue(ctx context.Context) error {
	qc := app.config.Queue
	factory := task.NewCalendarExportTaskFactory(app.config.Export.GenerationDelay, app.logger)

	switch qc.Backend {
	case "local":
		var jobs task.JobStore = memory.NewJobStore(app.logger)
		if app.db != nil {
			jobs = postgres.NewPostgresJobStore(app.db, app.logger)
		}

		runnerCfg := task.DefaultTaskRunnerConfig()
		runnerCfg.WorkerCount = qc.WorkerCount
		runnerCfg.QueueSize = qc.QueueSize
		runnerCfg.JobTimeout = qc.JobTimeout
		runnerCfg.StuckJobAge = qc.StuckJobAge

		app.taskRunner = task.NewTaskRunner(jobs, factory, runnerCfg, app.logger)
		if err := app.taskRunner.Start(); err != nil {
			return fmt.Errorf("failed to start task runner: %w", err)
		}
		app.queue = task.NewLocalQueue(app.taskRunner, jobs, factory)

	case "redis":
		broker, err := redisq.ParseRedisURL(qc.BrokerURL)
		if err != nil {
			return err
		}
		results, err := redisq.DialResultBackend(ctx, qc.ResultBackendURL, qc.ResultRetention)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, results)

		client := redisq.NewClient(broker, results, redisq.ClientConfig{
			Queue:      qc.DefaultQueue,
			JobTimeout: qc.JobTimeout,
			Retention:  qc.ResultRetention,
		}, app.logger)
		app.closers = append(app.closers, client)
		app.queue = client

	default:
		return fmt.Errorf("unsupported queue backend %q", qc.Backend)
	}

	app.logger.Info("Job queue ready", "backend", qc.Backend, "queue", qc.DefaultQueue)
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i].Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("Error releasing resources", "error", err)
	}

	app.logger.Info("Application shutdown completed")
}
