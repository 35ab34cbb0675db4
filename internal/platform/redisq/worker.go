package redisq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/task"
)

// DefaultQueue is the queue calendar exports are routed to.
const DefaultQueue = "ical"

// WorkerConfig controls the broker worker.
type WorkerConfig struct {
	Queue           string
	Concurrency     int
	ShutdownTimeout time.Duration
	// TaskTypes are the task types the worker accepts.
	TaskTypes []string
}

// Worker consumes jobs from the broker, runs them through a task.Factory and
// writes their terminal state to the result backend.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	factory task.Factory
	results *ResultBackend
	now     func() time.Time
	logger  *slog.Logger
}

// NewWorker creates a worker. It does not start consuming until Start is called.
func NewWorker(broker asynq.RedisConnOpt, factory task.Factory, results *ResultBackend, config WorkerConfig, logger *slog.Logger) *Worker {
	if config.Queue == "" {
		config.Queue = DefaultQueue
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 2
	}
	if len(config.TaskTypes) == 0 {
		config.TaskTypes = []string{task.TaskTypeCalendarExport}
	}
	logger = logger.With("component", "redisq_worker", "queue", config.Queue)

	w := &Worker{
		factory: factory,
		results: results,
		now:     time.Now,
		logger:  logger,
	}

	w.server = asynq.NewServer(broker, asynq.Config{
		Concurrency:     config.Concurrency,
		Queues:          map[string]int{config.Queue: 1},
		ShutdownTimeout: config.ShutdownTimeout,
		Logger:          newAsynqLogger(logger),
		LogLevel:        asynq.InfoLevel,
	})

	w.mux = asynq.NewServeMux()
	w.mux.Use(w.lifecycleMiddleware)
	for _, taskType := range config.TaskTypes {
		w.mux.Handle(taskType, asynq.HandlerFunc(w.ProcessTask))
	}

	return w
}

// Start begins consuming jobs in the background.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	return nil
}

// Shutdown stops fetching new jobs and waits for active ones up to the
// configured shutdown timeout.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// ProcessTask runs one broker task. Every failure is recorded in the result
// backend and returned with asynq.SkipRetry so the broker archives it.
func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	id, ok := asynq.GetTaskID(ctx)
	if !ok {
		return fmt.Errorf("task without id: %w", asynq.SkipRetry)
	}

	tk, err := w.factory.CreateTask(id, t.Type(), t.Payload())
	if err != nil {
		return w.fail(ctx, id, err)
	}

	output, err := tk.Execute(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.New("job timed out")
		}
		return w.fail(ctx, id, err)
	}

	if _, err := w.results.Save(ctx, id, Result{
		Status:     domain.JobStatusSuccess,
		Output:     output,
		FinishedAt: w.now().UTC(),
	}); err != nil {
		// without a stored result the job cannot report success
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, id string, cause error) error {
	// the job context may already be done; the record must still land
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if _, err := w.results.Save(saveCtx, id, Result{
		Status:     domain.JobStatusFailure,
		Error:      cause.Error(),
		FinishedAt: w.now().UTC(),
	}); err != nil {
		w.logger.Error("failed to record job failure", "job_id", id, "error", err)
	}
	return fmt.Errorf("%w: %w", cause, asynq.SkipRetry)
}

// lifecycleMiddleware logs job start and outcome and turns handler panics
// into recorded failures.
func (w *Worker) lifecycleMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) (err error) {
		id, _ := asynq.GetTaskID(ctx)
		log := w.logger.With("job_id", id, "task_type", t.Type())
		start := w.now()

		defer func() {
			if r := recover(); r != nil {
				log.Error("job panicked", "panic", r)
				err = w.fail(ctx, id, fmt.Errorf("job panicked: %v", r))
			}
			if err != nil {
				log.Warn("job failed", "error", err, "duration", time.Since(start))
				return
			}
			log.Info("job succeeded", "duration", time.Since(start))
		}()

		log.Info("job started")
		return next.ProcessTask(ctx, t)
	})
}
