package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
)

// Failure messages recorded by the runner itself.
const (
	msgQueueRejected = "job could not be queued"
	msgInterrupted   = "job interrupted by a worker restart"
	msgStuck         = "job exceeded the maximum running time"
	msgTimedOut      = "job timed out"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// JobTimeout bounds a single execution. Zero means no limit.
	JobTimeout time.Duration

	// StuckJobAge defines how long a job may stay running before the
	// monitor fails it. Zero disables the monitor.
	StuckJobAge time.Duration

	// StuckJobCheckInterval defines how often to check for stuck jobs.
	// If zero, defaults to 5 minutes
	StuckJobCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:           2,
		QueueSize:             100,
		JobTimeout:            5 * time.Minute,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner manages background job processing.
type TaskRunner struct {
	store   JobStore
	factory Factory
	queue   *TaskQueue
	pool    *WorkerPool
	config  TaskRunnerConfig
	logger  *slog.Logger
	now     func() time.Time

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once

	errHandler func(task Task, err error)
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store JobStore, factory Factory, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckJobCheckInterval <= 0 {
		config.StuckJobCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		store:      store,
		factory:    factory,
		queue:      NewTaskQueue(config.QueueSize, logger),
		config:     config,
		logger:     logger,
		now:        time.Now,
		ctx:        ctx,
		cancelFunc: cancel,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.processTask, logger)
	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit persists task as a pending job and queues it without blocking.
// When the queue refuses the task the job is marked failed and the queue
// error (ErrQueueFull or ErrQueueClosed) is returned.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	job := domain.NewJob(task.ID(), task.Type(), task.Payload())
	if err := r.store.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		r.logger.Warn("queue rejected job",
			"job_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
		if failErr := r.store.MarkFailed(ctx, task.ID(), msgQueueRejected, r.now()); failErr != nil {
			r.logger.Error("failed to mark rejected job as failed",
				"job_id", task.ID(),
				"error", failErr)
		}
		return err
	}
	return nil
}

// Start recovers unfinished jobs, then starts the workers and the stuck-job monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	r.pool.Start()

	if r.config.StuckJobAge > 0 {
		r.wg.Add(1)
		go r.stuckJobMonitor()
	}
	return nil
}

// Stop closes the queue, waits for in-flight tasks and stops the monitor.
// Jobs still queued stay pending in the store and are picked up by Recover
// on the next start when the store is persistent.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.cancelFunc()
		r.queue.Close()
		r.pool.Stop()
		r.wg.Wait()
	})
}

// Recover re-queues pending jobs and fails jobs left running by a previous
// process. A running job is never put back to pending.
//
// The store is assumed to belong to this runner alone: every RUNNING job is
// treated as orphaned. Processes sharing a job store must use the redis backend.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.ListByStatus(ctx, domain.JobStatusPending, 0)
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}

	running, err := r.store.ListByStatus(ctx, domain.JobStatusRunning, 0)
	if err != nil {
		return fmt.Errorf("failed to list running jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"running_count", len(running))

	for _, job := range running {
		r.fail(ctx, job.ID, msgInterrupted)
	}

	for _, job := range pending {
		task, err := r.factory.CreateTask(job.ID, job.Type, job.Payload)
		if err != nil {
			r.logger.Error("cannot rebuild pending job", "job_id", job.ID, "error", err)
			r.fail(ctx, job.ID, err.Error())
			continue
		}
		if err := r.queue.Enqueue(task); err != nil {
			r.logger.Error("failed to requeue pending job", "job_id", job.ID, "error", err)
			r.fail(ctx, job.ID, msgQueueRejected)
		}
	}

	return nil
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(task Task, workerID int) {
	// executions are not tied to the runner context so shutdown lets them finish
	ctx := context.Background()
	logger := r.logger.With(
		"job_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.MarkRunning(ctx, task.ID(), r.now()); err != nil {
		// typically already failed by the stuck monitor or a recovery pass
		logger.Warn("job not started", "error", err)
		return
	}

	logger.Info("processing job")

	execCtx := ctx
	if r.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.config.JobTimeout)
		defer cancel()
	}

	output, err := execute(execCtx, task)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = msgTimedOut
		}
		logger.Error("job failed", "error", err)
		if updateErr := r.store.MarkFailed(ctx, task.ID(), msg, r.now()); updateErr != nil {
			logger.Error("failed to mark job as failed", "error", updateErr)
		}
		r.errHandler(task, err)
		return
	}

	if updateErr := r.store.MarkSucceeded(ctx, task.ID(), output, r.now()); updateErr != nil {
		logger.Error("failed to mark job as succeeded", "error", updateErr)
		return
	}
	logger.Info("job completed successfully", "output_bytes", len(output))
}

// execute runs the task, turning a panic into an error.
func execute(ctx context.Context, task Task) (output string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.Execute(ctx)
}

func (r *TaskRunner) fail(ctx context.Context, id, msg string) {
	if err := r.store.MarkFailed(ctx, id, msg, r.now()); err != nil {
		r.logger.Error("failed to mark job as failed", "job_id", id, "error", err)
	}
}

// stuckJobMonitor periodically fails jobs that have been running for too long.
func (r *TaskRunner) stuckJobMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.failStuckJobs(r.ctx)
		}
	}
}

func (r *TaskRunner) failStuckJobs(ctx context.Context) {
	stuck, err := r.store.ListByStatus(ctx, domain.JobStatusRunning, r.config.StuckJobAge)
	if err != nil {
		r.logger.Error("failed to check for stuck jobs", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.Warn("found stuck jobs", "count", len(stuck))
	for _, job := range stuck {
		r.fail(ctx, job.ID, msgStuck)
	}
}
