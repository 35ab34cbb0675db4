package redisq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
)

// ClientConfig controls how jobs are enqueued.
type ClientConfig struct {
	Queue string
	// JobTimeout bounds a single execution. Zero leaves asynq's default.
	JobTimeout time.Duration
	// Retention keeps completed tasks visible to the inspector.
	Retention time.Duration
}

// Client submits jobs to the broker and reports their state.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	results   *ResultBackend
	config    ClientConfig
	logger    *slog.Logger
}

// NewClient creates a queue client on the broker connection. Terminal states
// are read from results first; the broker is consulted for everything else.
func NewClient(broker asynq.RedisConnOpt, results *ResultBackend, config ClientConfig, logger *slog.Logger) *Client {
	if config.Queue == "" {
		config.Queue = DefaultQueue
	}
	return &Client{
		client:    asynq.NewClient(broker),
		inspector: asynq.NewInspector(broker),
		results:   results,
		config:    config,
		logger:    logger.With("component", "redisq_client", "queue", config.Queue),
	}
}

// Enqueue submits payload as a task of taskType and returns the job id.
// Failed jobs are never retried.
func (c *Client) Enqueue(ctx context.Context, taskType string, payload []byte) (string, error) {
	id := uuid.NewString()
	opts := []asynq.Option{
		asynq.TaskID(id),
		asynq.Queue(c.config.Queue),
		asynq.MaxRetry(0),
	}
	if c.config.JobTimeout > 0 {
		opts = append(opts, asynq.Timeout(c.config.JobTimeout))
	}
	if c.config.Retention > 0 {
		opts = append(opts, asynq.Retention(c.config.Retention))
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, payload), opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	c.logger.Debug("job enqueued", "job_id", info.ID, "task_type", taskType)
	return info.ID, nil
}

// Status reports the job's state. Ids the broker does not know report
// domain.JobStatusUnknown.
func (c *Client) Status(ctx context.Context, id string) (*domain.JobInfo, error) {
	res, ok, err := c.results.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		return &domain.JobInfo{ID: id, Status: res.Status, Error: res.Error}, nil
	}

	info, err := c.inspector.GetTaskInfo(c.config.Queue, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return &domain.JobInfo{ID: id, Status: domain.JobStatusUnknown}, nil
		}
		return nil, fmt.Errorf("failed to inspect job: %w", err)
	}

	status := mapTaskState(info.State)
	job := &domain.JobInfo{ID: id, Status: status}
	if status == domain.JobStatusFailure {
		job.Error = info.LastErr
	}
	return job, nil
}

// Result returns the stored output of a successful job.
func (c *Client) Result(ctx context.Context, id string) (string, bool, error) {
	res, ok, err := c.results.Load(ctx, id)
	if err != nil {
		return "", false, err
	}
	if !ok || res.Status != domain.JobStatusSuccess {
		return "", false, nil
	}
	return res.Output, true, nil
}

// Close releases broker connections.
func (c *Client) Close() error {
	return errors.Join(c.client.Close(), c.inspector.Close())
}

// mapTaskState translates broker task states into job statuses.
// A completed task whose result record expired still reports success; its
// output is gone and Result reports it as unavailable.
func mapTaskState(state asynq.TaskState) domain.JobStatus {
	switch state {
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateAggregating:
		return domain.JobStatusPending
	case asynq.TaskStateActive, asynq.TaskStateRetry:
		return domain.JobStatusRunning
	case asynq.TaskStateCompleted:
		return domain.JobStatusSuccess
	case asynq.TaskStateArchived:
		return domain.JobStatusFailure
	default:
		return domain.JobStatusUnknown
	}
}
