package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/store"
)

// LocalQueue is the in-process job queue client. Jobs run on a TaskRunner and
// their state is read back from the runner's JobStore.
type LocalQueue struct {
	runner  *TaskRunner
	store   JobStore
	factory Factory
}

// NewLocalQueue wires a queue client to a runner and the store it writes to.
func NewLocalQueue(runner *TaskRunner, jobs JobStore, factory Factory) *LocalQueue {
	return &LocalQueue{runner: runner, store: jobs, factory: factory}
}

// Enqueue creates a job for payload and returns its id without waiting for execution.
func (q *LocalQueue) Enqueue(ctx context.Context, taskType string, payload []byte) (string, error) {
	id := uuid.NewString()

	task, err := q.factory.CreateTask(id, taskType, payload)
	if err != nil {
		return "", err
	}
	if err := q.runner.Submit(ctx, task); err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	return id, nil
}

// Status reports the job's current state. Unknown ids report domain.JobStatusUnknown.
func (q *LocalQueue) Status(ctx context.Context, id string) (*domain.JobInfo, error) {
	job, err := q.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &domain.JobInfo{ID: id, Status: domain.JobStatusUnknown}, nil
		}
		return nil, err
	}
	return job.Info(), nil
}

// Result returns the output of a successful job. ok is false for any other state.
func (q *LocalQueue) Result(ctx context.Context, id string) (string, bool, error) {
	job, err := q.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if job.Status != domain.JobStatusSuccess {
		return "", false, nil
	}
	return job.Output, true, nil
}
