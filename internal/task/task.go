package task

import (
	"context"
	"errors"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
)

// TaskTypeCalendarExport is the task type that renders todos as an iCalendar document.
const TaskTypeCalendarExport = "ical"

var (
	// ErrUnknownTaskType is returned by a Factory asked for a type it cannot build.
	ErrUnknownTaskType = errors.New("unknown task type")
	// ErrInvalidPayload is returned when a task payload cannot be decoded.
	ErrInvalidPayload = errors.New("invalid task payload")
)

// Task represents a unit of background work.
type Task interface {
	// ID returns the job id the task runs under.
	ID() string

	// Type returns the task type identifier.
	Type() string

	// Payload returns the serialized task input.
	Payload() []byte

	// Execute runs the task and returns its output.
	Execute(ctx context.Context) (string, error)
}

// Factory rebuilds an executable Task from its persisted form.
type Factory interface {
	CreateTask(id, taskType string, payload []byte) (Task, error)
}

// TaskQueueReader provides read-only access to the task channel.
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue.
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing.
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// JobStore persists jobs and enforces the status state machine.
// Transition methods return domain.ErrInvalidJobTransition for a disallowed
// move and store.ErrJobNotFound for an unknown id. A successful transition
// writes status and output (or error) together.
type JobStore interface {
	// Create stores a new pending job.
	Create(ctx context.Context, job *domain.Job) error

	// Get returns the current state of a job.
	Get(ctx context.Context, id string) (*domain.Job, error)

	// MarkRunning moves a pending job to running.
	MarkRunning(ctx context.Context, id string, at time.Time) error

	// MarkSucceeded stores the output and moves a running job to success.
	MarkSucceeded(ctx context.Context, id, output string, at time.Time) error

	// MarkFailed records the error and moves a pending or running job to failure.
	MarkFailed(ctx context.Context, id, msg string, at time.Time) error

	// ListByStatus returns jobs in a status. If olderThan is positive only jobs
	// whose last transition is older than that are returned.
	ListByStatus(ctx context.Context, status domain.JobStatus, olderThan time.Duration) ([]*domain.Job, error)
}
