package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/calendar"
	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/query"
	"github.com/phrazzld/taskoverflow-api/internal/store"
	"github.com/phrazzld/taskoverflow-api/internal/task"
)

// JobQueue is the client side of a job queue.
type JobQueue interface {
	// Enqueue submits payload for taskType and returns the job id without
	// waiting for execution.
	Enqueue(ctx context.Context, taskType string, payload []byte) (string, error)

	// Status returns a point-in-time view of the job. Unknown ids report
	// domain.JobStatusUnknown rather than an error.
	Status(ctx context.Context, id string) (*domain.JobInfo, error)

	// Result returns the stored output of a successful job. ok is false for
	// every other state.
	Result(ctx context.Context, id string) (output string, ok bool, err error)
}

// CalendarDocument is a finished export.
type CalendarDocument struct {
	Body        string
	ContentType string
}

// ExportService runs calendar exports through the job queue.
type ExportService interface {
	// SubmitExport enqueues a calendar export of todos and returns the job id.
	SubmitExport(ctx context.Context, todos []domain.TodoSnapshot) (string, error)

	// SubmitFilteredExport snapshots the stored todos matching c and submits them.
	SubmitFilteredExport(ctx context.Context, c query.Criteria) (string, error)

	// ExportStatus reports the state of an export job.
	ExportStatus(ctx context.Context, jobID string) (*domain.JobInfo, error)

	// ExportResult returns the document of a successful export job,
	// or ErrJobNotReady.
	ExportResult(ctx context.Context, jobID string) (*CalendarDocument, error)
}

// ExportServiceError wraps errors from the export service with context.
type ExportServiceError struct {
	// Operation is the operation that failed (e.g., "submit_export")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ExportServiceError.
func (e *ExportServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("export service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ExportServiceError) Unwrap() error {
	return e.Err
}

// NewExportServiceError creates a new ExportServiceError.
// Service sentinels are returned unwrapped.
func NewExportServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrJobNotReady, ErrQueueUnavailable, ErrInvalidJobID} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return &ExportServiceError{Operation: operation, Message: message, Err: err}
}

type exportServiceImpl struct {
	queue  JobQueue
	todos  store.TodoStore
	now    func() time.Time
	logger *slog.Logger
}

// NewExportService creates an ExportService. todos may be nil when only
// SubmitExport is used.
func NewExportService(queue JobQueue, todos store.TodoStore, logger *slog.Logger) (ExportService, error) {
	if queue == nil {
		return nil, &ExportServiceError{
			Operation: "create_service",
			Message:   "queue cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &exportServiceImpl{
		queue:  queue,
		todos:  todos,
		now:    time.Now,
		logger: logger.With("component", "export_service"),
	}, nil
}

// SubmitExport copies the snapshots into the job payload before enqueueing,
// so later changes to the caller's slice or the store do not reach the job.
func (s *exportServiceImpl) SubmitExport(ctx context.Context, todos []domain.TodoSnapshot) (string, error) {
	snapshots := make([]domain.TodoSnapshot, len(todos))
	copy(snapshots, todos)

	payload, err := task.EncodeCalendarExportPayload(snapshots)
	if err != nil {
		return "", NewExportServiceError("submit_export", "failed to encode payload", err)
	}

	jobID, err := s.queue.Enqueue(ctx, task.TaskTypeCalendarExport, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue export", "error", err, "todo_count", len(snapshots))
		return "", &ExportServiceError{
			Operation: "submit_export",
			Message:   "failed to enqueue job",
			Err:       fmt.Errorf("%w: %w", ErrQueueUnavailable, err),
		}
	}

	s.logger.InfoContext(ctx, "export submitted", "job_id", jobID, "todo_count", len(snapshots))
	return jobID, nil
}

func (s *exportServiceImpl) SubmitFilteredExport(ctx context.Context, c query.Criteria) (string, error) {
	if s.todos == nil {
		return "", &ExportServiceError{Operation: "submit_filtered_export", Message: "no todo store configured"}
	}
	all, err := s.todos.List(ctx)
	if err != nil {
		return "", NewExportServiceError("submit_filtered_export", "failed to list todos", err)
	}
	selected := query.Filter(all, c, s.now().UTC())
	return s.SubmitExport(ctx, domain.SnapshotTodos(selected))
}

func (s *exportServiceImpl) ExportStatus(ctx context.Context, jobID string) (*domain.JobInfo, error) {
	if err := validateJobID(jobID); err != nil {
		return nil, err
	}
	info, err := s.queue.Status(ctx, jobID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read export status", "error", err, "job_id", jobID)
		return nil, &ExportServiceError{
			Operation: "export_status",
			Message:   "failed to read job status",
			Err:       fmt.Errorf("%w: %w", ErrQueueUnavailable, err),
		}
	}
	return info, nil
}

func (s *exportServiceImpl) ExportResult(ctx context.Context, jobID string) (*CalendarDocument, error) {
	info, err := s.ExportStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if info.Status != domain.JobStatusSuccess {
		return nil, ErrJobNotReady
	}

	output, ok, err := s.queue.Result(ctx, jobID)
	if err != nil {
		return nil, &ExportServiceError{
			Operation: "export_result",
			Message:   "failed to read job result",
			Err:       fmt.Errorf("%w: %w", ErrQueueUnavailable, err),
		}
	}
	if !ok {
		// succeeded but the stored output is gone (expired)
		s.logger.WarnContext(ctx, "export result unavailable", "job_id", jobID)
		return nil, ErrJobNotReady
	}

	return &CalendarDocument{Body: output, ContentType: calendar.ContentType}, nil
}

func validateJobID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidJobID
	}
	return nil
}
