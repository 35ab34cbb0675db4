package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/calendar"
	"github.com/phrazzld/taskoverflow-api/internal/domain"
)

// CalendarExportPayload is the serialized input of a calendar export job.
type CalendarExportPayload struct {
	Todos []domain.TodoSnapshot `json:"todos"`
}

// EncodeCalendarExportPayload serializes the snapshots for a calendar export job.
func EncodeCalendarExportPayload(todos []domain.TodoSnapshot) ([]byte, error) {
	if todos == nil {
		todos = []domain.TodoSnapshot{}
	}
	data, err := json.Marshal(CalendarExportPayload{Todos: todos})
	if err != nil {
		return nil, fmt.Errorf("failed to encode calendar export payload: %w", err)
	}
	return data, nil
}

// DecodeCalendarExportPayload is the inverse of EncodeCalendarExportPayload.
func DecodeCalendarExportPayload(data []byte) (CalendarExportPayload, error) {
	var p CalendarExportPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return CalendarExportPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, nil
}

// CalendarExportTask renders a todo snapshot list as an iCalendar document.
type CalendarExportTask struct {
	id      string
	payload []byte
	delay   time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewCalendarExportTask creates a calendar export task for job id.
// delay is an artificial latency applied before rendering.
func NewCalendarExportTask(id string, payload []byte, delay time.Duration, logger *slog.Logger) *CalendarExportTask {
	p := make([]byte, len(payload))
	copy(p, payload)
	return &CalendarExportTask{
		id:      id,
		payload: p,
		delay:   delay,
		now:     time.Now,
		logger:  logger.With("task_type", TaskTypeCalendarExport, "job_id", id),
	}
}

// ID returns the job id.
func (t *CalendarExportTask) ID() string {
	return t.id
}

// Type returns TaskTypeCalendarExport.
func (t *CalendarExportTask) Type() string {
	return TaskTypeCalendarExport
}

// Payload returns the serialized snapshot list.
func (t *CalendarExportTask) Payload() []byte {
	return t.payload
}

// Execute decodes the payload, waits out the configured delay and renders the
// calendar. A malformed deadline fails the task with domain.ErrInvalidDeadline.
func (t *CalendarExportTask) Execute(ctx context.Context) (string, error) {
	p, err := DecodeCalendarExportPayload(t.payload)
	if err != nil {
		return "", err
	}

	t.logger.Info("starting calendar export", "todo_count", len(p.Todos))

	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("calendar export cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	doc, err := calendar.Build(p.Todos, t.now())
	if err != nil {
		return "", fmt.Errorf("failed to build calendar: %w", err)
	}

	t.logger.Info("calendar export finished", "event_count", len(p.Todos))
	return doc, nil
}

// CalendarExportTaskFactory builds CalendarExportTask instances.
type CalendarExportTaskFactory struct {
	delay  time.Duration
	logger *slog.Logger
}

var _ Factory = (*CalendarExportTaskFactory)(nil)

// NewCalendarExportTaskFactory creates a factory whose tasks wait delay before rendering.
func NewCalendarExportTaskFactory(delay time.Duration, logger *slog.Logger) *CalendarExportTaskFactory {
	return &CalendarExportTaskFactory{
		delay:  delay,
		logger: logger.With("component", "calendar_export_task_factory"),
	}
}

// CreateTask implements Factory. Only TaskTypeCalendarExport is supported.
func (f *CalendarExportTaskFactory) CreateTask(id, taskType string, payload []byte) (Task, error) {
	if taskType != TaskTypeCalendarExport {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}
	return NewCalendarExportTask(id, payload, f.delay, f.logger), nil
}
