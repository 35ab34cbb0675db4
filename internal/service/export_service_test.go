package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskoverflow-api/internal/calendar"
	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/platform/memory"
	"github.com/phrazzld/taskoverflow-api/internal/query"
	"github.com/phrazzld/taskoverflow-api/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newExportService(t *testing.T, queue JobQueue) ExportService {
	t.Helper()
	svc, err := NewExportService(queue, memory.NewTodoStore(testLogger()), testLogger())
	require.NoError(t, err)
	return svc
}

func TestNewExportService_NilQueue(t *testing.T) {
	_, err := NewExportService(nil, nil, nil)
	require.Error(t, err)
	var svcErr *ExportServiceError
	assert.ErrorAs(t, err, &svcErr)
}

func TestSubmitExport(t *testing.T) {
	t.Run("encodes snapshots and returns the job id", func(t *testing.T) {
		queue := new(MockJobQueue)
		var captured []byte
		queue.On("Enqueue", mock.Anything, task.TaskTypeCalendarExport, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(2).([]byte) }).
			Return("job-1", nil)

		svc := newExportService(t, queue)
		todos := []domain.TodoSnapshot{{ID: 7, Title: "Pay rent", DeadlineAt: "2030-05-01T00:00:00"}}

		id, err := svc.SubmitExport(context.Background(), todos)
		require.NoError(t, err)
		assert.Equal(t, "job-1", id)

		todos[0].Title = "changed after submit"
		p, err := task.DecodeCalendarExportPayload(captured)
		require.NoError(t, err)
		require.Len(t, p.Todos, 1)
		assert.Equal(t, "Pay rent", p.Todos[0].Title)
		queue.AssertExpectations(t)
	})

	t.Run("empty input still submits", func(t *testing.T) {
		queue := new(MockJobQueue)
		queue.On("Enqueue", mock.Anything, task.TaskTypeCalendarExport, []byte(`{"todos":[]}`)).Return("job-2", nil)

		id, err := newExportService(t, queue).SubmitExport(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "job-2", id)
	})

	t.Run("queue failure is a transport error", func(t *testing.T) {
		queue := new(MockJobQueue)
		queue.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

		id, err := newExportService(t, queue).SubmitExport(context.Background(), nil)
		assert.Empty(t, id)
		assert.ErrorIs(t, err, ErrQueueUnavailable)
	})

	t.Run("full local queue is a transport error", func(t *testing.T) {
		queue := new(MockJobQueue)
		queue.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return("", task.ErrQueueFull)

		_, err := newExportService(t, queue).SubmitExport(context.Background(), nil)
		assert.ErrorIs(t, err, ErrQueueUnavailable)
		assert.ErrorIs(t, err, task.ErrQueueFull)
	})
}

func TestSubmitFilteredExport(t *testing.T) {
	todos := memory.NewTodoStore(testLogger())
	ctx := context.Background()

	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(30 * 24 * time.Hour)
	for _, in := range []struct {
		title     string
		completed bool
		deadline  *time.Time
	}{
		{"soon", false, &soon},
		{"later", false, &later},
		{"done", true, &soon},
		{"no deadline", false, nil},
	} {
		todo, err := domain.NewTodo(in.title, "", in.completed, in.deadline)
		require.NoError(t, err)
		require.NoError(t, todos.Create(ctx, todo))
	}

	queue := new(MockJobQueue)
	var captured []byte
	queue.On("Enqueue", mock.Anything, task.TaskTypeCalendarExport, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).([]byte) }).
		Return("job-3", nil)

	svc, err := NewExportService(queue, todos, testLogger())
	require.NoError(t, err)

	completed := false
	window := 7
	id, err := svc.SubmitFilteredExport(ctx, query.Criteria{Completed: &completed, WindowDays: &window})
	require.NoError(t, err)
	assert.Equal(t, "job-3", id)

	p, err := task.DecodeCalendarExportPayload(captured)
	require.NoError(t, err)
	require.Len(t, p.Todos, 1)
	assert.Equal(t, "soon", p.Todos[0].Title)
}

func TestExportStatus(t *testing.T) {
	t.Run("empty id is rejected without calling the queue", func(t *testing.T) {
		queue := new(MockJobQueue)
		_, err := newExportService(t, queue).ExportStatus(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrInvalidJobID)
		queue.AssertNotCalled(t, "Status", mock.Anything, mock.Anything)
	})

	t.Run("unknown id is not an error", func(t *testing.T) {
		queue := new(MockJobQueue)
		queue.On("Status", mock.Anything, "nope").Return(&domain.JobInfo{ID: "nope", Status: domain.JobStatusUnknown}, nil)

		info, err := newExportService(t, queue).ExportStatus(context.Background(), "nope")
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusUnknown, info.Status)
	})

	t.Run("queue failure is a transport error", func(t *testing.T) {
		queue := new(MockJobQueue)
		queue.On("Status", mock.Anything, "job").Return(nil, errors.New("i/o timeout"))

		_, err := newExportService(t, queue).ExportStatus(context.Background(), "job")
		assert.ErrorIs(t, err, ErrQueueUnavailable)
	})
}

func TestExportResult(t *testing.T) {
	for _, status := range []domain.JobStatus{
		domain.JobStatusUnknown,
		domain.JobStatusPending,
		domain.JobStatusRunning,
		domain.JobStatusFailure,
	} {
		t.Run(status.String()+" is not ready", func(t *testing.T) {
			queue := new(MockJobQueue)
			queue.On("Status", mock.Anything, "job").Return(&domain.JobInfo{ID: "job", Status: status}, nil)

			doc, err := newExportService(t, queue).ExportResult(context.Background(), "job")
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, ErrJobNotReady)
			queue.AssertNotCalled(t, "Result", mock.Anything, mock.Anything)
		})
	}

	t.Run("success returns the stored output verbatim", func(t *testing.T) {
		body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"
		queue := new(MockJobQueue)
		queue.On("Status", mock.Anything, "job").Return(&domain.JobInfo{ID: "job", Status: domain.JobStatusSuccess}, nil)
		queue.On("Result", mock.Anything, "job").Return(body, true, nil)

		doc, err := newExportService(t, queue).ExportResult(context.Background(), "job")
		require.NoError(t, err)
		assert.Equal(t, body, doc.Body)
		assert.Equal(t, "text/calendar; charset=utf-8", doc.ContentType)
	})

	t.Run("expired output is not ready", func(t *testing.T) {
		queue := new(MockJobQueue)
		queue.On("Status", mock.Anything, "job").Return(&domain.JobInfo{ID: "job", Status: domain.JobStatusSuccess}, nil)
		queue.On("Result", mock.Anything, "job").Return("", false, nil)

		_, err := newExportService(t, queue).ExportResult(context.Background(), "job")
		assert.ErrorIs(t, err, ErrJobNotReady)
	})
}

// newLocalQueue starts a one-worker runner whose exports wait delay before rendering.
func newLocalQueue(t *testing.T, delay time.Duration) *task.LocalQueue {
	t.Helper()
	jobs := memory.NewJobStore(testLogger())
	factory := task.NewCalendarExportTaskFactory(delay, testLogger())
	cfg := task.DefaultTaskRunnerConfig()
	cfg.WorkerCount = 1
	runner := task.NewTaskRunner(jobs, factory, cfg, testLogger())
	require.NoError(t, runner.Start())
	t.Cleanup(runner.Stop)
	return task.NewLocalQueue(runner, jobs, factory)
}

// TestExportLifecycle_LocalQueue drives a real runner end to end.
func TestExportLifecycle_LocalQueue(t *testing.T) {
	svc := newExportService(t, newLocalQueue(t, 0))
	ctx := context.Background()

	id, err := svc.SubmitExport(ctx, []domain.TodoSnapshot{{ID: 1, Title: "Ship it", DeadlineAt: "2030-01-01T12:00:00"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, err := svc.ExportStatus(ctx, id)
		return err == nil && info.Status == domain.JobStatusSuccess
	}, 5*time.Second, 10*time.Millisecond)

	doc, err := svc.ExportResult(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, doc.Body, "SUMMARY:Ship it")
	assert.Contains(t, doc.Body, "PRODID:-//Taskoverflow Calendar//mxm.dk//")
}

func TestSubmitExport_DoesNotWaitForGeneration(t *testing.T) {
	const delay = 2 * time.Second
	svc := newExportService(t, newLocalQueue(t, delay))
	ctx := context.Background()

	started := time.Now()
	id, err := svc.SubmitExport(ctx, []domain.TodoSnapshot{{ID: 1, Title: "Slow one"}})
	elapsed := time.Since(started)
	require.NoError(t, err)
	assert.Less(t, elapsed, delay/4)

	info, err := svc.ExportStatus(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, []domain.JobStatus{domain.JobStatusPending, domain.JobStatusRunning}, info.Status)

	_, err = svc.ExportResult(ctx, id)
	assert.ErrorIs(t, err, ErrJobNotReady)
}

func TestSubmitFilteredExport_LaterEditsDoNotChangeQueuedJob(t *testing.T) {
	todos := memory.NewTodoStore(testLogger())
	ctx := context.Background()

	deadline := time.Now().Add(48 * time.Hour)
	var created []*domain.Todo
	for _, title := range []string{"Renew passport", "Call plumber", "Water plants"} {
		todo, err := domain.NewTodo(title, "", false, &deadline)
		require.NoError(t, err)
		require.NoError(t, todos.Create(ctx, todo))
		created = append(created, todo)
	}

	before, err := todos.List(ctx)
	require.NoError(t, err)
	require.Len(t, before, 3)

	svc, err := NewExportService(newLocalQueue(t, 500*time.Millisecond), todos, testLogger())
	require.NoError(t, err)

	id, err := svc.SubmitFilteredExport(ctx, query.Criteria{})
	require.NoError(t, err)

	info, err := svc.ExportStatus(ctx, id)
	require.NoError(t, err)
	require.False(t, info.Status.IsTerminal())

	_, err = todos.Update(ctx, created[0].ID, func(todo *domain.Todo) error {
		todo.Title = "Renamed after submit"
		return nil
	})
	require.NoError(t, err)
	_, err = todos.Delete(ctx, created[1].ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, err := svc.ExportStatus(ctx, id)
		return err == nil && info.Status == domain.JobStatusSuccess
	}, 5*time.Second, 20*time.Millisecond)

	doc, err := svc.ExportResult(ctx, id)
	require.NoError(t, err)
	events, err := calendar.Parse(doc.Body)
	require.NoError(t, err)
	require.Len(t, events, len(before))
	for i, want := range before {
		assert.Equal(t, want.Snapshot().UID(), events[i].UID)
		assert.Equal(t, want.Title, events[i].Summary)
	}
}
