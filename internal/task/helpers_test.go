package task

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockTask implements the Task interface for testing
type mockTask struct {
	id       string
	taskType string
	payload  []byte
	execFn   func(ctx context.Context) (string, error)
}

func (m *mockTask) ID() string      { return m.id }
func (m *mockTask) Type() string    { return m.taskType }
func (m *mockTask) Payload() []byte { return m.payload }

func (m *mockTask) Execute(ctx context.Context) (string, error) {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return "done", nil
}

func newMockTask() *mockTask {
	return &mockTask{
		id:       uuid.NewString(),
		taskType: "mock",
		payload:  []byte("test payload"),
	}
}

// mockFactory rebuilds mock tasks, delegating execution to execFn.
type mockFactory struct {
	execFn  func(ctx context.Context) (string, error)
	created atomic.Int32
}

func (f *mockFactory) CreateTask(id, taskType string, payload []byte) (Task, error) {
	f.created.Add(1)
	return &mockTask{id: id, taskType: taskType, payload: payload, execFn: f.execFn}, nil
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
