package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/platform/memory"
)

func newTestRunner(t *testing.T, factory Factory, mutate func(*TaskRunnerConfig)) (*TaskRunner, *memory.JobStore) {
	t.Helper()

	jobs := memory.NewJobStore(setupTestLogger())
	config := DefaultTaskRunnerConfig()
	config.QueueSize = 10
	if mutate != nil {
		mutate(&config)
	}
	return NewTaskRunner(jobs, factory, config, setupTestLogger()), jobs
}

func jobStatus(t *testing.T, jobs JobStore, id string) domain.JobStatus {
	t.Helper()
	job, err := jobs.Get(context.Background(), id)
	require.NoError(t, err)
	return job.Status
}

func TestTaskRunner_Submit(t *testing.T) {
	t.Parallel()

	t.Run("persists pending job", func(t *testing.T) {
		t.Parallel()
		runner, jobs := newTestRunner(t, &mockFactory{}, nil)

		task := newMockTask()
		require.NoError(t, runner.Submit(context.Background(), task))
		assert.Equal(t, domain.JobStatusPending, jobStatus(t, jobs, task.ID()))
	})

	t.Run("queue full fails the job", func(t *testing.T) {
		t.Parallel()
		runner, jobs := newTestRunner(t, &mockFactory{}, func(c *TaskRunnerConfig) { c.QueueSize = 1 })

		task1 := newMockTask()
		require.NoError(t, runner.Submit(context.Background(), task1))

		task2 := newMockTask()
		err := runner.Submit(context.Background(), task2)
		assert.ErrorIs(t, err, ErrQueueFull)

		job, err := jobs.Get(context.Background(), task2.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailure, job.Status)
		assert.Equal(t, msgQueueRejected, job.Error)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		runner, jobs := newTestRunner(t, &mockFactory{}, nil)

		task := newMockTask()
		require.NoError(t, jobs.Create(context.Background(), domain.NewJob(task.ID(), "mock", nil)))

		err := runner.Submit(context.Background(), task)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save job")
	})

	t.Run("submit after stop", func(t *testing.T) {
		t.Parallel()
		runner, jobs := newTestRunner(t, &mockFactory{}, nil)
		require.NoError(t, runner.Start())
		runner.Stop()

		task := newMockTask()
		assert.ErrorIs(t, runner.Submit(context.Background(), task), ErrQueueClosed)
		assert.Equal(t, domain.JobStatusFailure, jobStatus(t, jobs, task.ID()))
	})
}

func TestTaskRunner_ProcessesJobs(t *testing.T) {
	t.Parallel()

	runner, jobs := newTestRunner(t, &mockFactory{}, nil)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	ok := newMockTask()
	ok.execFn = func(context.Context) (string, error) { return "BEGIN:VCALENDAR", nil }

	failing := newMockTask()
	failing.execFn = func(context.Context) (string, error) { return "", errors.New("render failed") }

	panicking := newMockTask()
	panicking.execFn = func(context.Context) (string, error) { panic("boom") }

	for _, task := range []*mockTask{ok, failing, panicking} {
		require.NoError(t, runner.Submit(context.Background(), task))
	}

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return jobStatus(t, jobs, ok.ID()).IsTerminal() &&
			jobStatus(t, jobs, failing.ID()).IsTerminal() &&
			jobStatus(t, jobs, panicking.ID()).IsTerminal()
	}))

	job, err := jobs.Get(context.Background(), ok.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSuccess, job.Status)
	assert.Equal(t, "BEGIN:VCALENDAR", job.Output)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.FinishedAt)

	job, err = jobs.Get(context.Background(), failing.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailure, job.Status)
	assert.Equal(t, "render failed", job.Error)
	assert.Empty(t, job.Output)

	job, err = jobs.Get(context.Background(), panicking.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailure, job.Status)
	assert.Contains(t, job.Error, "panicked")
}

func TestTaskRunner_ErrorHandler(t *testing.T) {
	t.Parallel()

	runner, _ := newTestRunner(t, &mockFactory{}, nil)
	handled := make(chan error, 1)
	runner.SetErrorHandler(func(_ Task, err error) { handled <- err })
	require.NoError(t, runner.Start())
	defer runner.Stop()

	expected := errors.New("test error")
	task := newMockTask()
	task.execFn = func(context.Context) (string, error) { return "", expected }
	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case err := <-handled:
		assert.ErrorIs(t, err, expected)
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for error handler")
	}
}

func TestTaskRunner_JobTimeout(t *testing.T) {
	t.Parallel()

	runner, jobs := newTestRunner(t, &mockFactory{}, func(c *TaskRunnerConfig) {
		c.JobTimeout = 20 * time.Millisecond
	})
	require.NoError(t, runner.Start())
	defer runner.Stop()

	task := newMockTask()
	task.execFn = func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	require.NoError(t, runner.Submit(context.Background(), task))

	require.True(t, waitFor(t, time.Second, func() bool {
		return jobStatus(t, jobs, task.ID()) == domain.JobStatusFailure
	}))
	job, err := jobs.Get(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, msgTimedOut, job.Error)
}

func TestTaskRunner_Recover(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	factory := &mockFactory{execFn: func(context.Context) (string, error) { return "recovered", nil }}
	runner, jobs := newTestRunner(t, factory, nil)

	// leftovers from a previous process
	require.NoError(t, jobs.Create(ctx, domain.NewJob("pending-1", "mock", []byte("p"))))
	require.NoError(t, jobs.Create(ctx, domain.NewJob("running-1", "mock", []byte("r"))))
	require.NoError(t, jobs.MarkRunning(ctx, "running-1", time.Now()))

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return jobStatus(t, jobs, "pending-1") == domain.JobStatusSuccess
	}))

	job, err := jobs.Get(ctx, "running-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailure, job.Status, "orphaned running jobs are failed, never reset")
	assert.Equal(t, msgInterrupted, job.Error)
	assert.Equal(t, int32(1), factory.created.Load())
}

func TestTaskRunner_StuckJobMonitor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	runner, jobs := newTestRunner(t, &mockFactory{}, func(c *TaskRunnerConfig) {
		c.StuckJobAge = time.Minute
		c.StuckJobCheckInterval = 10 * time.Millisecond
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	// a job that has been running for an hour on some other worker
	require.NoError(t, jobs.Create(ctx, domain.NewJob("stuck", "mock", nil)))
	require.NoError(t, jobs.MarkRunning(ctx, "stuck", time.Now().Add(-time.Hour)))
	require.NoError(t, jobs.Create(ctx, domain.NewJob("fresh", "mock", nil)))
	require.NoError(t, jobs.MarkRunning(ctx, "fresh", time.Now()))

	require.True(t, waitFor(t, time.Second, func() bool {
		return jobStatus(t, jobs, "stuck") == domain.JobStatusFailure
	}))
	assert.Equal(t, domain.JobStatusRunning, jobStatus(t, jobs, "fresh"))
}

func TestTaskRunner_StatusIsMonotonic(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	runner, jobs := newTestRunner(t, &mockFactory{}, nil)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	task := newMockTask()
	task.execFn = func(context.Context) (string, error) {
		<-release
		return "out", nil
	}
	require.NoError(t, runner.Submit(context.Background(), task))

	var maxRank atomic.Int32
	observe := func() domain.JobStatus {
		s := jobStatus(t, jobs, task.ID())
		rank := int32(s.Rank())
		assert.GreaterOrEqual(t, rank, maxRank.Load(), "status went backwards to %s", s)
		if rank > maxRank.Load() {
			maxRank.Store(rank)
		}
		return s
	}

	require.True(t, waitFor(t, time.Second, func() bool { return observe() == domain.JobStatusRunning }))
	close(release)
	require.True(t, waitFor(t, time.Second, func() bool { return observe() == domain.JobStatusSuccess }))
}
