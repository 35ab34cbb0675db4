package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/store"
)

// JobStore keeps jobs in a map. Every transition runs under the store lock, so
// a reader sees either the previous state or the complete new one.
type JobStore struct {
	mu     sync.RWMutex
	jobs   map[string]*domain.Job
	logger *slog.Logger
}

// NewJobStore creates an empty job store.
func NewJobStore(logger *slog.Logger) *JobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobStore{
		jobs:   make(map[string]*domain.Job),
		logger: logger.With(slog.String("component", "memory_job_store")),
	}
}

// Create stores a new job. The job must be pending.
func (s *JobStore) Create(_ context.Context, job *domain.Job) error {
	if job.ID == "" {
		return store.NewStoreError("job", "create", "job id is empty", store.ErrInvalidEntity)
	}
	if job.Status != domain.JobStatusPending {
		return store.NewStoreError("job", "create", "new jobs must be pending", store.ErrInvalidEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return store.NewStoreError("job", "create", "job already exists", store.ErrDuplicate)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a copy of the job.
func (s *JobStore) Get(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return job.Clone(), nil
}

// MarkRunning moves a pending job to running.
func (s *JobStore) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.apply(ctx, id, func(j *domain.Job) error { return j.Start(at) })
}

// MarkSucceeded stores the output and moves a running job to success.
func (s *JobStore) MarkSucceeded(ctx context.Context, id, output string, at time.Time) error {
	return s.apply(ctx, id, func(j *domain.Job) error { return j.Succeed(output, at) })
}

// MarkFailed records msg and moves a pending or running job to failure.
func (s *JobStore) MarkFailed(ctx context.Context, id, msg string, at time.Time) error {
	return s.apply(ctx, id, func(j *domain.Job) error { return j.Fail(msg, at) })
}

// ListByStatus returns jobs in the given status, oldest first. With a positive
// olderThan only jobs whose last transition happened longer ago are returned.
func (s *JobStore) ListByStatus(
	_ context.Context,
	status domain.JobStatus,
	olderThan time.Duration,
) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-olderThan)
	jobs := make([]*domain.Job, 0)
	for _, j := range s.jobs {
		if j.Status != status {
			continue
		}
		if olderThan > 0 && !lastTransition(j).Before(cutoff) {
			continue
		}
		jobs = append(jobs, j.Clone())
	}

	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.Before(jobs[b].CreatedAt) })
	return jobs, nil
}

func (s *JobStore) apply(ctx context.Context, id string, fn func(*domain.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}

	// work on a copy so a rejected transition leaves nothing half-written
	next := current.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.jobs[id] = next

	s.logger.DebugContext(ctx, "job status changed",
		slog.String("job_id", id),
		slog.String("from", current.Status.String()),
		slog.String("to", next.Status.String()))
	return nil
}

func lastTransition(j *domain.Job) time.Time {
	switch {
	case j.FinishedAt != nil:
		return *j.FinishedAt
	case j.StartedAt != nil:
		return *j.StartedAt
	default:
		return j.CreatedAt
	}
}
