package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/platform/logger"
	"github.com/phrazzld/taskoverflow-api/internal/store"
	"github.com/phrazzld/taskoverflow-api/internal/task"
)

const jobColumns = `id, type, payload, status, output, error_message, created_at, started_at, finished_at`

// PostgresJobStore implements task.JobStore on the jobs table.
// Each transition is a single conditional UPDATE, so the allowed-from check
// and the write happen atomically in the database.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ task.JobStore = (*PostgresJobStore)(nil)

// NewPostgresJobStore creates a job store.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Create implements task.JobStore.Create.
func (s *PostgresJobStore) Create(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if job.Status != domain.JobStatusPending {
		return store.NewStoreError("job", "create", "new jobs must be pending", store.ErrInvalidEntity)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`,
		job.ID,
		job.Type,
		job.Payload,
		job.Status.String(),
		job.CreatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("job_type", job.Type),
			slog.String("error", err.Error()))
		return store.NewStoreError("job", "create", "insert failed", MapError(err))
	}
	return nil
}

// Get implements task.JobStore.Get.
func (s *PostgresJobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, store.NewStoreError("job", "get", "query failed", MapError(err))
	}
	return job, nil
}

// MarkRunning implements task.JobStore.MarkRunning.
func (s *PostgresJobStore) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.transition(ctx, id, domain.JobStatusRunning, `
		UPDATE jobs
		SET status = 'RUNNING', started_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`, id, at.UTC())
}

// MarkSucceeded implements task.JobStore.MarkSucceeded.
func (s *PostgresJobStore) MarkSucceeded(ctx context.Context, id, output string, at time.Time) error {
	return s.transition(ctx, id, domain.JobStatusSuccess, `
		UPDATE jobs
		SET status = 'SUCCESS', output = $2, finished_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'RUNNING'
	`, id, output, at.UTC())
}

// MarkFailed implements task.JobStore.MarkFailed.
func (s *PostgresJobStore) MarkFailed(ctx context.Context, id, msg string, at time.Time) error {
	return s.transition(ctx, id, domain.JobStatusFailure, `
		UPDATE jobs
		SET status = 'FAILURE', error_message = $2, finished_at = $3, updated_at = $3
		WHERE id = $1 AND status IN ('PENDING', 'RUNNING')
	`, id, msg, at.UTC())
}

// ListByStatus implements task.JobStore.ListByStatus.
func (s *PostgresJobStore) ListByStatus(
	ctx context.Context,
	status domain.JobStatus,
	olderThan time.Duration,
) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 ORDER BY created_at ASC`
	args := []any{status.String()}
	if olderThan > 0 {
		query = `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 AND updated_at < $2 ORDER BY created_at ASC`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("job", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]*domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, store.NewStoreError("job", "list", "scan failed", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("job", "list", "iteration failed", err)
	}
	return jobs, nil
}

func (s *PostgresJobStore) transition(
	ctx context.Context,
	id string,
	to domain.JobStatus,
	query string,
	args ...any,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update job status",
			slog.String("job_id", id),
			slog.String("status", to.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("job", "update", "status update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, errNoTransition); err != nil {
		if !errors.Is(err, errNoTransition) {
			return err
		}
		// distinguish a missing job from one in the wrong state
		current, getErr := s.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidJobTransition, current.Status, to)
	}
	return nil
}

var errNoTransition = errors.New("no row transitioned")

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job      domain.Job
		status   string
		output   sql.NullString
		errMsg   sql.NullString
		started  sql.NullTime
		finished sql.NullTime
	)
	if err := row.Scan(
		&job.ID,
		&job.Type,
		&job.Payload,
		&status,
		&output,
		&errMsg,
		&job.CreatedAt,
		&started,
		&finished,
	); err != nil {
		return nil, err
	}

	parsed, err := domain.ParseJobStatus(status)
	if err != nil {
		return nil, err
	}
	job.Status = parsed
	job.Output = output.String
	job.Error = errMsg.String
	job.CreatedAt = job.CreatedAt.UTC()
	if started.Valid {
		t := started.Time.UTC()
		job.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time.UTC()
		job.FinishedAt = &t
	}
	return &job, nil
}
