package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/platform/logger"
	"github.com/phrazzld/taskoverflow-api/internal/store"
)

const todoColumns = `id, title, description, completed, deadline_at, created_at, updated_at`

// PostgresTodoStore implements store.TodoStore on the todos table.
type PostgresTodoStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.TodoStore = (*PostgresTodoStore)(nil)

// NewPostgresTodoStore creates a todo store. If logger is nil, slog.Default is used.
func NewPostgresTodoStore(db *sql.DB, logger *slog.Logger) *PostgresTodoStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTodoStore{
		db:     db,
		logger: logger.With(slog.String("component", "todo_store")),
	}
}

// Create implements store.TodoStore.Create. The ID comes from the BIGSERIAL sequence.
func (s *PostgresTodoStore) Create(ctx context.Context, todo *domain.Todo) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := todo.Validate(); err != nil {
		log.Warn("todo validation failed during create", slog.String("error", err.Error()))
		return store.NewStoreError("todo", "create", "validation failed", err)
	}

	query := `
		INSERT INTO todos (title, description, completed, deadline_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		todo.Title,
		todo.Description,
		todo.Completed,
		nullTime(todo.DeadlineAt),
		todo.CreatedAt.UTC(),
		todo.UpdatedAt.UTC(),
	).Scan(&todo.ID)
	if err != nil {
		log.Error("failed to create todo", slog.String("error", err.Error()))
		return store.NewStoreError("todo", "create", "insert failed", MapError(err))
	}

	log.Debug("todo created", slog.Int64("todo_id", todo.ID))
	return nil
}

// GetByID implements store.TodoStore.GetByID.
func (s *PostgresTodoStore) GetByID(ctx context.Context, id int64) (*domain.Todo, error) {
	todo, err := scanTodo(s.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTodoNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get todo",
			slog.Int64("todo_id", id),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("todo", "get", "query failed", MapError(err))
	}
	return todo, nil
}

// Update implements store.TodoStore.Update. The row is locked for the
// duration of fn so concurrent updates apply one after the other.
func (s *PostgresTodoStore) Update(ctx context.Context, id int64, fn store.TodoMutator) (*domain.Todo, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Todo
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		current, err := scanTodo(tx.QueryRowContext(ctx,
			`SELECT `+todoColumns+` FROM todos WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrTodoNotFound
			}
			return store.NewStoreError("todo", "update", "select failed", MapError(err))
		}

		working := *current
		if err := fn(&working); err != nil {
			return err
		}
		if err := working.Validate(); err != nil {
			return store.NewStoreError("todo", "update", "validation failed", err)
		}
		working.ID = current.ID
		working.CreatedAt = current.CreatedAt
		working.UpdatedAt = time.Now().UTC()

		result, err := tx.ExecContext(ctx, `
			UPDATE todos
			SET title = $1, description = $2, completed = $3, deadline_at = $4, updated_at = $5
			WHERE id = $6
		`,
			working.Title,
			working.Description,
			working.Completed,
			nullTime(working.DeadlineAt),
			working.UpdatedAt,
			id,
		)
		if err != nil {
			return store.NewStoreError("todo", "update", "update failed", MapError(err))
		}
		if err := CheckRowsAffected(result, store.ErrTodoNotFound); err != nil {
			return err
		}

		updated = &working
		return nil
	})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("todo update failed", slog.Int64("todo_id", id), slog.String("error", err.Error()))
		}
		return nil, err
	}

	log.Debug("todo updated", slog.Int64("todo_id", id))
	return updated, nil
}

// Delete implements store.TodoStore.Delete.
func (s *PostgresTodoStore) Delete(ctx context.Context, id int64) (*domain.Todo, error) {
	todo, err := scanTodo(s.db.QueryRowContext(ctx,
		`DELETE FROM todos WHERE id = $1 RETURNING `+todoColumns, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTodoNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete todo",
			slog.Int64("todo_id", id),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("todo", "delete", "delete failed", MapError(err))
	}
	return todo, nil
}

// List implements store.TodoStore.List.
func (s *PostgresTodoStore) List(ctx context.Context) ([]*domain.Todo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, store.NewStoreError("todo", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	todos := make([]*domain.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, store.NewStoreError("todo", "list", "scan failed", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("todo", "list", "iteration failed", err)
	}
	return todos, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*domain.Todo, error) {
	var (
		todo     domain.Todo
		deadline sql.NullTime
	)
	if err := row.Scan(
		&todo.ID,
		&todo.Title,
		&todo.Description,
		&todo.Completed,
		&deadline,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if deadline.Valid {
		d := deadline.Time.UTC()
		todo.DeadlineAt = &d
	}
	todo.CreatedAt = todo.CreatedAt.UTC()
	todo.UpdatedAt = todo.UpdatedAt.UTC()
	return &todo, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
