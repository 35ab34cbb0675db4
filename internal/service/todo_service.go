package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/query"
	"github.com/phrazzld/taskoverflow-api/internal/store"
)

// TodoInput holds the fields of a new todo.
type TodoInput struct {
	Title       string
	Description string
	Completed   bool
	Deadline    *time.Time
}

// TodoPatch is a partial update. Nil fields are left unchanged. When
// DeadlineSet is true the deadline is replaced by Deadline, and a nil
// Deadline clears it.
type TodoPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	DeadlineSet bool
	Deadline    *time.Time
}

// TodoService manages todo records.
type TodoService interface {
	CreateTodo(ctx context.Context, input TodoInput) (*domain.Todo, error)
	GetTodo(ctx context.Context, id int64) (*domain.Todo, error)
	// ListTodos returns the todos matching c, newest first.
	ListTodos(ctx context.Context, c query.Criteria) ([]*domain.Todo, error)
	UpdateTodo(ctx context.Context, id int64, patch TodoPatch) (*domain.Todo, error)
	// DeleteTodo removes a todo and returns it.
	DeleteTodo(ctx context.Context, id int64) (*domain.Todo, error)
}

type todoServiceImpl struct {
	todos  store.TodoStore
	now    func() time.Time
	logger *slog.Logger
}

// NewTodoService creates a TodoService backed by todos.
func NewTodoService(todos store.TodoStore, logger *slog.Logger) (TodoService, error) {
	if todos == nil {
		return nil, errors.New("todo store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &todoServiceImpl{
		todos:  todos,
		now:    time.Now,
		logger: logger.With("component", "todo_service"),
	}, nil
}

func (s *todoServiceImpl) CreateTodo(ctx context.Context, input TodoInput) (*domain.Todo, error) {
	todo, err := domain.NewTodo(input.Title, input.Description, input.Completed, input.Deadline)
	if err != nil {
		return nil, err
	}
	if err := s.todos.Create(ctx, todo); err != nil {
		s.logger.ErrorContext(ctx, "failed to create todo", "error", err)
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	s.logger.InfoContext(ctx, "todo created", "todo_id", todo.ID)
	return todo, nil
}

func (s *todoServiceImpl) GetTodo(ctx context.Context, id int64) (*domain.Todo, error) {
	todo, err := s.todos.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to get todo")
	}
	return todo, nil
}

func (s *todoServiceImpl) ListTodos(ctx context.Context, c query.Criteria) ([]*domain.Todo, error) {
	all, err := s.todos.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return query.Filter(all, c, s.now().UTC()), nil
}

func (s *todoServiceImpl) UpdateTodo(ctx context.Context, id int64, patch TodoPatch) (*domain.Todo, error) {
	updated, err := s.todos.Update(ctx, id, func(todo *domain.Todo) error {
		if patch.Title != nil {
			todo.Title = *patch.Title
		}
		if patch.Description != nil {
			todo.Description = *patch.Description
		}
		if patch.Completed != nil {
			todo.Completed = *patch.Completed
		}
		if patch.DeadlineSet {
			todo.SetDeadline(patch.Deadline)
		}
		todo.UpdatedAt = s.now().UTC()
		return todo.Validate()
	})
	if err != nil {
		return nil, mapStoreError(err, "failed to update todo")
	}
	s.logger.InfoContext(ctx, "todo updated", "todo_id", id)
	return updated, nil
}

func (s *todoServiceImpl) DeleteTodo(ctx context.Context, id int64) (*domain.Todo, error) {
	deleted, err := s.todos.Delete(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to delete todo")
	}
	s.logger.InfoContext(ctx, "todo deleted", "todo_id", id)
	return deleted, nil
}

func mapStoreError(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrTodoNotFound
	}
	if errors.Is(err, domain.ErrValidation) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
