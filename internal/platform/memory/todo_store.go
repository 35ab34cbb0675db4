// Package memory provides in-process implementations of the store interfaces.
// Records are kept as private copies; callers never share memory with the store.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/store"
)

// TodoStore is a mutex-guarded map implementation of store.TodoStore.
type TodoStore struct {
	mu     sync.RWMutex
	todos  map[int64]*domain.Todo
	nextID int64
	logger *slog.Logger
}

var _ store.TodoStore = (*TodoStore)(nil)

// NewTodoStore creates an empty store.
func NewTodoStore(logger *slog.Logger) *TodoStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TodoStore{
		todos:  make(map[int64]*domain.Todo),
		logger: logger.With(slog.String("component", "memory_todo_store")),
	}
}

// Create implements store.TodoStore.
func (s *TodoStore) Create(ctx context.Context, todo *domain.Todo) error {
	if err := todo.Validate(); err != nil {
		return store.NewStoreError("todo", "create", "validation failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// IDs only ever grow, so a deleted record's ID is never handed out again.
	s.nextID++
	todo.ID = s.nextID
	s.todos[todo.ID] = cloneTodo(todo)

	s.logger.DebugContext(ctx, "todo created", slog.Int64("todo_id", todo.ID))
	return nil
}

// GetByID implements store.TodoStore.
func (s *TodoStore) GetByID(_ context.Context, id int64) (*domain.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	todo, ok := s.todos[id]
	if !ok {
		return nil, store.ErrTodoNotFound
	}
	return cloneTodo(todo), nil
}

// Update implements store.TodoStore.
func (s *TodoStore) Update(ctx context.Context, id int64, fn store.TodoMutator) (*domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.todos[id]
	if !ok {
		return nil, store.ErrTodoNotFound
	}

	working := cloneTodo(current)
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := working.Validate(); err != nil {
		return nil, store.NewStoreError("todo", "update", "validation failed", err)
	}

	working.ID = current.ID
	working.CreatedAt = current.CreatedAt
	s.todos[id] = working

	s.logger.DebugContext(ctx, "todo updated", slog.Int64("todo_id", id))
	return cloneTodo(working), nil
}

// Delete implements store.TodoStore.
func (s *TodoStore) Delete(ctx context.Context, id int64) (*domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, ok := s.todos[id]
	if !ok {
		return nil, store.ErrTodoNotFound
	}
	delete(s.todos, id)

	s.logger.DebugContext(ctx, "todo deleted", slog.Int64("todo_id", id))
	return todo, nil
}

// List implements store.TodoStore.
func (s *TodoStore) List(_ context.Context) ([]*domain.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	todos := make([]*domain.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		todos = append(todos, cloneTodo(t))
	}

	sort.Slice(todos, func(i, j int) bool {
		if !todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].CreatedAt.After(todos[j].CreatedAt)
		}
		return todos[i].ID > todos[j].ID
	})
	return todos, nil
}

func cloneTodo(t *domain.Todo) *domain.Todo {
	c := *t
	if t.DeadlineAt != nil {
		d := *t.DeadlineAt
		c.DeadlineAt = &d
	}
	return &c
}
