package store

import (
	"context"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
)

// TodoMutator applies a change to a todo loaded inside an update.
// Returning an error aborts the update and leaves the stored record untouched.
type TodoMutator func(todo *domain.Todo) error

// TodoStore defines the interface for todo persistence.
type TodoStore interface {
	// Create saves a new todo and assigns its ID. IDs are never reused.
	// Returns validation errors from the domain Todo if data is invalid.
	Create(ctx context.Context, todo *domain.Todo) error

	// GetByID retrieves a todo by its ID.
	// Returns ErrTodoNotFound if the todo does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Todo, error)

	// Update loads the todo, applies fn and saves the result atomically.
	// ID and CreatedAt are preserved regardless of what fn does.
	// Returns ErrTodoNotFound if the todo does not exist.
	Update(ctx context.Context, id int64, fn TodoMutator) (*domain.Todo, error)

	// Delete removes a todo and returns the removed record.
	// Returns ErrTodoNotFound if the todo does not exist.
	Delete(ctx context.Context, id int64) (*domain.Todo, error)

	// List returns every todo ordered by creation time, newest first
	// (ties broken by ID, highest first). Returns an empty slice for an empty store.
	List(ctx context.Context) ([]*domain.Todo, error)
}
