package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/platform/memory"
	"github.com/phrazzld/taskoverflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTodo(t *testing.T, title string, created time.Time) *domain.Todo {
	t.Helper()
	todo, err := domain.NewTodo(title, "", false, nil)
	require.NoError(t, err)
	todo.CreatedAt = created
	todo.UpdatedAt = created
	return todo
}

func TestTodoStore_CreateAssignsIncreasingIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewTodoStore(nil)

	a := mustTodo(t, "a", time.Now())
	b := mustTodo(t, "b", time.Now())
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Create(ctx, b))
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)

	_, err := s.Delete(ctx, b.ID)
	require.NoError(t, err)

	c := mustTodo(t, "c", time.Now())
	require.NoError(t, s.Create(ctx, c))
	assert.Equal(t, int64(3), c.ID, "deleted IDs are not reused")
}

func TestTodoStore_CreateRejectsInvalid(t *testing.T) {
	t.Parallel()
	s := memory.NewTodoStore(nil)

	err := s.Create(context.Background(), &domain.Todo{Title: " "})
	assert.ErrorIs(t, err, domain.ErrEmptyTodoTitle)

	var se *store.StoreError
	assert.True(t, errors.As(err, &se))
}

func TestTodoStore_GetByIDReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewTodoStore(nil)

	deadline := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	todo, err := domain.NewTodo("pay rent", "", false, &deadline)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, todo))

	// mutate the caller's value after insert
	todo.Title = "mutated"

	got, err := s.GetByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "pay rent", got.Title)

	*got.DeadlineAt = deadline.Add(time.Hour)
	again, err := s.GetByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, deadline, *again.DeadlineAt)

	_, err = s.GetByID(ctx, 999)
	assert.ErrorIs(t, err, store.ErrTodoNotFound)
}

func TestTodoStore_Update(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewTodoStore(nil)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	todo := mustTodo(t, "draft", created)
	require.NoError(t, s.Create(ctx, todo))

	updated, err := s.Update(ctx, todo.ID, func(td *domain.Todo) error {
		td.Title = "final"
		td.Completed = true
		td.ID = 77
		td.CreatedAt = time.Now()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, todo.ID, updated.ID, "ID is immutable")
	assert.Equal(t, created, updated.CreatedAt, "CreatedAt is immutable")
	assert.Equal(t, "final", updated.Title)
	assert.True(t, updated.Completed)

	t.Run("mutator error leaves record untouched", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := s.Update(ctx, todo.ID, func(td *domain.Todo) error {
			td.Title = "half-applied"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.GetByID(ctx, todo.ID)
		require.NoError(t, err)
		assert.Equal(t, "final", got.Title)
	})

	t.Run("invalid result rejected", func(t *testing.T) {
		_, err := s.Update(ctx, todo.ID, func(td *domain.Todo) error {
			td.Title = ""
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrEmptyTodoTitle)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := s.Update(ctx, 12345, func(*domain.Todo) error { return nil })
		assert.ErrorIs(t, err, store.ErrTodoNotFound)
	})
}

func TestTodoStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewTodoStore(nil)

	todo := mustTodo(t, "temp", time.Now())
	require.NoError(t, s.Create(ctx, todo))

	deleted, err := s.Delete(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "temp", deleted.Title)

	_, err = s.Delete(ctx, todo.ID)
	assert.ErrorIs(t, err, store.ErrTodoNotFound)
}

func TestTodoStore_ListOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewTodoStore(nil)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	oldest := mustTodo(t, "oldest", base)
	newest := mustTodo(t, "newest", base.Add(2*time.Hour))
	tieLow := mustTodo(t, "tie-low", base.Add(time.Hour))
	tieHigh := mustTodo(t, "tie-high", base.Add(time.Hour))

	for _, td := range []*domain.Todo{oldest, newest, tieLow, tieHigh} {
		require.NoError(t, s.Create(ctx, td))
	}

	todos, err := s.List(ctx)
	require.NoError(t, err)

	titles := make([]string, 0, len(todos))
	for _, td := range todos {
		titles = append(titles, td.Title)
	}
	assert.Equal(t, []string{"newest", "tie-high", "tie-low", "oldest"}, titles)
}

func TestTodoStore_ListEmpty(t *testing.T) {
	t.Parallel()
	todos, err := memory.NewTodoStore(nil).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)
}

func TestTodoStore_ConcurrentCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewTodoStore(nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			todo, err := domain.NewTodo("concurrent", "", false, nil)
			if err == nil {
				_ = s.Create(ctx, todo)
			}
		}()
	}
	wg.Wait()

	todos, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, todos, n)

	seen := make(map[int64]bool, n)
	for _, td := range todos {
		assert.False(t, seen[td.ID], "duplicate id %d", td.ID)
		seen[td.ID] = true
	}
}
