package query

import (
	"math/rand"
	"testing"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func todo(id int64, completed bool, deadline *time.Time) *domain.Todo {
	return &domain.Todo{ID: id, Title: "t", Completed: completed, DeadlineAt: deadline}
}

func ids(todos []*domain.Todo) []int64 {
	out := make([]int64, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.ID)
	}
	return out
}

func TestFilter_NoCriteriaReturnsAllInOrder(t *testing.T) {
	t.Parallel()

	in := []*domain.Todo{todo(5, false, nil), todo(3, true, nil), todo(9, false, nil)}
	out := Filter(in, Criteria{}, now)

	assert.Equal(t, []int64{5, 3, 9}, ids(out))
	out[0] = nil
	assert.NotNil(t, in[0], "input must not share backing array with output")
}

func TestFilter_CompletedFalse(t *testing.T) {
	t.Parallel()

	// two completed, three incomplete
	in := []*domain.Todo{
		todo(5, false, nil),
		todo(4, true, nil),
		todo(3, false, nil),
		todo(2, true, nil),
		todo(1, false, nil),
	}

	out := Filter(in, Criteria{Completed: ptr(false)}, now)
	assert.Equal(t, []int64{5, 3, 1}, ids(out))

	out = Filter(in, Criteria{Completed: ptr(true)}, now)
	assert.Equal(t, []int64{4, 2}, ids(out))
}

func TestFilter_Window(t *testing.T) {
	t.Parallel()

	in := []*domain.Todo{
		todo(1, false, ptr(now.Add(24*time.Hour))),
		todo(2, false, ptr(now.Add(7*24*time.Hour))), // exactly on the boundary
		todo(3, false, ptr(now.Add(7*24*time.Hour+time.Second))),
		todo(4, false, nil),
		todo(5, false, ptr(now.Add(-48*time.Hour))),
	}

	out := Filter(in, Criteria{WindowDays: ptr(7)}, now)
	assert.Equal(t, []int64{1, 2, 5}, ids(out))

	out = Filter(in, Criteria{WindowDays: ptr(-1)}, now)
	assert.Equal(t, []int64{5}, ids(out), "negative windows put the limit in the past")
}

func TestFilter_ComposesWithAnd(t *testing.T) {
	t.Parallel()

	in := []*domain.Todo{
		todo(1, true, ptr(now.Add(time.Hour))),
		todo(2, false, ptr(now.Add(time.Hour))),
		todo(3, false, ptr(now.Add(30*24*time.Hour))),
		todo(4, false, nil),
	}

	out := Filter(in, Criteria{Completed: ptr(false), WindowDays: ptr(1)}, now)
	assert.Equal(t, []int64{2}, ids(out))
}

func TestFilter_RandomizedProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(20)
		in := make([]*domain.Todo, 0, n)
		for i := 0; i < n; i++ {
			var deadline *time.Time
			if rng.Intn(3) > 0 {
				deadline = ptr(now.Add(time.Duration(rng.Intn(40*24)-10*24) * time.Hour))
			}
			in = append(in, todo(int64(n-i), rng.Intn(2) == 0, deadline))
		}

		var c Criteria
		if rng.Intn(2) == 0 {
			c.Completed = ptr(rng.Intn(2) == 0)
		}
		if rng.Intn(2) == 0 {
			c.WindowDays = ptr(rng.Intn(30) - 5)
		}

		out := Filter(in, c, now)

		// every output record satisfies every predicate
		for _, td := range out {
			if c.Completed != nil {
				assert.Equal(t, *c.Completed, td.Completed)
			}
			if c.WindowDays != nil {
				require.NotNil(t, td.DeadlineAt)
				limit := now.Add(time.Duration(*c.WindowDays) * 24 * time.Hour)
				assert.False(t, td.DeadlineAt.After(limit))
			}
		}

		// output is an order-preserving subsequence of the input
		j := 0
		for _, td := range in {
			if j < len(out) && out[j] == td {
				j++
			}
		}
		assert.Equal(t, len(out), j)

		// filtering is idempotent
		assert.Equal(t, ids(out), ids(Filter(out, c, now)))

		if c.IsZero() {
			assert.Equal(t, ids(in), ids(out))
		}
	}
}

func TestParseCriteria(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		completed     string
		window        string
		wantCompleted *bool
		wantWindow    *int
		wantErr       bool
	}{
		{name: "empty"},
		{name: "completed true", completed: "true", wantCompleted: ptr(true)},
		{name: "completed false", completed: "false", wantCompleted: ptr(false)},
		{name: "completed capitalised", completed: "True", wantErr: true},
		{name: "completed numeric", completed: "1", wantErr: true},
		{name: "window", window: "7", wantWindow: ptr(7)},
		{name: "negative window", window: "-3", wantWindow: ptr(-3)},
		{name: "both", completed: "false", window: "2", wantCompleted: ptr(false), wantWindow: ptr(2)},
		{name: "window not a number", window: "soon", wantErr: true},
		{name: "window fractional", window: "1.5", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ParseCriteria(tc.completed, tc.window)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantCompleted, c.Completed)
			assert.Equal(t, tc.wantWindow, c.WindowDays)
		})
	}
}
