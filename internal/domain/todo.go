package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DeadlineLayout is the stored timestamp representation of a deadline.
// Snapshots carry deadlines in this form and the calendar generator parses it back.
const DeadlineLayout = "2006-01-02T15:04:05"

// Todo represents a single task record.
// ID is assigned by the store and never changes once set.
type Todo struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	DeadlineAt  *time.Time `json:"deadline_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTodo creates a new Todo with the given fields.
// The ID is left zero for the store to assign. Timestamps are set to now (UTC)
// and the deadline, if any, is normalised to UTC.
// Returns an error if validation fails.
func NewTodo(title, description string, completed bool, deadline *time.Time) (*Todo, error) {
	now := time.Now().UTC()
	todo := &Todo{
		Title:       strings.TrimSpace(title),
		Description: description,
		Completed:   completed,
		DeadlineAt:  normalizeDeadline(deadline),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := todo.Validate(); err != nil {
		return nil, err
	}

	return todo, nil
}

// Validate checks if the Todo has valid data.
func (t *Todo) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTodoTitle
	}
	return nil
}

// SetDeadline replaces the deadline. A nil deadline clears it.
func (t *Todo) SetDeadline(deadline *time.Time) {
	t.DeadlineAt = normalizeDeadline(deadline)
	t.UpdatedAt = time.Now().UTC()
}

// Snapshot returns a value copy of the todo suitable for use as job input.
// The returned value shares no memory with t.
func (t *Todo) Snapshot() TodoSnapshot {
	s := TodoSnapshot{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   FormatDeadline(t.CreatedAt),
	}
	if t.DeadlineAt != nil {
		s.DeadlineAt = FormatDeadline(*t.DeadlineAt)
	}
	return s
}

// TodoSnapshot is an immutable copy of a todo captured at export submission.
// DeadlineAt holds the stored timestamp representation (DeadlineLayout) and is
// empty when the todo has no deadline.
type TodoSnapshot struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	DeadlineAt  string `json:"deadline_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// UID returns the identifier used for the todo's calendar event.
func (s TodoSnapshot) UID() string {
	return strconv.FormatInt(s.ID, 10)
}

// SnapshotTodos copies todos into snapshots, preserving order.
func SnapshotTodos(todos []*Todo) []TodoSnapshot {
	snapshots := make([]TodoSnapshot, 0, len(todos))
	for _, t := range todos {
		snapshots = append(snapshots, t.Snapshot())
	}
	return snapshots
}

// FormatDeadline renders a time in the stored timestamp representation (UTC).
func FormatDeadline(t time.Time) string {
	return t.UTC().Format(DeadlineLayout)
}

// ParseDeadline parses a deadline supplied by a client. Both the stored
// representation and RFC 3339 are accepted; the stored representation is
// interpreted as UTC.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DeadlineLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDeadline, s)
	}
	return t.UTC(), nil
}

func normalizeDeadline(deadline *time.Time) *time.Time {
	if deadline == nil {
		return nil
	}
	// second precision matches the stored representation
	d := deadline.UTC().Truncate(time.Second)
	return &d
}
