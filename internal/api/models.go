package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
)

// CreateTodoRequest is the body of POST /todos.
type CreateTodoRequest struct {
	Title       *string `json:"title" validate:"required,max=500"`
	Description string  `json:"description" validate:"max=10000"`
	Completed   bool    `json:"completed"`
	DeadlineAt  *string `json:"deadline_at"`
}

// UpdateTodoRequest is the body of PUT /todos/{id}. Absent fields are kept.
type UpdateTodoRequest struct {
	Title       *string        `json:"title" validate:"omitempty,max=500"`
	Description *string        `json:"description" validate:"omitempty,max=10000"`
	Completed   *bool          `json:"completed"`
	DeadlineAt  OptionalString `json:"deadline_at"`
}

// OptionalString distinguishes an absent JSON field from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler. It is only called for fields
// present in the document.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// TodoResponse is the JSON form of a todo. Timestamps use the stored
// representation; deadline_at is null when unset.
type TodoResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Completed   bool    `json:"completed"`
	DeadlineAt  *string `json:"deadline_at"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// ExportSubmittedResponse is returned by POST /todos/ical.
type ExportSubmittedResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

// ExportStatusResponse is returned by GET /todos/ical/{job_id}/status.
type ExportStatusResponse struct {
	JobID     string           `json:"job_id"`
	Status    domain.JobStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
	ResultURL string           `json:"result_url"`
}

func todoToResponse(todo *domain.Todo) TodoResponse {
	resp := TodoResponse{
		ID:          todo.ID,
		Title:       todo.Title,
		Description: todo.Description,
		Completed:   todo.Completed,
		CreatedAt:   domain.FormatDeadline(todo.CreatedAt),
		UpdatedAt:   domain.FormatDeadline(todo.UpdatedAt),
	}
	if todo.DeadlineAt != nil {
		d := domain.FormatDeadline(*todo.DeadlineAt)
		resp.DeadlineAt = &d
	}
	return resp
}

func todosToResponse(todos []*domain.Todo) []TodoResponse {
	out := make([]TodoResponse, 0, len(todos))
	for _, t := range todos {
		out = append(out, todoToResponse(t))
	}
	return out
}

func parseOptionalDeadline(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	d, err := domain.ParseDeadline(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
