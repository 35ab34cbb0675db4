package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/taskoverflow-api/internal/api/shared"
	"github.com/phrazzld/taskoverflow-api/internal/platform/logger"
	"github.com/phrazzld/taskoverflow-api/internal/query"
	"github.com/phrazzld/taskoverflow-api/internal/service"
)

// TodoHandler handles todo CRUD requests
type TodoHandler struct {
	todoService service.TodoService
	logger      *slog.Logger
}

// NewTodoHandler creates a new TodoHandler
func NewTodoHandler(todoService service.TodoService, logger *slog.Logger) *TodoHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TodoHandler")
	}
	return &TodoHandler{
		todoService: todoService,
		logger:      logger.With(slog.String("component", "todo_handler")),
	}
}

// Routes registers the todo routes on r.
func (h *TodoHandler) Routes(r chi.Router) {
	r.Get("/todos", h.ListTodos)
	r.Post("/todos", h.CreateTodo)
	r.Get("/todos/{id}", h.GetTodo)
	r.Put("/todos/{id}", h.UpdateTodo)
	r.Delete("/todos/{id}", h.DeleteTodo)
}

// ListTodos handles GET /todos?completed=&window= requests
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	c, err := query.ParseCriteria(r.URL.Query().Get("completed"), r.URL.Query().Get("window"))
	if err != nil {
		HandleAPIError(w, r, err, "Invalid filter")
		return
	}

	todos, err := h.todoService.ListTodos(r.Context(), c)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list todos")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, todosToResponse(todos))
}

// GetTodo handles GET /todos/{id} requests
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid todo id")
		return
	}

	todo, err := h.todoService.GetTodo(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, todoToResponse(todo))
}

// CreateTodo handles POST /todos requests
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateTodoRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}
	if req.Title == nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "missing title")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	deadline, err := parseOptionalDeadline(req.DeadlineAt)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	todo, err := h.todoService.CreateTodo(r.Context(), service.TodoInput{
		Title:       *req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Deadline:    deadline,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("todo created", slog.Int64("todo_id", todo.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, todoToResponse(todo))
}

// UpdateTodo handles PUT /todos/{id} requests. Only fields present in the
// body change; an explicit null deadline_at clears the deadline.
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid todo id")
		return
	}

	var req UpdateTodoRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	patch := service.TodoPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		DeadlineSet: req.DeadlineAt.Set,
	}
	if req.DeadlineAt.Set {
		patch.Deadline, err = parseOptionalDeadline(req.DeadlineAt.Value)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
	}

	todo, err := h.todoService.UpdateTodo(r.Context(), id, patch)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, todoToResponse(todo))
}

// DeleteTodo handles DELETE /todos/{id} requests. Deleting a missing todo
// succeeds with an empty object.
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid todo id")
		return
	}

	todo, err := h.todoService.DeleteTodo(r.Context(), id)
	if errors.Is(err, service.ErrTodoNotFound) {
		shared.RespondWithJSON(w, r, http.StatusOK, struct{}{})
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to delete todo")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, todoToResponse(todo))
}

func (h *TodoHandler) respondDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, shared.ErrUnknownField) || errors.Is(err, shared.ErrEmptyBody) {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
}
