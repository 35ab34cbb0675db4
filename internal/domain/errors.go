package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyTodoTitle is returned when a todo has no title.
	ErrEmptyTodoTitle = fmt.Errorf("%w: todo title cannot be empty", ErrValidation)

	// ErrInvalidDeadline is returned when a deadline cannot be parsed.
	ErrInvalidDeadline = fmt.Errorf("%w: invalid deadline", ErrValidation)

	// ErrInvalidJobStatus is returned when a job status string is not recognised.
	ErrInvalidJobStatus = fmt.Errorf("%w: invalid job status", ErrValidation)

	// ErrInvalidJobTransition is returned when a job is asked to move to a
	// state that is not reachable from its current state.
	ErrInvalidJobTransition = errors.New("invalid job status transition")
)
