package service

import "errors"

// Common service errors. Callers check them with errors.Is; the API layer
// maps each one to a status code.
var (
	// ErrTodoNotFound indicates the requested todo does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrTodoNotFound = errors.New("todo not found")

	// ErrJobNotReady indicates a result was requested for a job that has not
	// succeeded. Pending, running, failed and unknown jobs are all not ready.
	ErrJobNotReady = errors.New("job not finished")

	// ErrQueueUnavailable indicates the job queue could not be reached or
	// refused the job. API layer should map this to HTTP 503.
	ErrQueueUnavailable = errors.New("job queue unavailable")

	// ErrInvalidJobID indicates a malformed job id.
	ErrInvalidJobID = errors.New("invalid job id")
)
