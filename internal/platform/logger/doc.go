// Package logger provides structured logging for the service.
//
// Logs are emitted as JSON through log/slog. Request- and job-scoped loggers
// travel in the context and are retrieved with FromContext.
package logger
