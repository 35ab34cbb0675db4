// Package service contains the application use cases. It orchestrates the
// record store, the query filter and the job queue to serve todo management
// and asynchronous calendar export.
//
// Services receive their dependencies through constructor injection and
// translate store and queue failures into the sentinel errors declared in
// errors.go, which the API layer maps to HTTP status codes.
package service
