// Package api handles incoming HTTP requests, request validation and response
// formatting. It adapts HTTP to the todo and export services and maps their
// errors to status codes without leaking internal detail.
package api
