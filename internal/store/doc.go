// Package store defines the persistence interfaces for todo records.
// Implementations live under internal/platform.
package store
