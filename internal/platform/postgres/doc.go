// Package postgres implements the todo and job stores on PostgreSQL through
// the pgx database/sql driver, and owns the embedded schema migrations.
package postgres
