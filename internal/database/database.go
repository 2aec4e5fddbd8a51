// Package database wraps the SurrealDB connection used by the onboarding
// service.
//
// Three query shapes are exposed: Query for result lists, QueryOne for a
// single record, and Execute for mutations. Transactions are batch-based:
// statements accumulate until Commit, then run inside one
// BEGIN/COMMIT TRANSACTION block. Prefer AtomicBatch for the usual two or
// three statements that must land together.
//
//	if errors.Is(err, database.ErrNotFound) {
//	    // no session with that key
//	}
package database

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConnection indicates a failure to reach the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a statement failed to execute.
	ErrQuery = errors.New("query error")
)

// Database defines the interface for database operations
type Database interface {
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Query executes a query and returns one entry per statement
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)

	// QueryOne executes a query and returns the first record of the first statement
	QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)

	// Execute runs a query without returning results
	Execute(ctx context.Context, query string, vars map[string]interface{}) error

	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction collects statements for a single atomic commit
type Transaction interface {
	Execute(ctx context.Context, query string, vars map[string]interface{}) error
	Commit() error
	Rollback() error
}

// Config holds database configuration
type Config struct {
	Host      string
	Port      string
	User      string
	Password  string
	Namespace string
	Database  string
}
