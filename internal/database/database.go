// Package database provides the database abstraction layer for the rifas API.
//
// The Database interface abstracts SurrealDB operations so services and
// repositories never touch the driver directly.
//
// # Interface Design
//
//   - Query: Returns multiple results (for SELECT queries returning lists)
//   - QueryOne: Returns a single result (for SELECT by ID)
//   - Execute: No return value (for CREATE/UPDATE/DELETE mutations)
//
// # Transaction Support
//
// Transactions are BATCH-BASED, not connection-level. Queries accumulate in
// memory and are sent as one BEGIN/COMMIT block. Use AtomicBatch for
// statements that must succeed together (a wallet update and its ledger
// entry, a bid and its auction row).
//
// # Error Handling
//
//   - ErrNotFound: Record does not exist
//   - ErrDuplicate: Unique constraint violation
//   - ErrConflict: A conditional write matched no row (optimistic lock miss)
//   - ErrInsufficientFunds: A wallet statement would have overdrawn
//   - ErrConnection: Database connection issues
//   - ErrQuery: Query execution failures
package database

import (
	"context"
	"errors"
)

// Standard errors for database operations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a unique constraint violation (e.g., duplicate steam id).
	ErrDuplicate = errors.New("duplicate record")

	// ErrConflict indicates a conditional update matched nothing.
	ErrConflict = errors.New("write conflict")

	// ErrInsufficientFunds indicates a guarded wallet update refused to overdraw.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConnection indicates a failure to connect to or communicate with the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a query execution failure (syntax error, invalid reference, etc.).
	ErrQuery = errors.New("query error")
)

// Database defines the interface for database operations
type Database interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Query executes a query and returns results
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)

	// QueryOne executes a query and returns a single result
	QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)

	// Execute runs a query without returning results (for mutations)
	Execute(ctx context.Context, query string, vars map[string]interface{}) error
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
