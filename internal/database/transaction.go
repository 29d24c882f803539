package database

// Batch transactions for the rifas API.
//
// Queries accumulate and execute together at commit time as a single
// BEGIN TRANSACTION / COMMIT TRANSACTION block. There is no isolation
// between Add() calls. A statement may abort the whole block with
// THROW, which surfaces as ErrConflict when the message says "conflict"
// and as ErrInsufficientFunds when it says "insufficient".
//
//	batch := NewAtomicBatch()
//	batch.Add(debitQuery, vars1)
//	batch.Add(ledgerQuery, vars2)
//	results, err := batch.Run(ctx, db)

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// TxBuilder builds atomic transaction queries with automatic variable namespacing.
// Two statements both using $user get rewritten to $s1_user and $s2_user.
type TxBuilder struct {
	statements []string
	vars       map[string]interface{}
}

// NewTxBuilder creates a new transaction builder
func NewTxBuilder() *TxBuilder {
	return &TxBuilder{
		statements: make([]string, 0),
		vars:       make(map[string]interface{}),
	}
}

// Add adds a statement, namespacing its variables with the statement index
func (tb *TxBuilder) Add(query string, vars map[string]interface{}) {
	idx := len(tb.statements) + 1

	// Replace longer names first so $user does not clobber $user_id.
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	newQuery := query
	for _, name := range names {
		newName := fmt.Sprintf("s%d_%s", idx, name)
		newQuery = strings.ReplaceAll(newQuery, "$"+name, "$"+newName)
		tb.vars[newName] = vars[name]
	}

	tb.statements = append(tb.statements, newQuery)
}

// Len returns the number of statements added so far
func (tb *TxBuilder) Len() int {
	return len(tb.statements)
}

// Build returns the complete transaction query and merged variables
func (tb *TxBuilder) Build() (string, map[string]interface{}) {
	if len(tb.statements) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range tb.statements {
		sb.WriteString(strings.TrimSpace(stmt))
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")

	return sb.String(), tb.vars
}

// ExecuteTransaction executes a transaction built with TxBuilder
func ExecuteTransaction(ctx context.Context, db Database, tb *TxBuilder) ([]interface{}, error) {
	query, vars := tb.Build()
	if query == "" {
		return nil, nil
	}

	return db.Query(ctx, query, vars)
}

// AtomicBatch provides a simpler API for batch operations that should be atomic
type AtomicBatch struct {
	builder *TxBuilder
}

// NewAtomicBatch creates a new atomic batch
func NewAtomicBatch() *AtomicBatch {
	return &AtomicBatch{builder: NewTxBuilder()}
}

// Add adds a query to the batch
func (ab *AtomicBatch) Add(query string, vars map[string]interface{}) *AtomicBatch {
	ab.builder.Add(query, vars)
	return ab
}

// Execute runs all queries as a single transaction
func (ab *AtomicBatch) Execute(ctx context.Context, db Database) error {
	_, err := ab.Run(ctx, db)
	return err
}

// Run executes the batch and returns the per-statement results
func (ab *AtomicBatch) Run(ctx context.Context, db Database) ([]interface{}, error) {
	if ab.builder.Len() == 0 {
		return nil, nil
	}
	return ExecuteTransaction(ctx, db, ab.builder)
}

// Len returns the number of queries in the batch
func (ab *AtomicBatch) Len() int {
	return ab.builder.Len()
}
