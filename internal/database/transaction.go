package database

// Statements that must land together are batched: they accumulate in
// memory and run inside one BEGIN/COMMIT TRANSACTION block. There is no
// isolation between Add calls.
//
//	err := NewAtomicBatch().
//	    Add(`UPSERT onboarding_profile ...`, vars1).
//	    Add(`UPDATE type::record($user_id) SET profile_completed = true`, vars2).
//	    Execute(ctx, db)

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// TxBuilder builds a transaction query, namespacing each statement's
// variables so two statements can both use $user_id.
type TxBuilder struct {
	statements []string
	vars       map[string]interface{}
	counter    int
}

// NewTxBuilder creates an empty builder
func NewTxBuilder() *TxBuilder {
	return &TxBuilder{vars: make(map[string]interface{})}
}

// Add appends a statement; $name becomes $s<N>_name
func (tb *TxBuilder) Add(query string, vars map[string]interface{}) {
	tb.counter++

	// Longest names first so $user does not clobber $user_id.
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	for _, name := range names {
		renamed := fmt.Sprintf("s%d_%s", tb.counter, name)
		query = strings.ReplaceAll(query, "$"+name, "$"+renamed)
		tb.vars[renamed] = vars[name]
	}
	tb.statements = append(tb.statements, query)
}

// Len returns the number of statements added
func (tb *TxBuilder) Len() int {
	return len(tb.statements)
}

// Build returns the transaction query and the merged variables
func (tb *TxBuilder) Build() (string, map[string]interface{}) {
	if len(tb.statements) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range tb.statements {
		sb.WriteString(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
		sb.WriteString(";\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")
	return sb.String(), tb.vars
}

// ExecuteTransaction runs a built transaction
func ExecuteTransaction(ctx context.Context, db Database, tb *TxBuilder) ([]interface{}, error) {
	query, vars := tb.Build()
	if query == "" {
		return nil, nil
	}
	return db.Query(ctx, query, vars)
}

// AtomicBatch is a fluent wrapper over TxBuilder
type AtomicBatch struct {
	builder *TxBuilder
}

// NewAtomicBatch creates an empty batch
func NewAtomicBatch() *AtomicBatch {
	return &AtomicBatch{builder: NewTxBuilder()}
}

// Add appends a statement
func (ab *AtomicBatch) Add(query string, vars map[string]interface{}) *AtomicBatch {
	ab.builder.Add(query, vars)
	return ab
}

// Execute runs every statement in one transaction
func (ab *AtomicBatch) Execute(ctx context.Context, db Database) error {
	_, err := ExecuteTransaction(ctx, db, ab.builder)
	return err
}

// Len returns the number of statements in the batch
func (ab *AtomicBatch) Len() int {
	return ab.builder.Len()
}
