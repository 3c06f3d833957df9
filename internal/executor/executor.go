/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package executor runs validated queries against Postgres. It accepts
// only read-only statements; the agent never mutates data no matter
// what the generator produced.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pgedge-nlsql/internal/logging"
)

// ExecutionError wraps a database-reported failure. The underlying
// message is passed through verbatim; callers surface it to the user
// rather than reinterpret it.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }
func (e *ExecutionError) Unwrap() error { return e.Err }

// Result is one executed query's output
type Result struct {
	Columns   []string
	Rows      [][]string
	RowCount  int
	Truncated bool
	Duration  time.Duration
}

// Executor runs read-only queries with a bounded result size
type Executor struct {
	pool    *pgxpool.Pool
	maxRows int
}

// New creates an executor over an existing pool. maxRows of 0 selects
// the default cap.
func New(pool *pgxpool.Pool, maxRows int) *Executor {
	if maxRows <= 0 {
		maxRows = 500
	}
	return &Executor{pool: pool, maxRows: maxRows}
}

// IsReadOnly reports whether the statement is one this executor will
// run. Only SELECT and WITH are accepted; WITH is allowed because CTE
// queries open with it, and a mutating CTE still fails the outer check
// below.
func IsReadOnly(query string) bool {
	upper := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return false
	}
	// Data-modifying CTEs smuggle writes into a WITH statement
	for _, kw := range []string{"INSERT ", "UPDATE ", "DELETE ", "TRUNCATE ", "DROP ", "ALTER ", "CREATE ", "GRANT ", "REVOKE "} {
		if strings.Contains(upper, " "+kw) || strings.HasPrefix(upper, kw) {
			return false
		}
	}
	return true
}

// Execute runs a read-only query and returns up to maxRows rows with
// every value rendered as text
func (e *Executor) Execute(ctx context.Context, query string) (*Result, error) {
	if !IsReadOnly(query) {
		return nil, fmt.Errorf("refusing to execute non-read-only statement")
	}

	start := time.Now()

	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}
	defer rows.Close()

	result := &Result{}
	for _, field := range rows.FieldDescriptions() {
		result.Columns = append(result.Columns, string(field.Name))
	}

	for rows.Next() {
		if result.RowCount >= e.maxRows {
			result.Truncated = true
			break
		}

		values, err := rows.Values()
		if err != nil {
			return nil, &ExecutionError{Err: err}
		}

		row := make([]string, len(values))
		for i, v := range values {
			if v == nil {
				row[i] = ""
				continue
			}
			row[i] = fmt.Sprintf("%v", v)
		}
		result.Rows = append(result.Rows, row)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Err: err}
	}

	result.Duration = time.Since(start)

	logging.Debug("query executed",
		"rows", result.RowCount,
		"truncated", result.Truncated,
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}
