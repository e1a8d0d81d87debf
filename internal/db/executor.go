// Package db provides read-only query execution against the tenant sales
// store. The pipeline never issues writes; the pool is additionally pinned
// read-only as a backstop behind the SQL validator.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/insights-cli/internal/model"
)

// Querier is the subset of pgxpool.Pool the executor needs. pgxmock
// satisfies it for tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Executor runs validated SQL with a per-query timeout and decodes rows
// into generic maps.
type Executor struct {
	q       Querier
	timeout time.Duration
}

// NewExecutor creates an Executor. A zero timeout disables the per-query
// deadline (the caller's context still applies).
func NewExecutor(q Querier, timeout time.Duration) *Executor {
	return &Executor{q: q, timeout: timeout}
}

// Execute runs sql and captures rows or the error. It never returns a Go
// error: execution failure is data, recorded on the outcome so a failed
// candidate reduces consensus counts instead of aborting the run. The
// underlying connection is held only for the duration of the query and
// released on every exit path.
func (e *Executor) Execute(ctx context.Context, sql string) *model.ExecutionOutcome {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	outcome := &model.ExecutionOutcome{}

	rows, err := e.q.Query(ctx, sql)
	if err != nil {
		outcome.Err = err.Error()
		outcome.DurationMs = time.Since(start).Milliseconds()
		return outcome
	}
	defer rows.Close()

	decoded, err := decodeRows(rows)
	outcome.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		outcome.Err = err.Error()
		return outcome
	}

	outcome.Rows = decoded
	return outcome
}

func decodeRows(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "db: read row")
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "db: iterate rows")
	}
	return out, nil
}
