// Package candidate wraps one "generate SQL, validate, execute" attempt.
package candidate

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/insights-cli/internal/model"
	"github.com/sells-group/insights-cli/internal/sqlguard"
)

// Executor runs validated SQL against the data store. *db.Executor is the
// production implementation.
type Executor interface {
	Execute(ctx context.Context, sql string) *model.ExecutionOutcome
}

// Runner produces one SqlCandidate per call. It never retries: retry policy
// belongs to the caller, and the consensus tier relies on each generation
// being a single independent attempt.
type Runner struct {
	gen  Generator
	exec Executor
}

// NewRunner creates a Runner.
func NewRunner(gen Generator, exec Executor) *Runner {
	return &Runner{gen: gen, exec: exec}
}

// Run performs one generate → validate → execute attempt. A candidate that
// fails validation is short-circuited with Execution left nil: invalid SQL
// is never executed. Generation and execution failures are recorded on the
// candidate, not returned, so one bad candidate cannot abort its siblings.
func (r *Runner) Run(ctx context.Context, q model.Question, genIndex int) model.SqlCandidate {
	c := model.SqlCandidate{GenerationIndex: genIndex}

	sql, err := r.gen.GenerateSQL(ctx, q)
	if err != nil {
		zap.L().Warn("candidate: generation failed",
			zap.String("question_id", q.ID),
			zap.Int("generation_index", genIndex),
			zap.Error(err),
		)
		c.Validation = model.ValidationOutcome{
			Valid:  false,
			Errors: []string{"generation failed: " + err.Error()},
		}
		return c
	}
	c.SQL = sql

	c.Validation = sqlguard.Validate(sql, q.TenantID)
	if !c.Validation.Valid {
		return c
	}

	c.Execution = r.exec.Execute(ctx, sql)
	if c.Execution.Err != "" {
		zap.L().Warn("candidate: execution failed",
			zap.String("question_id", q.ID),
			zap.Int("generation_index", genIndex),
			zap.String("error", c.Execution.Err),
		)
	}
	return c
}
