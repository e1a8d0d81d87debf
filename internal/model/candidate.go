package model

// ValidationOutcome is the result of running a generated SQL statement
// through the tenant-isolation validator.
type ValidationOutcome struct {
	Valid             bool     `json:"valid"`
	Errors            []string `json:"errors,omitempty"`
	HasTenantFilter   bool     `json:"has_tenant_filter"`
	TenantFilterValue string   `json:"tenant_filter_value,omitempty"`
}

// ExecutionOutcome captures the rows or error from executing one candidate
// against the data store.
type ExecutionOutcome struct {
	Rows       []map[string]any `json:"rows"`
	Err        string           `json:"error,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

// SqlCandidate is one independently generated SQL statement plus its
// validation and execution outcomes. A candidate is owned by exactly one
// pipeline run and is never shared across questions.
type SqlCandidate struct {
	SQL             string            `json:"sql"`
	GenerationIndex int               `json:"generation_index"`
	Validation      ValidationOutcome `json:"validation"`
	// Execution is nil when validation rejected the candidate or generation
	// itself failed; an invalid candidate is never executed.
	Execution *ExecutionOutcome `json:"execution,omitempty"`
}

// Succeeded reports whether the candidate validated and executed cleanly.
func (c SqlCandidate) Succeeded() bool {
	return c.Validation.Valid && c.Execution != nil && c.Execution.Err == ""
}
