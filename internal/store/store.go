// Package store persists processed questions and their answers for later
// review. The audit trail is best-effort: the pipeline logs and continues
// when a write fails.
package store

import (
	"context"
	"time"

	"github.com/sells-group/insights-cli/internal/model"
)

// QueryFilter specifies criteria for listing audited queries.
type QueryFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	RoutedTo string `json:"routed_to,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// QueryRecord is one audited question with the answer it produced.
type QueryRecord struct {
	ID              string            `json:"id"`
	TenantID        string            `json:"tenant_id"`
	UserID          string            `json:"user_id,omitempty"`
	Question        string            `json:"question"`
	RoutedTo        string            `json:"routed_to"`
	ConfidenceScore float64           `json:"confidence_score"`
	Answer          model.FinalAnswer `json:"answer"`
	AskedAt         time.Time         `json:"asked_at"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Store defines the audit persistence interface.
type Store interface {
	SaveQuery(ctx context.Context, q model.Question, answer model.FinalAnswer) error
	ListQueries(ctx context.Context, filter QueryFilter) ([]QueryRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Nop is a disabled audit store. Every operation succeeds and stores
// nothing.
type Nop struct{}

func (Nop) SaveQuery(context.Context, model.Question, model.FinalAnswer) error {
	return nil
}

func (Nop) ListQueries(context.Context, QueryFilter) ([]QueryRecord, error) {
	return nil, nil
}

func (Nop) Migrate(context.Context) error { return nil }

func (Nop) Close() error { return nil }
