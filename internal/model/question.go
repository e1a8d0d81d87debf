package model

import (
	"time"

	"github.com/google/uuid"
)

// Question is a natural-language analytics question asked by a tenant user.
// Immutable once created.
type Question struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	TenantID string    `json:"tenant_id"`
	UserID   string    `json:"user_id"`
	AskedAt  time.Time `json:"asked_at"`
}

// NewQuestion creates a Question with a fresh ID and timestamp.
func NewQuestion(text, tenantID, userID string) Question {
	return Question{
		ID:       uuid.NewString(),
		Text:     text,
		TenantID: tenantID,
		UserID:   userID,
		AskedAt:  time.Now().UTC(),
	}
}

// Tier is the execution strategy chosen for a question.
type Tier string

const (
	// TierTrusted delegates to the precomputed aggregation path.
	TierTrusted Tier = "TRUSTED"
	// TierSingle runs one SQL generation with sanity checks.
	TierSingle Tier = "SINGLE"
	// TierConsensus runs three SQL generations and reconciles by majority.
	TierConsensus Tier = "CONSENSUS"
)

// Metric names a canonical precomputed aggregation.
type Metric string

const (
	MetricSalesForPeriod Metric = "sales_for_period"
	MetricAverageTicket  Metric = "average_ticket"
	MetricTopProducts    Metric = "top_products"
	MetricReviewStats    Metric = "review_stats"
)

// Classification is the routing decision for a question. Derived per
// question, never persisted.
type Classification struct {
	Tier Tier `json:"tier"`
	// MatchedIntent is the canonical metric the question maps to, empty when
	// no exact intent match was found.
	MatchedIntent Metric `json:"matched_intent,omitempty"`
	// Period is the reporting period implied by the question (e.g. "today").
	Period string `json:"period,omitempty"`
}
