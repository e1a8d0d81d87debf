package model

// Confidence is the qualitative confidence tier of a consensus outcome.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// ConsensusReport summarizes a consensus-voting run.
type ConsensusReport struct {
	TotalGenerations     int        `json:"total_generations"`
	SuccessfulExecutions int        `json:"successful_executions"`
	MajorityGroupSize    int        `json:"majority_group_size"`
	AgreementPercent     int        `json:"agreement_percent"`
	Confidence           Confidence `json:"confidence"`
}

// CrossCheckReport records the advisory comparison of a candidate result
// against the trusted aggregation value. IsValid is always true: the layer
// warns, it never blocks.
type CrossCheckReport struct {
	Performed     bool     `json:"performed"`
	IsValid       bool     `json:"is_valid"`
	Warnings      []string `json:"warnings,omitempty"`
	SkippedReason string   `json:"skipped_reason,omitempty"`
}

// PlausibilityReport records the blocking anti-hallucination checks on a
// final result.
type PlausibilityReport struct {
	Passed         bool     `json:"passed"`
	FailureReasons []string `json:"failure_reasons,omitempty"`
}
