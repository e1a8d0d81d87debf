package model

// Route names for AnswerMetadata.RoutedTo.
const (
	RouteTrustedAggregation = "TrustedAggregation"
	RouteSingleGeneration   = "SingleGeneration"
	RouteConsensusVoting    = "ConsensusVoting"
)

// AnswerMetadata carries the trust-pipeline evidence attached to an answer.
type AnswerMetadata struct {
	RoutedTo string `json:"routed_to"`
	// ConsensusVoting is present only for CONSENSUS-tier answers.
	ConsensusVoting        *ConsensusReport    `json:"consensus_voting,omitempty"`
	CrossCheck             *CrossCheckReport   `json:"cross_check,omitempty"`
	Plausibility           *PlausibilityReport `json:"plausibility,omitempty"`
	ResultValidationFailed bool                `json:"result_validation_failed"`
}

// FinalAnswer is the structured response for one processed question. Every
// ProcessQuery call returns one, including degraded "could not determine"
// answers; candidate failures never surface as errors to the caller.
type FinalAnswer struct {
	Text            string           `json:"text"`
	ConfidenceScore float64          `json:"confidence_score"`
	QueryResult     []map[string]any `json:"query_result,omitempty"`
	Metadata        AnswerMetadata   `json:"metadata"`
}
