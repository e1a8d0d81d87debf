// Package pipeline orchestrates the query-trust pipeline: route the
// question, execute the chosen strategy, and gate the result through
// cross-checking and plausibility validation before answering.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/insights-cli/internal/model"
	"github.com/sells-group/insights-cli/internal/resilience"
	"github.com/sells-group/insights-cli/internal/router"
	"github.com/sells-group/insights-cli/internal/trusted"
)

// auditRetry gives a transient audit write one quick second chance. The
// trail is best-effort, so the budget stays small.
var auditRetry = resilience.RetryConfig{
	MaxAttempts:    2,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     time.Second,
}

// TrustedGateway computes canonical metrics directly.
type TrustedGateway interface {
	Compute(ctx context.Context, metric model.Metric, tenantID, period string) (*trusted.Value, error)
}

// CandidateRunner performs one generate-validate-execute attempt.
type CandidateRunner interface {
	Run(ctx context.Context, q model.Question, genIndex int) model.SqlCandidate
}

// ConsensusEngine reconciles several candidates by majority.
type ConsensusEngine interface {
	Run(ctx context.Context, q model.Question) (model.ConsensusReport, *model.SqlCandidate)
}

// CrossChecker compares a result against the trusted value. Advisory.
type CrossChecker interface {
	Check(ctx context.Context, rows []map[string]any, c model.Classification, tenantID string) model.CrossCheckReport
}

// PlausibilityChecker verifies claimed facts exist in tenant data. Blocking.
type PlausibilityChecker interface {
	Validate(ctx context.Context, rows []map[string]any, c model.Classification, tenantID string) model.PlausibilityReport
}

// AuditStore persists processed questions for later review. Best-effort:
// store failures are logged and never affect the answer.
type AuditStore interface {
	SaveQuery(ctx context.Context, q model.Question, answer model.FinalAnswer) error
}

// Config holds the per-tier deadlines.
type Config struct {
	TrustedTimeout   time.Duration `yaml:"trusted_timeout" mapstructure:"trusted_timeout"`
	SingleTimeout    time.Duration `yaml:"single_timeout" mapstructure:"single_timeout"`
	ConsensusTimeout time.Duration `yaml:"consensus_timeout" mapstructure:"consensus_timeout"`
}

// DefaultConfig returns the SLA-aligned tier deadlines.
func DefaultConfig() Config {
	return Config{
		TrustedTimeout:   2 * time.Second,
		SingleTimeout:    5 * time.Second,
		ConsensusTimeout: 10 * time.Second,
	}
}

// Pipeline wires the trust components together. It keeps no state between
// questions: every ProcessQuery call is independent and safe to invoke
// concurrently across tenants.
type Pipeline struct {
	gateway      TrustedGateway
	runner       CandidateRunner
	engine       ConsensusEngine
	crossCheck   CrossChecker
	plausibility PlausibilityChecker
	audit        AuditStore
	cfg          Config
}

// New creates a Pipeline. audit may be nil.
func New(gateway TrustedGateway, runner CandidateRunner, engine ConsensusEngine, crossCheck CrossChecker, plausibility PlausibilityChecker, audit AuditStore, cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.TrustedTimeout <= 0 {
		cfg.TrustedTimeout = def.TrustedTimeout
	}
	if cfg.SingleTimeout <= 0 {
		cfg.SingleTimeout = def.SingleTimeout
	}
	if cfg.ConsensusTimeout <= 0 {
		cfg.ConsensusTimeout = def.ConsensusTimeout
	}
	return &Pipeline{
		gateway:      gateway,
		runner:       runner,
		engine:       engine,
		crossCheck:   crossCheck,
		plausibility: plausibility,
		audit:        audit,
		cfg:          cfg,
	}
}

// ProcessQuery answers one question. It always returns a structured
// FinalAnswer: candidate failures, validation rejections and timeouts
// degrade confidence and are flagged in metadata, they never escape as
// errors.
func (p *Pipeline) ProcessQuery(ctx context.Context, q model.Question) model.FinalAnswer {
	c := router.Classify(q)

	var answer model.FinalAnswer
	switch c.Tier {
	case model.TierTrusted:
		answer = p.processTrusted(ctx, q, c)
	case model.TierConsensus:
		answer = p.processConsensus(ctx, q, c)
	default:
		answer = p.processSingle(ctx, q, c)
	}

	zap.L().Info("pipeline: question processed",
		zap.String("question_id", q.ID),
		zap.String("tenant_id", q.TenantID),
		zap.String("routed_to", answer.Metadata.RoutedTo),
		zap.Float64("confidence_score", answer.ConfidenceScore),
		zap.Bool("result_validation_failed", answer.Metadata.ResultValidationFailed),
	)

	if p.audit != nil {
		err := resilience.Do(ctx, auditRetry, func(ctx context.Context) error {
			return p.audit.SaveQuery(ctx, q, answer)
		})
		if err != nil {
			zap.L().Warn("pipeline: audit write failed",
				zap.String("question_id", q.ID),
				zap.Error(err),
			)
		}
	}
	return answer
}

func (p *Pipeline) processTrusted(ctx context.Context, q model.Question, c model.Classification) model.FinalAnswer {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.TrustedTimeout)
	defer cancel()

	value, err := p.gateway.Compute(ctx, c.MatchedIntent, q.TenantID, c.Period)
	if err != nil {
		zap.L().Warn("pipeline: trusted path failed",
			zap.String("question_id", q.ID),
			zap.String("metric", string(c.MatchedIntent)),
			zap.Error(err),
		)
		return failureAnswer(model.RouteTrustedAggregation)
	}

	return model.FinalAnswer{
		Text:            renderTrusted(c, value),
		ConfidenceScore: 0.95,
		QueryResult:     trustedRows(value),
		Metadata:        model.AnswerMetadata{RoutedTo: model.RouteTrustedAggregation},
	}
}

func (p *Pipeline) processSingle(ctx context.Context, q model.Question, c model.Classification) model.FinalAnswer {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SingleTimeout)
	defer cancel()

	cand := p.runner.Run(ctx, q, 0)
	if !cand.Succeeded() {
		return failureAnswer(model.RouteSingleGeneration)
	}

	return p.finishChecked(ctx, q, c, cand.Execution.Rows, 0.7, model.AnswerMetadata{
		RoutedTo: model.RouteSingleGeneration,
	})
}

func (p *Pipeline) processConsensus(ctx context.Context, q model.Question, c model.Classification) model.FinalAnswer {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ConsensusTimeout)
	defer cancel()

	report, winner := p.engine.Run(ctx, q)
	if winner == nil {
		answer := failureAnswer(model.RouteConsensusVoting)
		answer.Metadata.ConsensusVoting = &report
		return answer
	}

	return p.finishChecked(ctx, q, c, winner.Execution.Rows, confidenceScore(report.Confidence), model.AnswerMetadata{
		RoutedTo:        model.RouteConsensusVoting,
		ConsensusVoting: &report,
	})
}

// finishChecked applies the cross-check and plausibility layers to a
// winning result and renders the final answer.
func (p *Pipeline) finishChecked(ctx context.Context, q model.Question, c model.Classification, rows []map[string]any, baseConfidence float64, meta model.AnswerMetadata) model.FinalAnswer {
	cc := p.crossCheck.Check(ctx, rows, c, q.TenantID)
	meta.CrossCheck = &cc

	pl := p.plausibility.Validate(ctx, rows, c, q.TenantID)
	meta.Plausibility = &pl

	if !pl.Passed {
		// Blocking: the claim must not be repeated as fact.
		meta.ResultValidationFailed = true
		return model.FinalAnswer{
			Text:            refusalText,
			ConfidenceScore: 0.1,
			Metadata:        meta,
		}
	}

	score := baseConfidence
	if len(cc.Warnings) > 0 {
		score -= 0.1
	}
	if score < 0.1 {
		score = 0.1
	}

	return model.FinalAnswer{
		Text:            renderResult(q, rows),
		ConfidenceScore: score,
		QueryResult:     rows,
		Metadata:        meta,
	}
}

func confidenceScore(c model.Confidence) float64 {
	switch c {
	case model.ConfidenceHigh:
		return 0.9
	case model.ConfidenceMedium:
		return 0.7
	default:
		return 0.4
	}
}

func failureAnswer(route string) model.FinalAnswer {
	return model.FinalAnswer{
		Text:            couldNotDetermineText,
		ConfidenceScore: 0,
		Metadata:        model.AnswerMetadata{RoutedTo: route},
	}
}
