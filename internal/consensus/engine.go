// Package consensus runs several independent SQL generations for one
// question and reconciles their disagreement by majority vote.
package consensus

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/insights-cli/internal/model"
)

// CandidateRunner produces one candidate per call. *candidate.Runner is the
// production implementation.
type CandidateRunner interface {
	Run(ctx context.Context, q model.Question, genIndex int) model.SqlCandidate
}

// Config tunes the consensus engine.
type Config struct {
	// Generations is the number of independent candidates per question.
	Generations int `yaml:"generations" mapstructure:"generations"`
	// Epsilon is the relative difference under which two numeric results
	// count as equivalent.
	Epsilon float64 `yaml:"epsilon" mapstructure:"epsilon"`
	// MediumAtTwoThirds maps 2-of-3 agreement to MEDIUM instead of HIGH.
	MediumAtTwoThirds bool `yaml:"medium_at_two_thirds" mapstructure:"medium_at_two_thirds"`
}

// DefaultConfig returns the standard 3-way voting configuration.
func DefaultConfig() Config {
	return Config{
		Generations: 3,
		Epsilon:     0.01,
	}
}

// Engine coordinates concurrent candidate runs and majority grouping.
type Engine struct {
	runner CandidateRunner
	cfg    Config
}

// NewEngine creates an Engine.
func NewEngine(runner CandidateRunner, cfg Config) *Engine {
	if cfg.Generations <= 0 {
		cfg.Generations = 3
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 0.01
	}
	return &Engine{runner: runner, cfg: cfg}
}

// Run launches the configured number of candidates concurrently, groups the
// successful results by equivalence and returns the majority verdict. The
// winning candidate is nil when nothing executed successfully; the caller
// must then produce a graceful failure response. A failing candidate never
// aborts its siblings: if the question deadline expires, still-running
// candidates fail on their own context errors while completed ones keep
// voting.
func (e *Engine) Run(ctx context.Context, q model.Question) (model.ConsensusReport, *model.SqlCandidate) {
	candidates := make([]model.SqlCandidate, e.cfg.Generations)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.cfg.Generations; i++ {
		g.Go(func() error {
			candidates[i] = e.runner.Run(gctx, q, i)
			return nil
		})
	}
	_ = g.Wait()

	var successful []model.SqlCandidate
	for _, c := range candidates {
		if c.Succeeded() {
			successful = append(successful, c)
		}
	}

	report := model.ConsensusReport{
		TotalGenerations:     e.cfg.Generations,
		SuccessfulExecutions: len(successful),
	}

	if len(successful) == 0 {
		report.Confidence = model.ConfidenceLow
		zap.L().Warn("consensus: all candidates failed",
			zap.String("question_id", q.ID),
			zap.Int("total_generations", e.cfg.Generations),
		)
		return report, nil
	}

	groups := groupByEquivalence(successful, e.cfg.Epsilon)
	majority := groups[0]
	for _, grp := range groups[1:] {
		// Strictly greater: on ties the earlier group wins, and groups are
		// created in generation-index order, so the tie-break is the lowest
		// representative index.
		if len(grp) > len(majority) {
			majority = grp
		}
	}

	report.MajorityGroupSize = len(majority)
	if len(successful) >= 2 {
		// Integer division on purpose: 2 of 3 reports 66, not 67.
		report.AgreementPercent = 100 * len(majority) / len(successful)
	}
	report.Confidence = e.confidence(len(successful), report.AgreementPercent)

	winner := majority[0]
	zap.L().Info("consensus: vote complete",
		zap.String("question_id", q.ID),
		zap.Int("successful_executions", report.SuccessfulExecutions),
		zap.Int("majority_group_size", report.MajorityGroupSize),
		zap.Int("agreement_percent", report.AgreementPercent),
		zap.String("confidence", string(report.Confidence)),
		zap.Int("winning_index", winner.GenerationIndex),
	)
	return report, &winner
}

// confidence maps agreement to a tier. A lone successful execution has no
// agreement signal at all, which is worth less than two agreeing ones.
func (e *Engine) confidence(successes, agreementPercent int) model.Confidence {
	if successes < 2 {
		return model.ConfidenceLow
	}
	switch {
	case agreementPercent == 100:
		return model.ConfidenceHigh
	case agreementPercent >= 66:
		if e.cfg.MediumAtTwoThirds {
			return model.ConfidenceMedium
		}
		return model.ConfidenceHigh
	default:
		return model.ConfidenceLow
	}
}
