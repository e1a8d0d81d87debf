package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insights-cli/internal/candidate"
	"github.com/sells-group/insights-cli/internal/consensus"
	"github.com/sells-group/insights-cli/internal/crosscheck"
	"github.com/sells-group/insights-cli/internal/db"
	"github.com/sells-group/insights-cli/internal/pipeline"
	"github.com/sells-group/insights-cli/internal/plausibility"
	"github.com/sells-group/insights-cli/internal/resilience"
	"github.com/sells-group/insights-cli/internal/store"
	"github.com/sells-group/insights-cli/internal/trusted"
	anthropicpkg "github.com/sells-group/insights-cli/pkg/anthropic"
)

// pipelineEnv holds the analytics pool, the audit store and the assembled
// pipeline for the ask/serve commands.
type pipelineEnv struct {
	Pool     *pgxpool.Pool
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
	if pe.Pool != nil {
		pe.Pool.Close()
	}
}

// initPipeline validates the config for the given mode, connects the
// read-only analytics pool and the audit store, and builds the pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	pool, err := db.NewReadOnlyPool(ctx, cfg.Database.URL, &db.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		pool.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	client := anthropicpkg.NewClient(cfg.Anthropic.Key, cfg.Anthropic.RequestsPerSec)
	generator := candidate.NewClaudeGenerator(client, cfg.Anthropic.Model,
		resilience.FromRetryConfig(cfg.Anthropic.MaxAttempts, cfg.Anthropic.BackoffMs, 0, 0, -1))

	executor := db.NewExecutor(pool, cfg.Pipeline.SingleTimeout)
	runner := candidate.NewRunner(generator, executor)
	gateway := trusted.NewGateway(pool)

	engine := consensus.NewEngine(runner, consensus.Config{
		Generations:       cfg.Pipeline.ConsensusGenerations,
		Epsilon:           cfg.Pipeline.ConsensusEpsilon,
		MediumAtTwoThirds: cfg.Pipeline.MediumAtTwoThirds,
	})

	p := pipeline.New(
		gateway,
		runner,
		engine,
		crosscheck.New(gateway, cfg.Pipeline.CrossCheckTolerance),
		plausibility.NewValidator(pool, cfg.Pipeline.PlausibilityMultiplier),
		st,
		pipeline.Config{
			TrustedTimeout:   cfg.Pipeline.TrustedTimeout,
			SingleTimeout:    cfg.Pipeline.SingleTimeout,
			ConsensusTimeout: cfg.Pipeline.ConsensusTimeout,
		},
	)

	zap.L().Info("pipeline initialized",
		zap.String("model", cfg.Anthropic.Model),
		zap.String("audit_driver", cfg.Store.Driver),
		zap.Int("consensus_generations", cfg.Pipeline.ConsensusGenerations),
	)

	return &pipelineEnv{Pool: pool, Store: st, Pipeline: p}, nil
}

// initStore creates the configured audit store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = cfg.Database.URL
		}
		return store.NewPostgres(ctx, dsn, nil)
	case "sqlite":
		return store.NewSQLite(cfg.Store.SqlitePath)
	case "none", "":
		return store.Nop{}, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
