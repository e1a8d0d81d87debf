package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/insights-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock implements
// it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults. The audit
	// trail sees one write per question, so the pool stays small.
	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS query_audit (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id  TEXT NOT NULL,
	user_id    TEXT,
	question   TEXT NOT NULL,
	routed_to  TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	answer     JSONB NOT NULL,
	asked_at   TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_query_audit_tenant ON query_audit(tenant_id, asked_at DESC);
CREATE INDEX IF NOT EXISTS idx_query_audit_routed_to ON query_audit(routed_to);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveQuery(ctx context.Context, q model.Question, answer model.FinalAnswer) error {
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal answer")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO query_audit (id, tenant_id, user_id, question, routed_to, confidence, answer, asked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, q.TenantID, q.UserID, q.Text,
		answer.Metadata.RoutedTo, answer.ConfidenceScore, answerJSON, q.AskedAt,
	)
	return eris.Wrapf(err, "postgres: insert query %s", q.ID)
}

func (s *PostgresStore) ListQueries(ctx context.Context, filter QueryFilter) ([]QueryRecord, error) {
	query := `SELECT id, tenant_id, user_id, question, routed_to, confidence, answer, asked_at, created_at
	          FROM query_audit WHERE 1=1`
	var args []any

	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		query += ` AND tenant_id = $1`
	}
	if filter.RoutedTo != "" {
		args = append(args, filter.RoutedTo)
		query += ` AND routed_to = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY asked_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list queries")
	}
	defer rows.Close()

	var records []QueryRecord
	for rows.Next() {
		var r QueryRecord
		var answerJSON []byte
		if err := rows.Scan(&r.ID, &r.TenantID, &r.UserID, &r.Question,
			&r.RoutedTo, &r.ConfidenceScore, &answerJSON, &r.AskedAt, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan query record")
		}
		if err := json.Unmarshal(answerJSON, &r.Answer); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal answer")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list queries iterate")
}
