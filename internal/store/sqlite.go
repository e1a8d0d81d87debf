package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/insights-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It suits
// single-node deployments that want an audit trail without a second
// Postgres database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS query_audit (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	user_id    TEXT,
	question   TEXT NOT NULL,
	routed_to  TEXT NOT NULL,
	confidence REAL NOT NULL,
	answer     TEXT NOT NULL,
	asked_at   DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_query_audit_tenant ON query_audit(tenant_id, asked_at DESC);
CREATE INDEX IF NOT EXISTS idx_query_audit_routed_to ON query_audit(routed_to);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveQuery(ctx context.Context, q model.Question, answer model.FinalAnswer) error {
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal answer")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO query_audit (id, tenant_id, user_id, question, routed_to, confidence, answer, asked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.TenantID, q.UserID, q.Text,
		answer.Metadata.RoutedTo, answer.ConfidenceScore, string(answerJSON), q.AskedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert query %s", q.ID)
}

func (s *SQLiteStore) ListQueries(ctx context.Context, filter QueryFilter) ([]QueryRecord, error) {
	query := `SELECT id, tenant_id, user_id, question, routed_to, confidence, answer, asked_at, created_at
	          FROM query_audit WHERE 1=1`
	var args []any

	if filter.TenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, filter.TenantID)
	}
	if filter.RoutedTo != "" {
		query += ` AND routed_to = ?`
		args = append(args, filter.RoutedTo)
	}
	query += ` ORDER BY asked_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + strconv.Itoa(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + strconv.Itoa(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list queries")
	}
	defer rows.Close()

	var records []QueryRecord
	for rows.Next() {
		var r QueryRecord
		var userID sql.NullString
		var answerJSON string
		if err := rows.Scan(&r.ID, &r.TenantID, &userID, &r.Question,
			&r.RoutedTo, &r.ConfidenceScore, &answerJSON, &r.AskedAt, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan query record")
		}
		r.UserID = userID.String
		if err := json.Unmarshal([]byte(answerJSON), &r.Answer); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal answer")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list queries iterate")
}
