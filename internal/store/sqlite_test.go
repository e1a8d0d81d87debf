package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/insights-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func auditQuestion(id, tenant, text string) model.Question {
	return model.Question{
		ID:       id,
		Text:     text,
		TenantID: tenant,
		UserID:   "u1",
		AskedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteStore_SaveAndList(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	answer := model.FinalAnswer{
		Text:            "Your sales today total $12500.00.",
		ConfidenceScore: 0.95,
		QueryResult:     []map[string]any{{"value": 12500.0}},
		Metadata:        model.AnswerMetadata{RoutedTo: model.RouteTrustedAggregation},
	}
	require.NoError(t, s.SaveQuery(ctx, auditQuestion("q1", "v1", "How much did I sell today?"), answer))

	records, err := s.ListQueries(ctx, QueryFilter{TenantID: "v1"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "q1", records[0].ID)
	assert.Equal(t, "v1", records[0].TenantID)
	assert.Equal(t, "u1", records[0].UserID)
	assert.Equal(t, model.RouteTrustedAggregation, records[0].RoutedTo)
	assert.Equal(t, 0.95, records[0].ConfidenceScore)
	assert.Equal(t, answer.Text, records[0].Answer.Text)
	require.Len(t, records[0].Answer.QueryResult, 1)
}

func TestSQLiteStore_ListFiltersByTenant(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for i, tenant := range []string{"v1", "v1", "v2"} {
		q := auditQuestion(tenant+"-"+string(rune('a'+i)), tenant, "question")
		require.NoError(t, s.SaveQuery(ctx, q, model.FinalAnswer{
			Metadata: model.AnswerMetadata{RoutedTo: model.RouteSingleGeneration},
		}))
	}

	v1, err := s.ListQueries(ctx, QueryFilter{TenantID: "v1"})
	require.NoError(t, err)
	assert.Len(t, v1, 2)

	v2, err := s.ListQueries(ctx, QueryFilter{TenantID: "v2"})
	require.NoError(t, err)
	assert.Len(t, v2, 1)
}

func TestSQLiteStore_ListFiltersByRoute(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveQuery(ctx, auditQuestion("q1", "v1", "a"), model.FinalAnswer{
		Metadata: model.AnswerMetadata{RoutedTo: model.RouteTrustedAggregation},
	}))
	require.NoError(t, s.SaveQuery(ctx, auditQuestion("q2", "v1", "b"), model.FinalAnswer{
		Metadata: model.AnswerMetadata{RoutedTo: model.RouteConsensusVoting},
	}))

	records, err := s.ListQueries(ctx, QueryFilter{RoutedTo: model.RouteConsensusVoting})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "q2", records[0].ID)
}

func TestSQLiteStore_ListLimit(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		q := model.Question{
			ID:       string(rune('a' + i)),
			Text:     "question",
			TenantID: "v1",
			AskedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.SaveQuery(ctx, q, model.FinalAnswer{
			Metadata: model.AnswerMetadata{RoutedTo: model.RouteSingleGeneration},
		}))
	}

	records, err := s.ListQueries(ctx, QueryFilter{TenantID: "v1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first
	assert.Equal(t, "e", records[0].ID)
	assert.Equal(t, "d", records[1].ID)
}

func TestNop_Discards(t *testing.T) {
	var s Store = Nop{}
	ctx := context.Background()

	require.NoError(t, s.SaveQuery(ctx, auditQuestion("q1", "v1", "a"), model.FinalAnswer{}))
	records, err := s.ListQueries(ctx, QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, s.Migrate(ctx))
	assert.NoError(t, s.Close())
}
