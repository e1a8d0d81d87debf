package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/insights-cli/internal/model"
	"github.com/sells-group/insights-cli/internal/store"
)

// seedAuditDB writes two audited queries for different tenants into a fresh
// sqlite file and returns its path.
func seedAuditDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")

	st, err := store.NewSQLite(path)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(context.Background()))

	require.NoError(t, st.SaveQuery(context.Background(),
		model.NewQuestion("How much did I sell today?", "v1", "u1"),
		model.FinalAnswer{
			Text:            "Your sales today total $12500.00.",
			ConfidenceScore: 0.95,
			Metadata:        model.AnswerMetadata{RoutedTo: model.RouteTrustedAggregation},
		}))
	require.NoError(t, st.SaveQuery(context.Background(),
		model.NewQuestion("Which categories had orders?", "v2", ""),
		model.FinalAnswer{
			Text:            "Here is what your data shows: 3 categories.",
			ConfidenceScore: 0.7,
			Metadata:        model.AnswerMetadata{RoutedTo: model.RouteSingleGeneration},
		}))
	return path
}

func runQueries(t *testing.T, args ...string) ([]store.QueryRecord, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"queries"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		queriesTenant = ""
		queriesRoute = ""
		queriesLimit = 20
		queriesOffset = 0
	})

	err := rootCmd.Execute()

	var records []store.QueryRecord
	if trimmed := bytes.TrimSpace(out.Bytes()); len(trimmed) > 0 && trimmed[0] == '[' {
		require.NoError(t, json.NewDecoder(bytes.NewReader(trimmed)).Decode(&records))
	}
	return records, err
}

func TestQueriesCommand_ListsAuditTrail(t *testing.T) {
	path := seedAuditDB(t)
	t.Setenv("INSIGHTS_STORE_DRIVER", "sqlite")
	t.Setenv("INSIGHTS_STORE_SQLITE_PATH", path)

	records, err := runQueries(t)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestQueriesCommand_FiltersByTenant(t *testing.T) {
	path := seedAuditDB(t)
	t.Setenv("INSIGHTS_STORE_DRIVER", "sqlite")
	t.Setenv("INSIGHTS_STORE_SQLITE_PATH", path)

	records, err := runQueries(t, "--tenant", "v1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "v1", records[0].TenantID)
	assert.Equal(t, "How much did I sell today?", records[0].Question)
	assert.Equal(t, model.RouteTrustedAggregation, records[0].RoutedTo)
	assert.InDelta(t, 0.95, records[0].ConfidenceScore, 0.001)
	assert.Equal(t, "Your sales today total $12500.00.", records[0].Answer.Text)
}

func TestQueriesCommand_FiltersByRoute(t *testing.T) {
	path := seedAuditDB(t)
	t.Setenv("INSIGHTS_STORE_DRIVER", "sqlite")
	t.Setenv("INSIGHTS_STORE_SQLITE_PATH", path)

	records, err := runQueries(t, "--route", model.RouteSingleGeneration)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "v2", records[0].TenantID)
}

func TestQueriesCommand_EmptyStoreReturnsEmptyList(t *testing.T) {
	t.Setenv("INSIGHTS_STORE_DRIVER", "sqlite")
	t.Setenv("INSIGHTS_STORE_SQLITE_PATH", filepath.Join(t.TempDir(), "audit.db"))

	records, err := runQueries(t)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestQueriesCommand_DisabledStore(t *testing.T) {
	t.Setenv("INSIGHTS_STORE_DRIVER", "none")

	_, err := runQueries(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit store is disabled")
}
