package plausibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/insights-cli/internal/model"
)

func salesClassification() model.Classification {
	return model.Classification{Tier: model.TierConsensus, MatchedIntent: model.MetricSalesForPeriod}
}

func TestValidate_EmptyResultPasses(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	report := NewValidator(mock, 0).Validate(context.Background(), nil, salesClassification(), "v1")
	assert.True(t, report.Passed)
}

func TestValidate_KnownDatePasses(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("v1", "2026-08-20").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(daily\), 0\)`).
		WithArgs("v1").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(2000.0))

	rows := []map[string]any{{"day": "2026-08-20", "total": 1800.0}}
	report := NewValidator(mock, 0).Validate(context.Background(), rows, salesClassification(), "v1")

	assert.True(t, report.Passed)
	assert.Empty(t, report.FailureReasons)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidate_UnknownDateBlocks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("v1", "2031-01-01").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(daily\), 0\)`).
		WithArgs("v1").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(2000.0))

	rows := []map[string]any{{"day": "2031-01-01", "total": 1800.0}}
	report := NewValidator(mock, 0).Validate(context.Background(), rows, salesClassification(), "v1")

	require.False(t, report.Passed)
	assert.Contains(t, report.FailureReasons[0], "2031-01-01")
}

func TestValidate_TimeValueChecked(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("v1", "2026-08-19").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	rows := []map[string]any{{"day": time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)}}
	c := model.Classification{Tier: model.TierSingle}
	report := NewValidator(mock, 0).Validate(context.Background(), rows, c, "v1")
	assert.True(t, report.Passed)
}

func TestValidate_ImplausibleAmountBlocks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(daily\), 0\)`).
		WithArgs("v1").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(2000.0))

	// 2000 max daily * guard 10 = 20000; one million is fabricated.
	rows := []map[string]any{{"total": 1_000_000.0}}
	report := NewValidator(mock, 0).Validate(context.Background(), rows, salesClassification(), "v1")

	require.False(t, report.Passed)
	assert.Contains(t, report.FailureReasons[0], "implausible")
}

func TestValidate_NoHistoryDoesNotBlockAmount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(daily\), 0\)`).
		WithArgs("v1").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(0.0))

	rows := []map[string]any{{"total": 500.0}}
	report := NewValidator(mock, 0).Validate(context.Background(), rows, salesClassification(), "v1")
	assert.True(t, report.Passed)
}

func TestValidate_UnknownProductBlocks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("v1", "Unicorn Latte").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	rows := []map[string]any{{"product_name": "Unicorn Latte", "units": int64(99)}}
	c := model.Classification{Tier: model.TierConsensus, MatchedIntent: model.MetricTopProducts}
	report := NewValidator(mock, 0).Validate(context.Background(), rows, c, "v1")

	require.False(t, report.Passed)
	assert.Contains(t, report.FailureReasons[0], "Unicorn Latte")
}

func TestValidate_StoreErrorSkipsCheck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(daily\), 0\)`).
		WithArgs("v1").
		WillReturnError(errors.New("connection refused"))

	// The gate blocks on demonstrated absence, not on store trouble.
	rows := []map[string]any{{"total": 500.0}}
	report := NewValidator(mock, 0).Validate(context.Background(), rows, salesClassification(), "v1")
	assert.True(t, report.Passed)
}
