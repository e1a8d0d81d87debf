package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_DecodesRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT day, total FROM daily_sales").
		WillReturnRows(
			pgxmock.NewRows([]string{"day", "total"}).
				AddRow("2026-08-20", 1250.50).
				AddRow("2026-08-21", 980.00),
		)

	e := NewExecutor(mock, time.Second)
	out := e.Execute(context.Background(), "SELECT day, total FROM daily_sales WHERE venue_id = 'v1'")

	require.Empty(t, out.Err)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "2026-08-20", out.Rows[0]["day"])
	assert.Equal(t, 1250.50, out.Rows[0]["total"])
	assert.GreaterOrEqual(t, out.DurationMs, int64(0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_QueryErrorIsCaptured(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT").
		WillReturnError(errors.New(`relation "nope" does not exist`))

	e := NewExecutor(mock, time.Second)
	out := e.Execute(context.Background(), "SELECT * FROM nope WHERE venue_id = 'v1'")

	assert.Nil(t, out.Rows)
	assert.Contains(t, out.Err, "does not exist")
}

func TestExecute_EmptyResultSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows([]string{"total"}))

	e := NewExecutor(mock, 0)
	out := e.Execute(context.Background(), "SELECT total FROM orders WHERE venue_id = 'v1'")

	assert.Empty(t, out.Err)
	assert.Empty(t, out.Rows)
}
