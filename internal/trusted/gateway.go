// Package trusted adapts the precomputed aggregation path into a small set
// of canonical metrics. It is the deterministic ground truth the pipeline
// uses both as a fast path for simple questions and for cross-checking
// generated SQL.
package trusted

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/insights-cli/internal/db"
	"github.com/sells-group/insights-cli/internal/model"
)

// Value is a computed canonical metric: a scalar amount for numeric
// metrics, rows for top_products and review_stats.
type Value struct {
	Metric model.Metric     `json:"metric"`
	Amount float64          `json:"amount"`
	Rows   []map[string]any `json:"rows,omitempty"`
}

// Gateway computes canonical metrics directly against the sales store. It
// is a pure adapter: metric name in, collaborator query out, no business
// logic beyond the mapping.
type Gateway struct {
	q   db.Querier
	now func() time.Time
}

// NewGateway creates a Gateway. Returns nil if q is nil.
func NewGateway(q db.Querier) *Gateway {
	if q == nil {
		return nil
	}
	return &Gateway{q: q, now: time.Now}
}

// WithNow sets a fixed clock for testing.
func (g *Gateway) WithNow(t time.Time) *Gateway {
	g.now = func() time.Time { return t }
	return g
}

// topProductsLimit is the row cap for the top_products metric.
const topProductsLimit = 5

// Compute evaluates metric for one tenant and period. Any store error
// propagates as "trusted value unavailable"; the cross-check layer responds
// by skipping rather than failing the request.
func (g *Gateway) Compute(ctx context.Context, metric model.Metric, tenantID, period string) (*Value, error) {
	start, end, err := ResolvePeriod(period, g.now())
	if err != nil {
		return nil, err
	}

	switch metric {
	case model.MetricSalesForPeriod:
		return g.scalar(ctx, metric,
			`SELECT COALESCE(SUM(total), 0) FROM orders WHERE venue_id = $1 AND status = 'PAID' AND created_at >= $2 AND created_at < $3`,
			tenantID, start, end)
	case model.MetricAverageTicket:
		return g.scalar(ctx, metric,
			`SELECT COALESCE(AVG(total), 0) FROM orders WHERE venue_id = $1 AND status = 'PAID' AND created_at >= $2 AND created_at < $3`,
			tenantID, start, end)
	case model.MetricTopProducts:
		return g.rows(ctx, metric,
			`SELECT product_name, SUM(quantity) AS units FROM order_items WHERE venue_id = $1 AND created_at >= $2 AND created_at < $3 GROUP BY product_name ORDER BY units DESC LIMIT `+strconv.Itoa(topProductsLimit),
			tenantID, start, end)
	case model.MetricReviewStats:
		return g.rows(ctx, metric,
			`SELECT COUNT(*) AS review_count, COALESCE(AVG(rating), 0) AS average_rating FROM reviews WHERE venue_id = $1 AND created_at >= $2 AND created_at < $3`,
			tenantID, start, end)
	default:
		return nil, eris.Errorf("trusted: unknown metric %q", metric)
	}
}

func (g *Gateway) scalar(ctx context.Context, metric model.Metric, sql string, args ...any) (*Value, error) {
	rows, err := g.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "trusted: %s unavailable", metric)
	}
	defer rows.Close()

	var amount float64
	if rows.Next() {
		if err := rows.Scan(&amount); err != nil {
			return nil, eris.Wrapf(err, "trusted: %s scan", metric)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "trusted: %s unavailable", metric)
	}
	return &Value{Metric: metric, Amount: amount}, nil
}

func (g *Gateway) rows(ctx context.Context, metric model.Metric, sql string, args ...any) (*Value, error) {
	rows, err := g.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "trusted: %s unavailable", metric)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, eris.Wrapf(err, "trusted: %s scan", metric)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "trusted: %s unavailable", metric)
	}
	return &Value{Metric: metric, Rows: out}, nil
}
