// Package plausibility blocks answers that reference facts not present in
// the tenant's data. Unlike the cross-check layer it is a hard gate: a
// failed report means the claim must never be surfaced as an answer.
package plausibility

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/insights-cli/internal/db"
	"github.com/sells-group/insights-cli/internal/model"
)

// DefaultGuardMultiplier bounds how far a claimed monetary figure may sit
// above the tenant's best historical day before it is deemed fabricated.
const DefaultGuardMultiplier = 10.0

// Validator runs existence checks against the tenant's own history.
type Validator struct {
	q     db.Querier
	guard float64
}

// NewValidator creates a Validator. A non-positive guard multiplier falls
// back to DefaultGuardMultiplier.
func NewValidator(q db.Querier, guard float64) *Validator {
	if guard <= 0 {
		guard = DefaultGuardMultiplier
	}
	return &Validator{q: q, guard: guard}
}

// Validate applies category-specific existence checks to the leading result
// row. Claimed dates must occur in the tenant's order history; claimed
// monetary figures must sit within a plausible multiple of the historical
// daily maximum; claimed product names must exist in the tenant's catalog.
// A check that cannot run (store error) is skipped with a log line rather
// than failed: this gate blocks on facts shown to be absent, not on
// infrastructure trouble.
func (v *Validator) Validate(ctx context.Context, rows []map[string]any, c model.Classification, tenantID string) model.PlausibilityReport {
	report := model.PlausibilityReport{Passed: true}
	if len(rows) == 0 {
		return report
	}
	row := rows[0]

	if d, ok := claimedDate(row); ok {
		exists, err := v.dateExists(ctx, tenantID, d)
		if err != nil {
			v.skip(tenantID, "date existence", err)
		} else if !exists {
			report.FailureReasons = append(report.FailureReasons,
				fmt.Sprintf("claimed date %s does not occur in the venue's order history", d.Format("2006-01-02")))
		}
	}

	if amount, ok := leadingNumber(row); ok && amount > 0 && isMonetaryIntent(c.MatchedIntent) {
		maxDaily, err := v.maxDailySales(ctx, tenantID)
		if err != nil {
			v.skip(tenantID, "magnitude", err)
		} else if maxDaily > 0 && amount > maxDaily*v.guard {
			report.FailureReasons = append(report.FailureReasons,
				fmt.Sprintf("claimed amount %.2f is implausible against a historical daily maximum of %.2f", amount, maxDaily))
		}
	}

	if c.MatchedIntent == model.MetricTopProducts {
		if name, ok := leadingEntity(row); ok {
			exists, err := v.productExists(ctx, tenantID, name)
			if err != nil {
				v.skip(tenantID, "product existence", err)
			} else if !exists {
				report.FailureReasons = append(report.FailureReasons,
					fmt.Sprintf("claimed product %q does not exist in the venue's catalog", name))
			}
		}
	}

	if len(report.FailureReasons) > 0 {
		report.Passed = false
		zap.L().Warn("plausibility: blocking implausible result",
			zap.String("tenant_id", tenantID),
			zap.Strings("reasons", report.FailureReasons),
		)
	}
	return report
}

func (v *Validator) skip(tenantID, check string, err error) {
	zap.L().Warn("plausibility: check skipped",
		zap.String("tenant_id", tenantID),
		zap.String("check", check),
		zap.Error(err),
	)
}

func (v *Validator) dateExists(ctx context.Context, tenantID string, d time.Time) (bool, error) {
	return v.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE venue_id = $1 AND created_at::date = $2::date)`,
		tenantID, d.Format("2006-01-02"))
}

func (v *Validator) productExists(ctx context.Context, tenantID, name string) (bool, error) {
	return v.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM order_items WHERE venue_id = $1 AND LOWER(product_name) = LOWER($2))`,
		tenantID, name)
}

func (v *Validator) maxDailySales(ctx context.Context, tenantID string) (float64, error) {
	rows, err := v.q.Query(ctx,
		`SELECT COALESCE(MAX(daily), 0) FROM (SELECT SUM(total) AS daily FROM orders WHERE venue_id = $1 AND status = 'PAID' GROUP BY created_at::date) d`,
		tenantID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var max float64
	if rows.Next() {
		if err := rows.Scan(&max); err != nil {
			return 0, err
		}
	}
	return max, rows.Err()
}

func (v *Validator) exists(ctx context.Context, sql string, args ...any) (bool, error) {
	rows, err := v.q.Query(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var exists bool
	if rows.Next() {
		if err := rows.Scan(&exists); err != nil {
			return false, err
		}
	}
	return exists, rows.Err()
}

func isMonetaryIntent(m model.Metric) bool {
	return m == model.MetricSalesForPeriod || m == model.MetricAverageTicket
}

// claimedDate finds the first date-like value in the row: a time.Time or a
// string shaped like 2006-01-02.
func claimedDate(row map[string]any) (time.Time, bool) {
	for _, k := range sortedKeys(row) {
		switch val := row[k].(type) {
		case time.Time:
			return val, true
		case string:
			if d, err := time.Parse("2006-01-02", val); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func leadingNumber(row map[string]any) (float64, bool) {
	for _, k := range sortedKeys(row) {
		switch n := row[k].(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int32:
			return float64(n), true
		case int64:
			return float64(n), true
		}
	}
	return 0, false
}

func leadingEntity(row map[string]any) (string, bool) {
	for _, k := range sortedKeys(row) {
		if s, ok := row[k].(string); ok && s != "" {
			if _, err := time.Parse("2006-01-02", s); err == nil {
				continue
			}
			return s, true
		}
	}
	return "", false
}

func sortedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
