// Package crosscheck compares generated-SQL results against the trusted
// aggregation path. It is advisory by design: a discrepancy produces a
// warning on the answer, never a rejection.
package crosscheck

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/insights-cli/internal/model"
	"github.com/sells-group/insights-cli/internal/trusted"
)

// DefaultTolerance is the relative difference below which a discrepancy is
// not flagged.
const DefaultTolerance = 0.01

// Gateway computes trusted metric values. *trusted.Gateway is the
// production implementation.
type Gateway interface {
	Compute(ctx context.Context, metric model.Metric, tenantID, period string) (*trusted.Value, error)
}

// Validator holds the gateway and tolerance band.
type Validator struct {
	gateway   Gateway
	tolerance float64
}

// New creates a Validator. A non-positive tolerance falls back to
// DefaultTolerance.
func New(gateway Gateway, tolerance float64) *Validator {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Validator{gateway: gateway, tolerance: tolerance}
}

// Check compares the candidate result against the trusted value for the
// question's matched metric. IsValid is always true; when the comparison
// cannot be performed the report says why and the answer proceeds
// unannotated.
func (v *Validator) Check(ctx context.Context, rows []map[string]any, c model.Classification, tenantID string) model.CrossCheckReport {
	report := model.CrossCheckReport{IsValid: true}

	if c.MatchedIntent == "" {
		report.SkippedReason = "question does not map to a canonical metric"
		return report
	}
	if len(rows) == 0 {
		// Nothing to contradict.
		report.SkippedReason = "candidate result is empty"
		return report
	}

	value, err := v.gateway.Compute(ctx, c.MatchedIntent, tenantID, c.Period)
	if err != nil {
		zap.L().Warn("crosscheck: trusted value unavailable",
			zap.String("tenant_id", tenantID),
			zap.String("metric", string(c.MatchedIntent)),
			zap.Error(err),
		)
		report.SkippedReason = "trusted value unavailable"
		return report
	}

	switch c.MatchedIntent {
	case model.MetricSalesForPeriod, model.MetricAverageTicket:
		return v.checkScalar(report, rows, value, c.MatchedIntent)
	case model.MetricTopProducts:
		return v.checkLeadingEntity(report, rows, value)
	default:
		report.SkippedReason = fmt.Sprintf("metric %s is not comparable", c.MatchedIntent)
		return report
	}
}

func (v *Validator) checkScalar(report model.CrossCheckReport, rows []map[string]any, value *trusted.Value, metric model.Metric) model.CrossCheckReport {
	got, ok := leadingNumber(rows)
	if !ok {
		report.SkippedReason = "candidate result has no numeric value"
		return report
	}
	report.Performed = true

	if value.Amount == 0 {
		if got != 0 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("candidate reports %.2f but the trusted %s value is zero", got, metric))
		}
		return report
	}

	diff := math.Abs(got-value.Amount) / math.Abs(value.Amount)
	if diff > v.tolerance {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("candidate value %.2f deviates %.1f%% from trusted %s value %.2f",
				got, diff*100, metric, value.Amount))
	}
	return report
}

func (v *Validator) checkLeadingEntity(report model.CrossCheckReport, rows []map[string]any, value *trusted.Value) model.CrossCheckReport {
	got, ok := leadingEntity(rows)
	if !ok {
		report.SkippedReason = "candidate result has no leading entity"
		return report
	}
	want, ok := leadingEntity(value.Rows)
	if !ok {
		report.SkippedReason = "trusted result has no leading entity"
		return report
	}
	report.Performed = true

	if !strings.EqualFold(got, want) {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("candidate ranks %q first but the trusted ranking leads with %q", got, want))
	}
	return report
}

// leadingNumber returns the first numeric column of the first row, visiting
// columns in sorted order for determinism.
func leadingNumber(rows []map[string]any) (float64, bool) {
	if len(rows) == 0 {
		return 0, false
	}
	for _, k := range sortedKeys(rows[0]) {
		switch n := rows[0][k].(type) {
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

// leadingEntity returns the first string column of the first row.
func leadingEntity(rows []map[string]any) (string, bool) {
	if len(rows) == 0 {
		return "", false
	}
	for _, k := range sortedKeys(rows[0]) {
		if s, ok := rows[0][k].(string); ok && s != "" {
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
