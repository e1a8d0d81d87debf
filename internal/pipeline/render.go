package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/insights-cli/internal/model"
	"github.com/sells-group/insights-cli/internal/trusted"
)

const (
	couldNotDetermineText = "I could not determine a reliable answer to that question from your sales data."
	refusalText           = "I found a result but could not verify it against your data, so I won't present it as fact. Try rephrasing or narrowing the question."
)

// periodLabels maps canonical periods back to answer phrasing.
var periodLabels = map[string]string{
	trusted.PeriodToday:     "today",
	trusted.PeriodYesterday: "yesterday",
	trusted.PeriodThisWeek:  "this week",
	trusted.PeriodThisMonth: "this month",
	trusted.PeriodLastMonth: "last month",
}

func periodLabel(period string) string {
	if l, ok := periodLabels[period]; ok {
		return l
	}
	return "for the period"
}

// renderTrusted phrases a canonical metric value.
func renderTrusted(c model.Classification, v *trusted.Value) string {
	switch v.Metric {
	case model.MetricSalesForPeriod:
		return fmt.Sprintf("Your sales %s total $%.2f.", periodLabel(c.Period), v.Amount)
	case model.MetricAverageTicket:
		return fmt.Sprintf("Your average ticket %s is $%.2f.", periodLabel(c.Period), v.Amount)
	case model.MetricTopProducts:
		if len(v.Rows) == 0 {
			return fmt.Sprintf("No product sales recorded %s.", periodLabel(c.Period))
		}
		var names []string
		for _, row := range v.Rows {
			if name, ok := row["product_name"].(string); ok {
				names = append(names, name)
			}
		}
		return fmt.Sprintf("Your top products %s: %s.", periodLabel(c.Period), strings.Join(names, ", "))
	case model.MetricReviewStats:
		if len(v.Rows) > 0 {
			row := v.Rows[0]
			return fmt.Sprintf("You have %v reviews %s with an average rating of %v.",
				row["review_count"], periodLabel(c.Period), row["average_rating"])
		}
	}
	return fmt.Sprintf("%s %s: %.2f", v.Metric, periodLabel(c.Period), v.Amount)
}

func trustedRows(v *trusted.Value) []map[string]any {
	if len(v.Rows) > 0 {
		return v.Rows
	}
	return []map[string]any{{"value": v.Amount}}
}

// renderResult phrases a generated-SQL result conservatively: the leading
// row's columns, no editorializing beyond what the data shows.
func renderResult(q model.Question, rows []map[string]any) string {
	if len(rows) == 0 {
		return "No matching data was found for that question."
	}

	parts := make([]string, 0, len(rows[0]))
	keys := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, rows[0][k]))
	}

	summary := strings.Join(parts, ", ")
	if len(rows) == 1 {
		return fmt.Sprintf("Here is what your data shows: %s.", summary)
	}
	return fmt.Sprintf("Here is what your data shows: %s (%d rows total).", summary, len(rows))
}
