package trusted

import (
	"time"

	"github.com/rotisserie/eris"
)

// Supported reporting periods.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodThisWeek  = "this_week"
	PeriodThisMonth = "this_month"
	PeriodLastMonth = "last_month"
)

// ResolvePeriod maps a period name to a half-open [start, end) interval
// relative to now. An empty period means today.
func ResolvePeriod(period string, now time.Time) (start, end time.Time, err error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch period {
	case "", PeriodToday:
		return midnight, midnight.AddDate(0, 0, 1), nil
	case PeriodYesterday:
		return midnight.AddDate(0, 0, -1), midnight, nil
	case PeriodThisWeek:
		// Week starts Monday.
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		monday := midnight.AddDate(0, 0, -(weekday - 1))
		return monday, monday.AddDate(0, 0, 7), nil
	case PeriodThisMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, 0), nil
	case PeriodLastMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first.AddDate(0, -1, 0), first, nil
	default:
		return time.Time{}, time.Time{}, eris.Errorf("trusted: unknown period %q", period)
	}
}
