// Package schedule computes occurrence dates for recurring obligations.
// Everything here is pure: no clock reads, no I/O. The scheduler uses it to
// advance templates after each execution and the template handlers use it to
// preview upcoming dates.
package schedule

import (
	"fmt"
	"time"

	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
)

// NextOccurrence returns the occurrence that follows from. Weekly and
// biweekly add whole days; monthly, quarterly, and yearly add calendar
// months with the day-of-month clamped to the last valid day of the target
// month, so Jan 31 + monthly lands on Feb 28 (or 29 in a leap year).
func NextOccurrence(from time.Time, frequency string) (time.Time, error) {
	switch frequency {
	case models.FrequencyWeekly:
		return from.AddDate(0, 0, 7), nil
	case models.FrequencyBiweekly:
		return from.AddDate(0, 0, 14), nil
	case models.FrequencyMonthly:
		return addMonthsClamped(from, 1), nil
	case models.FrequencyQuarterly:
		return addMonthsClamped(from, 3), nil
	case models.FrequencyYearly:
		return addMonthsClamped(from, 12), nil
	default:
		return time.Time{}, fmt.Errorf("unknown frequency: %s", frequency)
	}
}

// AddMonths adds calendar months with month-end clamping. Subscription
// extension uses the same arithmetic as obligation occurrences.
func AddMonths(t time.Time, months int) time.Time {
	return addMonthsClamped(t, months)
}

// addMonthsClamped adds months without the normalization time.AddDate does
// (Jan 31 + 1 month must not become Mar 3).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	targetMonth := time.Month(int(month) + months)
	last := daysIn(year, targetMonth)
	if day > last {
		day = last
	}
	return time.Date(year, targetMonth, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month; month may be out of
// the 1..12 range and is normalized the way time.Date normalizes it.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsDue reports whether the template has an occurrence at or before asOf.
// Inactive and exhausted templates are never due. A template several periods
// behind is still due; the scheduler resolves the backlog one period per
// pass by re-evaluating IsDue, never by backdating multiple entries at once.
func IsDue(t *models.ObligationTemplate, asOf time.Time) bool {
	if !t.IsActive || t.NextExecutionDate == nil {
		return false
	}
	return !t.NextExecutionDate.After(asOf)
}

// Preview returns the first n occurrences from anchor, anchor included.
// Used by template creation and edit flows to show upcoming dates.
func Preview(anchor time.Time, frequency string, n int) ([]time.Time, error) {
	if n < 1 {
		return nil, fmt.Errorf("preview count must be >= 1")
	}
	dates := make([]time.Time, 0, n)
	cur := anchor
	for i := 0; i < n; i++ {
		dates = append(dates, cur)
		next, err := NextOccurrence(cur, frequency)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return dates, nil
}
