package schedule

import (
	"testing"
	"time"

	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name      string
		from      time.Time
		frequency string
		want      time.Time
	}{
		{"weekly adds 7 days", date(2024, time.March, 1), models.FrequencyWeekly, date(2024, time.March, 8)},
		{"biweekly adds 14 days", date(2024, time.March, 1), models.FrequencyBiweekly, date(2024, time.March, 15)},
		{"monthly plain", date(2024, time.March, 15), models.FrequencyMonthly, date(2024, time.April, 15)},
		{"monthly clamps to leap february", date(2024, time.January, 31), models.FrequencyMonthly, date(2024, time.February, 29)},
		{"monthly clamps to non-leap february", date(2023, time.January, 31), models.FrequencyMonthly, date(2023, time.February, 28)},
		{"monthly clamps 31st to 30-day month", date(2024, time.March, 31), models.FrequencyMonthly, date(2024, time.April, 30)},
		{"monthly across year boundary", date(2023, time.December, 31), models.FrequencyMonthly, date(2024, time.January, 31)},
		{"quarterly adds 3 months", date(2024, time.January, 15), models.FrequencyQuarterly, date(2024, time.April, 15)},
		{"quarterly clamps", date(2024, time.November, 30), models.FrequencyQuarterly, date(2025, time.February, 28)},
		{"yearly adds 12 months", date(2024, time.June, 1), models.FrequencyYearly, date(2025, time.June, 1)},
		{"yearly leap day clamps", date(2024, time.February, 29), models.FrequencyYearly, date(2025, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.from, tt.frequency)
			if err != nil {
				t.Fatalf("NextOccurrence: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got.Format(time.DateOnly), tt.want.Format(time.DateOnly))
			}
		})
	}
}

func TestNextOccurrenceUnknownFrequency(t *testing.T) {
	if _, err := NextOccurrence(date(2024, time.January, 1), "daily"); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
}

// Every frequency must advance strictly forward; a non-advancing occurrence
// would make the scheduler re-execute the same period forever.
func TestNextOccurrenceStrictlyIncreases(t *testing.T) {
	frequencies := []string{
		models.FrequencyWeekly,
		models.FrequencyBiweekly,
		models.FrequencyMonthly,
		models.FrequencyQuarterly,
		models.FrequencyYearly,
	}
	starts := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2023, time.December, 31),
	}
	for _, freq := range frequencies {
		for _, start := range starts {
			cur := start
			for i := 0; i < 24; i++ {
				next, err := NextOccurrence(cur, freq)
				if err != nil {
					t.Fatalf("%s from %s: %v", freq, cur, err)
				}
				if !next.After(cur) {
					t.Fatalf("%s from %s: next %s does not advance", freq, cur, next)
				}
				cur = next
			}
		}
	}
}

func TestIsDue(t *testing.T) {
	now := date(2024, time.February, 1)
	due := date(2024, time.January, 31)
	future := date(2024, time.February, 2)

	tests := []struct {
		name     string
		template models.ObligationTemplate
		want     bool
	}{
		{"past date is due", models.ObligationTemplate{IsActive: true, NextExecutionDate: &due}, true},
		{"same instant is due", models.ObligationTemplate{IsActive: true, NextExecutionDate: &now}, true},
		{"future date is not due", models.ObligationTemplate{IsActive: true, NextExecutionDate: &future}, false},
		{"paused template is not due", models.ObligationTemplate{IsActive: false, NextExecutionDate: &due}, false},
		{"exhausted template is not due", models.ObligationTemplate{IsActive: true, NextExecutionDate: nil}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDue(&tt.template, now); got != tt.want {
				t.Errorf("IsDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	dates, err := Preview(date(2024, time.January, 31), models.FrequencyMonthly, 3)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 29),
	}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d", len(dates), len(want))
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %s, want %s", i, dates[i].Format(time.DateOnly), want[i].Format(time.DateOnly))
		}
	}

	if _, err := Preview(date(2024, time.January, 1), models.FrequencyMonthly, 0); err == nil {
		t.Fatal("expected error for zero count")
	}
}
