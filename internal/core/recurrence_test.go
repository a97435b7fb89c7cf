package core

import (
	"testing"
	"time"
)

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		anchor Date
		rule   Rule
		want   Date
	}{
		{"once past stays past", NewDate(2024, 1, 10), Once, NewDate(2024, 1, 10)},
		{"once future stays future", NewDate(2024, 3, 1), Once, NewDate(2024, 3, 1)},
		{"unknown rule behaves like once", NewDate(2024, 1, 10), Rule("lunar"), NewDate(2024, 1, 10)},
		{"daily catches up to today", NewDate(2024, 1, 1), Daily, NewDate(2024, 2, 15)},
		{"weekly steps by seven", NewDate(2024, 2, 1), Weekly, NewDate(2024, 2, 15)},
		{"biweekly", NewDate(2024, 1, 4), Biweekly, NewDate(2024, 2, 15)},
		{"triweekly", NewDate(2024, 1, 1), Triweekly, NewDate(2024, 3, 4)},
		{"monthly", NewDate(2023, 11, 20), Monthly, NewDate(2024, 2, 20)},
		{"monthly overflow normalizes", NewDate(2024, 1, 31), Monthly, NewDate(2024, 3, 2)},
		{"quarterly", NewDate(2023, 7, 1), Quarterly, NewDate(2024, 4, 1)},
		{"biannual", NewDate(2023, 6, 10), Biannual, NewDate(2024, 6, 10)},
		{"yearly", NewDate(2020, 2, 14), Yearly, NewDate(2025, 2, 14)},
		{"future anchor unchanged", NewDate(2024, 5, 1), Monthly, NewDate(2024, 5, 1)},
		{"anchor on today", NewDate(2024, 2, 15), Daily, NewDate(2024, 2, 15)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextOccurrence(tc.anchor, tc.rule, now)
			if !got.SameDay(tc.want.Time) {
				t.Fatalf("got %s want %s", got.Format("2006-01-02"), tc.want.Format("2006-01-02"))
			}
		})
	}
}

// The result never precedes the calendar day of now for stepping rules,
// even when now has a late time of day.
func TestNextOccurrenceNotInPast(t *testing.T) {
	now := time.Date(2024, 2, 15, 23, 59, 0, 0, time.UTC)
	for _, rule := range []Rule{Daily, Weekly, Biweekly, Triweekly, Monthly, Quarterly, Biannual, Yearly} {
		got := NextOccurrence(NewDate(2022, 3, 7), rule, now)
		if got.DayBefore(now) {
			t.Fatalf("rule %s: %s is before now", rule, got.Format("2006-01-02"))
		}
	}
}

func TestNextOccurrenceDeterministic(t *testing.T) {
	now := time.Date(2024, 2, 15, 8, 0, 0, 0, time.UTC)
	a := NextOccurrence(NewDate(2024, 1, 31), Monthly, now)
	b := NextOccurrence(NewDate(2024, 1, 31), Monthly, now)
	if !a.Equal(b.Time) {
		t.Fatalf("not deterministic: %v vs %v", a, b)
	}
}

func TestRegisterStepper(t *testing.T) {
	const every3 = Rule("every3days")
	RegisterStepper(every3, addDays(3))
	defer delete(ruleSteppers, every3)

	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	got := NextOccurrence(NewDate(2024, 2, 10), every3, now)
	if !got.SameDay(NewDate(2024, 2, 16).Time) {
		t.Fatalf("got %s", got.Format("2006-01-02"))
	}
}
