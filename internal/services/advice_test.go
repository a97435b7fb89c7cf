package services

import (
	"testing"
	"time"

	"followe/internal/core"
)

func adviceItem(anchor core.Date, rule core.Rule, prio core.Priority, cents int64, active bool) core.Item {
	return core.Item{
		Title:       "x",
		Amount:      core.Money{Cents: cents},
		Category:    core.Bill,
		AnchorDate:  anchor,
		PrimaryTime: "09:00",
		Rule:        rule,
		Priority:    prio,
		IsActive:    active,
	}
}

func TestComputeAdviceBands(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		items []core.Item
		band  Band
		count int
		total int64
	}{
		{"no items", nil, BandGettingStarted, 0, 0},
		{"only inactive", []core.Item{
			adviceItem(core.NewDate(2025, 6, 10), core.Once, core.Medium, 100, false),
		}, BandGettingStarted, 0, 0},
		{"due today wins", []core.Item{
			adviceItem(core.NewDate(2025, 6, 10), core.Once, core.Medium, 1500, true),
			adviceItem(core.NewDate(2025, 6, 12), core.Once, core.High, 2000, true),
		}, BandToday, 1, 1500},
		{"week band", []core.Item{
			adviceItem(core.NewDate(2025, 6, 14), core.Once, core.Medium, 700, true),
			adviceItem(core.NewDate(2025, 6, 17), core.Once, core.Medium, 300, true),
		}, BandWeek, 2, 1000},
		{"week boundary day 7 included", []core.Item{
			adviceItem(core.NewDate(2025, 6, 17), core.Once, core.Medium, 500, true),
		}, BandWeek, 1, 500},
		{"month band past week window", []core.Item{
			adviceItem(core.NewDate(2025, 6, 25), core.Once, core.Medium, 900, true),
		}, BandMonth, 1, 900},
		{"stale once item skips month band", []core.Item{
			adviceItem(core.NewDate(2025, 6, 5), core.Once, core.Medium, 900, true),
		}, BandAllClear, 0, 0},
		{"stale once item falls through to high priority", []core.Item{
			adviceItem(core.NewDate(2025, 6, 5), core.Once, core.High, 900, true),
		}, BandHighPriority, 1, 900},
		{"high priority backlog", []core.Item{
			adviceItem(core.NewDate(2025, 9, 1), core.Once, core.High, 5000, true),
		}, BandHighPriority, 1, 5000},
		{"all clear", []core.Item{
			adviceItem(core.NewDate(2025, 9, 1), core.Once, core.Low, 100, true),
		}, BandAllClear, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeAdvice(tc.items, now)
			if got.Band != tc.band {
				t.Fatalf("band: got %q want %q", got.Band, tc.band)
			}
			if got.Count != tc.count {
				t.Fatalf("count: got %d want %d", got.Count, tc.count)
			}
			if got.Total.Cents != tc.total {
				t.Fatalf("total: got %d want %d", got.Total.Cents, tc.total)
			}
			if got.Headline == "" || got.Detail == "" {
				t.Fatal("expected headline and detail")
			}
		})
	}
}

func TestComputeAdviceRecurringCatchesUp(t *testing.T) {
	// Anchored months ago, monthly: next occurrence lands on today.
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	items := []core.Item{
		adviceItem(core.NewDate(2025, 1, 10), core.Monthly, core.Medium, 4200, true),
	}
	got := ComputeAdvice(items, now)
	if got.Band != BandToday {
		t.Fatalf("got band %q", got.Band)
	}
	if got.Total.Cents != 4200 {
		t.Fatalf("got total %d", got.Total.Cents)
	}
}
