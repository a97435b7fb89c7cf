package services

import (
	"time"

	"followe/internal/core"
)

// Summary is the dashboard stats row.
type Summary struct {
	ActiveCount int
	MonthCount  int
	MonthTotal  core.Money
}

// ComputeSummary counts active items and the subset whose next
// occurrence falls in the current calendar month.
func ComputeSummary(items []core.Item, now time.Time) Summary {
	var s Summary
	for _, it := range items {
		if !it.IsActive {
			continue
		}
		s.ActiveCount++
		occ := core.NextOccurrence(it.AnchorDate, it.Rule, now)
		if occ.Year() == now.Year() && occ.Month() == now.Month() {
			s.MonthCount++
			s.MonthTotal = s.MonthTotal.Add(it.Amount)
		}
	}
	return s
}
