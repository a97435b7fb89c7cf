package services

import (
	"fmt"
	"time"

	"followe/internal/core"
)

// Band identifies which advice message applies. Bands are exclusive
// and evaluated in order; the first match wins.
type Band string

const (
	BandGettingStarted Band = "getting_started"
	BandToday          Band = "today"
	BandWeek           Band = "week"
	BandMonth          Band = "month"
	BandHighPriority   Band = "high_priority"
	BandAllClear       Band = "all_clear"
)

// Advice is the dashboard banner content.
type Advice struct {
	Band     Band
	Headline string
	Detail   string
	Count    int
	Total    core.Money
}

// ComputeAdvice picks the most urgent applicable band over the active
// items. Inactive items are ignored entirely. Next occurrences are
// computed against the calendar day of now.
func ComputeAdvice(items []core.Item, now time.Time) Advice {
	var active []core.Item
	for _, it := range items {
		if it.IsActive {
			active = append(active, it)
		}
	}
	if len(active) == 0 {
		return Advice{
			Band:     BandGettingStarted,
			Headline: "Getting started",
			Detail:   "Add your first recurring expense to get reminders before it is due.",
		}
	}

	today := core.DateOf(now)
	weekEnd := today.AddDate(0, 0, 7)

	var (
		dueToday, dueWeek, dueMonth []core.Item
		highPriority                []core.Item
	)
	for _, it := range active {
		occ := core.NextOccurrence(it.AnchorDate, it.Rule, now)
		switch {
		case occ.SameDay(now):
			dueToday = append(dueToday, it)
		case occ.After(today.Time) && !occ.After(weekEnd):
			dueWeek = append(dueWeek, it)
		case occ.Year() == now.Year() && occ.Month() == now.Month() && !occ.DayBefore(now):
			dueMonth = append(dueMonth, it)
		}
		if it.Priority == core.High {
			highPriority = append(highPriority, it)
		}
	}

	switch {
	case len(dueToday) > 0:
		return bandAdvice(BandToday, "Due today", "due today", dueToday)
	case len(dueWeek) > 0:
		return bandAdvice(BandWeek, "Due this week", "due in the next 7 days", dueWeek)
	case len(dueMonth) > 0:
		return bandAdvice(BandMonth, "Due this month", "still due this month", dueMonth)
	case len(highPriority) > 0:
		return bandAdvice(BandHighPriority, "High priority", "high priority, nothing due soon", highPriority)
	}
	return Advice{
		Band:     BandAllClear,
		Headline: "All clear",
		Detail:   "Nothing due soon. Enjoy the quiet.",
	}
}

func bandAdvice(band Band, headline, suffix string, items []core.Item) Advice {
	var total core.Money
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	noun := "payments"
	if len(items) == 1 {
		noun = "payment"
	}
	return Advice{
		Band:     band,
		Headline: headline,
		Detail:   fmt.Sprintf("%d %s totaling %s %s.", len(items), noun, total, suffix),
		Count:    len(items),
		Total:    total,
	}
}
