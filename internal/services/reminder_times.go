// Package services holds the pure domain computations behind the UI
// and the scheduler: reminder instant resolution, the advice banner,
// and the dashboard summary.
package services

import (
	"time"

	"followe/internal/core"
)

// ResolveInstants expands an item's reminder times on a given
// occurrence day into concrete instants. The primary time comes first,
// then the extra times in stored order. Malformed time strings are
// skipped so one bad entry never blocks the rest of the item's
// reminders. Seconds are always zero.
func ResolveInstants(item core.Item, occurrence core.Date) []time.Time {
	out := make([]time.Time, 0, 1+len(item.ExtraTimes))
	if tod, err := core.ParseTimeOfDay(item.PrimaryTime); err == nil {
		out = append(out, occurrence.At(tod))
	}
	for _, raw := range item.ExtraTimes {
		tod, err := core.ParseTimeOfDay(raw)
		if err != nil {
			continue
		}
		out = append(out, occurrence.At(tod))
	}
	return out
}
