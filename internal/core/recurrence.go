// This file implements the next-occurrence calculator for recurrence
// rules. Each rule maps to a stepper that advances a date by one
// period; the calculator walks the anchor date forward until it reaches
// the current calendar day.

package core

import "time"

// Stepper advances a date by one recurrence period.
type Stepper func(Date) Date

func addDays(n int) Stepper {
	return func(d Date) Date {
		return Date{Time: d.AddDate(0, 0, n)}
	}
}

func addMonths(n int) Stepper {
	return func(d Date) Date {
		return Date{Time: d.AddDate(0, n, 0)}
	}
}

func addYears(n int) Stepper {
	return func(d Date) Date {
		return Date{Time: d.AddDate(n, 0, 0)}
	}
}

// ruleSteppers maps recurrence rules to their period steppers. Rules
// absent from the registry (including Once) resolve to the anchor date
// unchanged.
var ruleSteppers = map[Rule]Stepper{
	Daily:     addDays(1),
	Weekly:    addDays(7),
	Biweekly:  addDays(14),
	Triweekly: addDays(21),
	Monthly:   addMonths(1),
	Quarterly: addMonths(3),
	Biannual:  addMonths(6),
	Yearly:    addYears(1),
}

// RegisterStepper registers a stepper for a custom rule value.
func RegisterStepper(rule Rule, step Stepper) {
	ruleSteppers[rule] = step
}

// NextOccurrence returns the first occurrence of the rule, anchored at
// anchor, that falls on or after the calendar day of now. Time-of-day
// on now is ignored: an occurrence earlier today still counts as
// today's occurrence.
//
// Once returns the anchor unconditionally, even when it lies in the
// past; callers decide how to treat stale one-offs. Unrecognized rule
// values behave like Once.
//
// Month and year steps use time.Time.AddDate, which normalizes
// overflowing days (Jan 31 + 1 month lands in early March). The
// convention is applied uniformly, so the result is deterministic and
// stable for a fixed now.
func NextOccurrence(anchor Date, rule Rule, now time.Time) Date {
	step, ok := ruleSteppers[rule]
	if !ok {
		return anchor
	}
	next := anchor
	for next.DayBefore(now) {
		next = step(next)
	}
	return next
}
