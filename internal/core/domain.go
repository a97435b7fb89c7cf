package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Recurrence rules supported by the reminder engine.
const (
	Once      Rule = "once"
	Daily     Rule = "daily"
	Weekly    Rule = "weekly"
	Biweekly  Rule = "biweekly"
	Triweekly Rule = "triweekly"
	Monthly   Rule = "monthly"
	Quarterly Rule = "quarterly"
	Biannual  Rule = "biannual"
	Yearly    Rule = "yearly"
)

// Expense categories.
const (
	Bill         Category = "bill"
	Subscription Category = "subscription"
	Loan         Category = "loan"
	Rent         Category = "rent"
	Insurance    Category = "insurance"
	OtherExpense Category = "other"
)

// Reminder priorities.
const (
	Low    Priority = "low"
	Medium Priority = "medium"
	High   Priority = "high"
)

// MaxExtraTimes caps the number of additional reminder times per item.
const MaxExtraTimes = 5

type (
	Rule     string
	Category string
	Priority string

	// Date is a calendar day; the time component is always midnight.
	Date struct {
		time.Time
	}

	// TimeOfDay is a wall-clock reminder time (hour and minute).
	TimeOfDay struct {
		Hour   int
		Minute int
	}

	// Item is a recurring expense the user wants to be reminded about.
	// PrimaryTime and ExtraTimes are kept as raw "HH:MM" strings exactly
	// as entered; malformed entries are skipped at resolution time rather
	// than rejected, so a bad extra time never blocks the rest of an item.
	Item struct {
		ID          string
		Title       string
		Description string
		Amount      Money
		Category    Category
		AnchorDate  Date
		PrimaryTime string
		ExtraTimes  []string
		Rule        Rule
		Priority    Priority
		IsActive    bool
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var (
	ErrEmptyTitle       = errors.New("empty title")
	ErrTitleTooLong     = errors.New("title too long (max 200 characters)")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidRule      = errors.New("invalid recurrence rule")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrInvalidDate      = errors.New("invalid anchor date")
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrTooManyTimes     = errors.New("too many extra times")
)

// NewDate creates a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day, keeping the location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// DayBefore reports whether the date falls on an earlier calendar day
// than t. Comparison is by year/month/day only, so dates built in
// different locations compare by their wall-clock calendar day.
func (d Date) DayBefore(t time.Time) bool {
	dy, dm, dd := d.Date()
	ty, tm, td := t.Date()
	if dy != ty {
		return dy < ty
	}
	if dm != tm {
		return dm < tm
	}
	return dd < td
}

// SameDay reports whether the date falls on the same calendar day as t.
func (d Date) SameDay(t time.Time) bool {
	dy, dm, dd := d.Date()
	ty, tm, td := t.Date()
	return dy == ty && dm == tm && dd == td
}

// At combines the date with a time of day in the date's location.
// Seconds and nanoseconds are always zero.
func (d Date) At(tod TimeOfDay) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, tod.Hour, tod.Minute, 0, 0, d.Location())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ParseTimeOfDay parses an "HH:MM" wall-clock string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (r Rule) Valid() bool {
	switch r {
	case Once, Daily, Weekly, Biweekly, Triweekly, Monthly, Quarterly, Biannual, Yearly:
		return true
	}
	return false
}

func (c Category) Valid() bool {
	switch c {
	case Bill, Subscription, Loan, Rent, Insurance, OtherExpense:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case Low, Medium, High:
		return true
	}
	return false
}

func (i Item) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return ErrEmptyTitle
	}
	if len(i.Title) > 200 {
		return ErrTitleTooLong
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if !i.Category.Valid() {
		return ErrInvalidCategory
	}
	if !i.Rule.Valid() {
		return ErrInvalidRule
	}
	if !i.Priority.Valid() {
		return ErrInvalidPriority
	}
	if err := i.AnchorDate.Validate(); err != nil {
		return err
	}
	if _, err := ParseTimeOfDay(i.PrimaryTime); err != nil {
		return err
	}
	if len(i.ExtraTimes) > MaxExtraTimes {
		return ErrTooManyTimes
	}
	return nil
}

// Normalize fills in defaults the form may omit: priority defaults to
// medium, category to other.
func (i *Item) Normalize() {
	if i.Priority == "" {
		i.Priority = Medium
	}
	if i.Category == "" {
		i.Category = OtherExpense
	}
}

// Icon returns the emoji used in alert titles and list cards for a
// category.
func (c Category) Icon() string {
	switch c {
	case Bill:
		return "📄"
	case Subscription:
		return "📱"
	case Loan:
		return "🏦"
	case Rent:
		return "🏠"
	case Insurance:
		return "🛡️"
	default:
		return "📦"
	}
}
