package http

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"followe/internal/core"
)

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Date{}, err
	}
	return core.NewDate(parsedTime.Year(), int(parsedTime.Month()), parsedTime.Day()), nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseItemForm builds an item from the submitted form. The returned
// message is a user-facing fragment; empty means the form was valid.
func parseItemForm(r *http.Request) (core.Item, string) {
	title := sanitizeInput(r.Form.Get("title"))
	description := sanitizeInput(r.Form.Get("description"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	if amountStr == "" {
		amountStr = "0"
	}

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		return core.Item{}, "Invalid amount"
	}

	anchor, err := parseDate(strings.TrimSpace(r.Form.Get("anchor_date")))
	if err != nil {
		return core.Item{}, "Invalid date"
	}

	primaryTime := strings.TrimSpace(r.Form.Get("primary_time"))
	if primaryTime == "" {
		primaryTime = "09:00"
	}

	var extras []string
	for _, raw := range strings.Split(r.Form.Get("extra_times"), ",") {
		if v := strings.TrimSpace(raw); v != "" {
			extras = append(extras, v)
		}
	}

	item := core.Item{
		Title:       title,
		Description: description,
		Amount:      core.Money{Cents: cents},
		Category:    core.Category(strings.TrimSpace(r.Form.Get("category"))),
		AnchorDate:  anchor,
		PrimaryTime: primaryTime,
		ExtraTimes:  extras,
		Rule:        core.Rule(strings.TrimSpace(r.Form.Get("rule"))),
		Priority:    core.Priority(strings.TrimSpace(r.Form.Get("priority"))),
		IsActive:    r.Form.Get("is_active") != "false",
	}
	item.Normalize()
	return item, ""
}

func writeErrorFragment(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}

func writeValidationError(w http.ResponseWriter, err error) {
	writeErrorFragment(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid data: %v", err))
}
