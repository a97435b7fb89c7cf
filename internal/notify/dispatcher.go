// Package notify turns due reminder items into alert payloads and
// fans them out to the configured sinks.
package notify

import (
	"context"
	"fmt"

	"followe/internal/core"
	"followe/internal/log"
)

// Payload is a rendered alert, ready for any delivery channel.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	// Tag deduplicates alerts: a new alert with the same tag replaces
	// the previous one instead of stacking.
	Tag         string `json:"tag"`
	Urgent      bool   `json:"urgent"`
	ClickAction string `json:"click_action"`
}

// AlertSink delivers a rendered alert somewhere the user can see it.
type AlertSink interface {
	Show(ctx context.Context, p Payload) error
}

// Dispatcher renders items into payloads and hands them to every sink.
// Sink failures are logged and swallowed so a broken channel never
// reaches the scheduler.
type Dispatcher struct {
	sinks  []AlertSink
	logger *log.Logger
}

func NewDispatcher(logger *log.Logger, sinks ...AlertSink) *Dispatcher {
	return &Dispatcher{
		sinks:  sinks,
		logger: logger.WithComponent(log.ComponentNotify),
	}
}

// BuildPayload renders the alert content for an item. The tag is the
// item id, so repeated reminders for the same item supersede each
// other.
func BuildPayload(item core.Item) Payload {
	body := fmt.Sprintf("%s due today", item.Amount)
	if item.Description != "" {
		body = fmt.Sprintf("%s due today · %s", item.Amount, item.Description)
	}
	return Payload{
		Title:       fmt.Sprintf("%s %s", item.Category.Icon(), item.Title),
		Body:        body,
		Tag:         item.ID,
		Urgent:      item.Priority == core.High,
		ClickAction: "/",
	}
}

// Fire renders and delivers the alert for one item.
func (d *Dispatcher) Fire(ctx context.Context, item core.Item) {
	p := BuildPayload(item)
	for _, sink := range d.sinks {
		if err := sink.Show(ctx, p); err != nil {
			d.logger.ErrorContext(ctx, "alert delivery failed",
				log.FieldOperation, log.OpFire,
				log.FieldItemID, item.ID,
				log.FieldItemTitle, item.Title,
				log.FieldError, err.Error(),
			)
		}
	}
}
