package notify

import (
	"context"

	"followe/internal/log"
)

// LogSink writes alerts to the structured log. It is the default sink
// when no out-of-process delivery is configured, and doubles as an
// audit trail next to any other sink.
type LogSink struct {
	logger *log.Logger
}

func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger.WithComponent(log.ComponentNotify)}
}

func (s *LogSink) Show(ctx context.Context, p Payload) error {
	s.logger.InfoContext(ctx, "alert",
		"title", p.Title,
		"body", p.Body,
		"tag", p.Tag,
		"urgent", p.Urgent,
	)
	return nil
}
