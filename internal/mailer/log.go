package mailer

import (
	"context"

	"flavorwatch/internal/observability"
)

// LogSender logs emails instead of sending them. Useful for dry runs.
type LogSender struct {
	logger *observability.Logger
}

func NewLogSender(logger *observability.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("Email (dry run, not sent)",
		"message_id", msg.MessageID,
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
