// Package mailer delivers single plain-text emails through a pluggable transport.
package mailer

import (
	"context"
	"fmt"

	"flavorwatch/internal/config"
	"flavorwatch/internal/observability"
)

// Message is one email to one recipient.
type Message struct {
	MessageID string
	From      string
	To        string
	Subject   string
	Body      string
}

// Sender is the interface for email transports.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the sender named by mail.provider.
func New(cfg config.MailConfig, logger *observability.Logger) (Sender, error) {
	switch cfg.Provider {
	case config.ProviderSMTP:
		return NewSMTPSender(cfg)
	case config.ProviderResend:
		return NewResendSender(cfg.ResendKey), nil
	case config.ProviderLog:
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("mailer: unknown provider %q", cfg.Provider)
	}
}
