package common

import "context"

// EmailMessage is the minimal payload handed to an EmailSender.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// EmailSender delivers transactional mail. Implementations must be safe for
// concurrent use.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// NopEmailSender discards every message. Used in development and tests where
// no SMTP relay is configured.
type NopEmailSender struct{}

// Send implements EmailSender.
func (NopEmailSender) Send(context.Context, EmailMessage) error { return nil }
