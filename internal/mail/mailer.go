// Package mail delivers outbound email: an HTTP relay in deployed
// environments, a log sink when none is configured, and an in-memory
// mailbox for local development.
package mail

import (
	"context"
	"errors"

	"auth-service/internal/logger"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends email. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer records that a message would have been sent. The body is not
// logged since it carries single-use links.
type LogMailer struct {
	log *logger.Logger
}

// NewLogMailer returns a Mailer that only logs.
func NewLogMailer(log *logger.Logger) *LogMailer {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogMailer{log: log}
}

// Send logs the recipient and subject.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("mail: no relay configured, message dropped", "email", msg.To, "subject", msg.Subject)
	return nil
}

// Tee sends each message to every mailer and joins their errors.
type Tee []Mailer

// Send delivers msg to all mailers, even when one fails.
func (t Tee) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, m := range t {
		if err := m.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
