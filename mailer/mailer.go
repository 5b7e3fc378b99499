// Package mailer delivers password-reset messages. Delivery is best effort:
// callers never wait on it to answer a request.
package mailer

import (
	"context"
	"log/slog"
	"time"
)

type PasswordReset struct {
	To        string
	ResetURL  string
	ExpiresAt time.Time
}

type Mailer interface {
	SendPasswordReset(ctx context.Context, msg PasswordReset) error
}

// LogMailer writes the message to the log instead of sending it.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, msg PasswordReset) error {
	m.log.Info("password reset requested",
		"to", msg.To,
		"reset_url", msg.ResetURL,
		"expires_at", msg.ExpiresAt.Format(time.RFC3339))
	return nil
}
