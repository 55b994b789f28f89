// Package email implements the outbound message transport consumed by the
// orchestration core. The core treats any send error as a transient failure
// to retry next tick; it never advances lead state on a failed send.
package email

import (
	"context"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Sender delivers one outbound message to one recipient.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, body string) error
}

// LogSender logs instead of delivering. Used in development and whenever
// SMTP is not configured, so module progress is observable without a mail
// server.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, toEmail, subject, _ string) error {
	s.log.Info("email send (log transport)", "to", toEmail, "subject", subject)
	return nil
}

// NewSender selects the transport implementation from config: SMTP when
// enabled, the log transport otherwise.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if cfg.GetEmailEnabled() {
		return NewSMTPSender(cfg)
	}
	log.Warn("email disabled, using log transport")
	return NewLogSender(log)
}
