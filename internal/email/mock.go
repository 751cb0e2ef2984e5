package email

import (
	"context"
	"log/slog"
)

// LogSender is the Sender used in development when no Resend key is set.
// It logs what would have been sent and always succeeds.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendWelcome logs the welcome email instead of sending it.
func (m *LogSender) SendWelcome(_ context.Context, p WelcomeParams) error {
	m.logger.Info("MOCK EMAIL", "to", p.To, "subject", SubjectWelcome)
	return nil
}

// SendLetter logs the letter email instead of sending it.
func (m *LogSender) SendLetter(_ context.Context, p LetterParams) error {
	subject := SubjectDailyLetter
	if p.First {
		subject = SubjectFirstLetter
	}
	m.logger.Info("MOCK EMAIL", "to", p.To, "subject", subject, "body_length", len(p.Letter))
	return nil
}
