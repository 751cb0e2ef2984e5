package delivery

import (
	"context"

	"github.com/nyashahama/love-letters-backend/internal/email"
	"github.com/nyashahama/love-letters-backend/internal/subscriber"
	"github.com/nyashahama/love-letters-backend/internal/whatsapp"
)

// channel adapts one sender to the shape the dispatch loop needs.
type channel interface {
	recipient(sub subscriber.Subscriber) string
	sendWelcome(ctx context.Context, sub subscriber.Subscriber) error
	sendLetter(ctx context.Context, sub subscriber.Subscriber, text string, first bool) error
}

type emailChannel struct{ s email.Sender }

func (c emailChannel) recipient(sub subscriber.Subscriber) string { return sub.Email }

func (c emailChannel) sendWelcome(ctx context.Context, sub subscriber.Subscriber) error {
	return c.s.SendWelcome(ctx, email.WelcomeParams{To: sub.Email})
}

func (c emailChannel) sendLetter(ctx context.Context, sub subscriber.Subscriber, text string, first bool) error {
	return c.s.SendLetter(ctx, email.LetterParams{To: sub.Email, Letter: text, First: first})
}

type whatsappChannel struct{ s whatsapp.Sender }

func (c whatsappChannel) recipient(sub subscriber.Subscriber) string { return sub.PhoneNumber }

func (c whatsappChannel) sendWelcome(ctx context.Context, sub subscriber.Subscriber) error {
	return c.s.SendWelcome(ctx, sub.PhoneNumber)
}

func (c whatsappChannel) sendLetter(ctx context.Context, sub subscriber.Subscriber, text string, first bool) error {
	return c.s.SendLetter(ctx, sub.PhoneNumber, text, first)
}
