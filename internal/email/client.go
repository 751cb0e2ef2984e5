// Package email defines the interface for transactional email delivery and
// provides a Resend-backed implementation.
package email

import "context"

// WelcomeParams holds the data for the subscription confirmation email.
type WelcomeParams struct {
	To string
}

// LetterParams holds the data for a love letter email.
type LetterParams struct {
	To     string
	Letter string // plain text; escaped before it is placed in HTML

	// First selects the "your first letter" layout and subject sent right
	// after subscribing. Otherwise the daily layout is used.
	First bool
}

// Sender is the interface the delivery orchestrator uses to send email.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// SendWelcome sends the confirmation email. A failure here means the
	// subscriber never heard from us, so callers treat it as fatal for the
	// email channel.
	SendWelcome(ctx context.Context, p WelcomeParams) error

	// SendLetter sends one love letter.
	SendLetter(ctx context.Context, p LetterParams) error
}

// Subjects, shared by the Resend client and the development logger.
const (
	SubjectWelcome     = "Welcome to Daily Love Letters! 💌"
	SubjectFirstLetter = "Your First Romantic Love Letter 💕"
	SubjectDailyLetter = "A letter written just for you"
)
