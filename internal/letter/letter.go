// Package letter produces the text of a love letter. It picks a prompt for
// the requested variant, asks the model once, and substitutes a canned letter
// on any failure, so callers always get something they can send.
package letter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nyashahama/love-letters-backend/internal/ai"
)

// Variant selects prompt, length and fallback.
type Variant string

const (
	// VariantDaily is the date-stamped letter of the day shown on the site.
	VariantDaily Variant = "daily"
	// VariantEmail is the long romantic letter sent by email.
	VariantEmail Variant = "email"
	// VariantWhatsApp is the shorter romantic letter sent over WhatsApp.
	VariantWhatsApp Variant = "whatsapp"
)

const (
	humanDateLayout = "Monday, January 2, 2006"
	isoDateLayout   = "2006-01-02"
)

// Letter is one generated letter. It is never persisted.
type Letter struct {
	Text        string
	Day         time.Time // midnight UTC of the day it was written for
	Variant     Variant
	PromptIndex int

	// Fallback is true when Text is the canned letter; Err then holds the
	// reason the model was not used.
	Fallback bool
	Err      error
}

// HumanDate formats the letter's day as e.g. "Monday, January 2, 2006".
func (l Letter) HumanDate() string { return l.Day.Format(humanDateLayout) }

// DateString formats the letter's day as YYYY-MM-DD.
func (l Letter) DateString() string { return l.Day.Format(isoDateLayout) }

// Generator writes letters. The zero value is not usable; use NewGenerator.
type Generator struct {
	writer ai.Writer
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source (tests pin the calendar day).
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator returns a Generator backed by w. A nil w is allowed and makes
// every letter the canned fallback, which is how development runs without an
// AI key.
func NewGenerator(w ai.Writer, logger *slog.Logger, opts ...Option) *Generator {
	g := &Generator{writer: w, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a letter for variant. It never fails: any model error
// yields the variant's fallback letter with Fallback set.
func (g *Generator) Generate(ctx context.Context, variant Variant) Letter {
	profile, ok := variants[variant]
	if !ok {
		profile, variant = variants[VariantEmail], VariantEmail
	}

	day := Today(g.now())
	idx := PromptIndex(day, len(profile.prompts))
	l := Letter{Day: day, Variant: variant, PromptIndex: idx}

	prompt := profile.prompts[idx]
	if profile.datedPrompt {
		prompt = fmt.Sprintf(prompt, l.HumanDate())
	}

	var (
		text string
		err  error
	)
	if g.writer == nil {
		err = fmt.Errorf("letter: no model configured")
	} else {
		text, err = g.writer.Write(ctx, ai.Prompt{
			System:      profile.system,
			User:        prompt,
			Temperature: profile.temperature,
			MaxTokens:   profile.maxTokens,
		})
	}

	if err != nil {
		g.logger.Warn("letter: using fallback letter",
			"variant", variant,
			"prompt_index", idx,
			"error", err,
		)
		l.Text = profile.fallback(day)
		l.Fallback = true
		l.Err = err
		return l
	}

	g.logger.Info("letter: generated", "variant", variant, "prompt_index", idx, "date", l.DateString())
	l.Text = text
	return l
}

// Today truncates t to midnight UTC of its UTC calendar day.
func Today(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PromptIndex picks one of n prompts for day. The seed is the number of whole
// days since the Unix epoch, so every call on the same calendar day selects
// the same prompt and consecutive days rotate through the list. Milliseconds
// are not usable as the seed: a day is 86,400,000 ms, which is divisible by
// five, so the index would never move.
func PromptIndex(day time.Time, n int) int {
	if n <= 1 {
		return 0
	}
	seed := (Today(day).UnixMilli() / msPerDay) % int64(n)
	if seed < 0 {
		seed += int64(n)
	}
	return int(seed)
}

const msPerDay = int64(24 * time.Hour / time.Millisecond)
