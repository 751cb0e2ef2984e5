// Package ai defines the interface for model-written text and provides
// OpenAI-compatible and Anthropic implementations. Prompt content lives with
// the caller (see internal/letter); this package only moves text.
package ai

import (
	"context"
	"errors"
)

// Prompt is one completion request.
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Writer is the interface the letter generator uses to get text from a model.
// Tests inject a stub that returns canned responses.
type Writer interface {
	// Write returns the model's text for p. Implementations make exactly one
	// upstream call and must be safe to call concurrently. Empty output is an
	// error (ErrEmptyCompletion).
	Write(ctx context.Context, p Prompt) (string, error)
}

// ErrEmptyCompletion is returned when a model answers with no usable text.
var ErrEmptyCompletion = errors.New("ai: empty completion")
