package ai_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nyashahama/love-letters-backend/internal/ai"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubWriter struct {
	text  string
	err   error
	calls int
}

func (s *stubWriter) Write(_ context.Context, _ ai.Prompt) (string, error) {
	s.calls++
	return s.text, s.err
}

// discardLogger returns a *slog.Logger that silently drops all log output.
// Use this instead of nil: fallback.go calls f.logger.Warn() which panics on nil.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var prompt = ai.Prompt{System: "sys", User: "write", Temperature: 0.9, MaxTokens: 600}

// ─── FallbackWriter ───────────────────────────────────────────────────────────

func TestFallbackWriter_PrimarySucceeds_SecondaryNotCalled(t *testing.T) {
	primary := &stubWriter{text: "My Darling"}
	secondary := &stubWriter{text: "Dearest"}

	w := ai.NewFallbackWriter(primary, secondary, discardLogger())

	text, err := w.Write(context.Background(), prompt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "My Darling" {
		t.Errorf("expected primary text, got: %q", text)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be called, got %d calls", secondary.calls)
	}
	if primary.calls != 1 {
		t.Errorf("primary should be called once, got %d calls", primary.calls)
	}
}

func TestFallbackWriter_PrimaryFails_SecondaryUsed(t *testing.T) {
	primary := &stubWriter{err: errors.New("openai timeout")}
	secondary := &stubWriter{text: "Dearest"}

	w := ai.NewFallbackWriter(primary, secondary, discardLogger())

	text, err := w.Write(context.Background(), prompt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Dearest" {
		t.Errorf("expected secondary text, got: %q", text)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("each provider should be called once, got %d/%d", primary.calls, secondary.calls)
	}
}

func TestFallbackWriter_BothFail_ReturnsError(t *testing.T) {
	w := ai.NewFallbackWriter(
		&stubWriter{err: errors.New("primary error")},
		&stubWriter{err: errors.New("secondary error")},
		discardLogger(),
	)

	if _, err := w.Write(context.Background(), prompt); err == nil {
		t.Fatal("expected error when both writers fail")
	}
}

func TestFallbackWriter_NilPrimary_UsesSecondaryDirectly(t *testing.T) {
	secondary := &stubWriter{text: "Only secondary"}

	w := ai.NewFallbackWriter(nil, secondary, discardLogger())

	text, err := w.Write(context.Background(), prompt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Only secondary" {
		t.Errorf("expected secondary text, got: %q", text)
	}
}

func TestFallbackWriter_NilSecondary_PrimaryErrorBubbles(t *testing.T) {
	primaryErr := errors.New("primary blew up")

	w := ai.NewFallbackWriter(&stubWriter{err: primaryErr}, nil, discardLogger())

	_, err := w.Write(context.Background(), prompt)
	if !errors.Is(err, primaryErr) {
		t.Errorf("expected to find primaryErr in chain, got: %v", err)
	}
}

func TestFallbackWriter_NothingConfigured(t *testing.T) {
	w := ai.NewFallbackWriter(nil, nil, discardLogger())

	if _, err := w.Write(context.Background(), prompt); err == nil {
		t.Fatal("expected error with no writers")
	}
}
