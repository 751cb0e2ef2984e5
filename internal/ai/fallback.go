package ai

import (
	"context"
	"fmt"
	"log/slog"
)

// fallbackWriter wraps two Writer implementations. It calls the primary first;
// if that returns an error it logs the failure and tries the secondary.
// Each provider still gets exactly one call.
type fallbackWriter struct {
	primary   Writer
	secondary Writer
	logger    *slog.Logger
}

// NewFallbackWriter returns a Writer that calls primary and, on failure,
// falls back to secondary. Either argument may be nil. A nil primary goes
// straight to secondary, and with a nil secondary a primary failure is
// returned as is.
func NewFallbackWriter(primary, secondary Writer, logger *slog.Logger) Writer {
	return &fallbackWriter{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (f *fallbackWriter) Write(ctx context.Context, p Prompt) (string, error) {
	if f.primary != nil {
		text, err := f.primary.Write(ctx, p)
		if err == nil {
			return text, nil
		}
		if f.secondary == nil {
			return "", fmt.Errorf("ai: primary failed and no secondary configured: %w", err)
		}
		f.logger.Warn("ai: primary writer failed, trying secondary", "error", err)
	}

	if f.secondary == nil {
		return "", fmt.Errorf("ai: no writer configured")
	}
	return f.secondary.Write(ctx, p)
}
