package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/love-letters-backend/internal/db"
)

// ErrBroadcastClaimed is returned by ClaimBroadcastRun when another process
// (or an earlier run of this one) already owns the day's broadcast.
var ErrBroadcastClaimed = errors.New("store: broadcast already claimed for date")

// ClaimBroadcastRun reserves the broadcast for the calendar day of day. Only
// the first caller per day gets a run id; every later caller gets
// ErrBroadcastClaimed.
func (s *Store) ClaimBroadcastRun(ctx context.Context, day time.Time) (uuid.UUID, error) {
	run, err := s.q.ClaimBroadcastRun(ctx, db.ClaimBroadcastRunParams{
		ID:      uuid.New(),
		RunDate: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
	})
	if errors.Is(err, sql.ErrNoRows) {
		// ON CONFLICT DO NOTHING returns no row for an existing date.
		return uuid.Nil, ErrBroadcastClaimed
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: claim broadcast run: %w", err)
	}
	return run.ID, nil
}

// FinishBroadcastRun stores the final counts of a claimed run.
func (s *Store) FinishBroadcastRun(ctx context.Context, id uuid.UUID, success, failed, total int) error {
	_, err := s.q.FinishBroadcastRun(ctx, db.FinishBroadcastRunParams{
		ID:               id,
		SuccessCount:     int32(success),
		ErrorCount:       int32(failed),
		TotalSubscribers: int32(total),
	})
	if err != nil {
		return fmt.Errorf("store: finish broadcast run: %w", err)
	}
	return nil
}
