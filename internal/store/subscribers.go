package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nyashahama/love-letters-backend/internal/db"
	"github.com/nyashahama/love-letters-backend/internal/subscriber"
)

// UpsertOutcome tells the caller whether a subscriber row was created.
type UpsertOutcome string

const (
	OutcomeInserted      UpsertOutcome = "inserted"
	OutcomeAlreadyExists UpsertOutcome = "already_exists"
)

// UpsertSubscriber inserts sub. A unique violation on email or phone means the
// person already subscribed; that is reported as OutcomeAlreadyExists with a
// nil error so re-submitting the form is harmless. Any other database error
// is returned as-is.
func (s *Store) UpsertSubscriber(ctx context.Context, sub subscriber.Subscriber) (UpsertOutcome, error) {
	_, err := s.q.InsertSubscriber(ctx, db.InsertSubscriberParams{
		ID:                 uuid.New(),
		Email:              nullString(sub.Email),
		PhoneNumber:        nullString(sub.PhoneNumber),
		DeliveryPreference: string(sub.Preference),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return OutcomeAlreadyExists, nil
		}
		return "", fmt.Errorf("store: insert subscriber: %w", err)
	}
	return OutcomeInserted, nil
}

// ListSubscribers returns every subscriber in signup order.
func (s *Store) ListSubscribers(ctx context.Context) ([]subscriber.Subscriber, error) {
	rows, err := s.q.ListSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list subscribers: %w", err)
	}

	out := make([]subscriber.Subscriber, 0, len(rows))
	for _, r := range rows {
		pref := subscriber.Preference(r.DeliveryPreference)
		if pref == "" {
			pref = subscriber.PreferenceEmail
		}
		out = append(out, subscriber.Subscriber{
			ID:          r.ID,
			Email:       r.Email.String,
			PhoneNumber: r.PhoneNumber.String,
			Preference:  pref,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}
