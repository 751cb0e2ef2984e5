package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nyashahama/love-letters-backend/internal/db"
	"github.com/nyashahama/love-letters-backend/internal/push"
)

// UpsertPushSubscription stores a browser push subscription keyed by its
// endpoint. Re-registering the same endpoint replaces its keys.
func (s *Store) UpsertPushSubscription(ctx context.Context, sub push.Subscription) error {
	_, err := s.q.UpsertPushSubscription(ctx, db.UpsertPushSubscriptionParams{
		ID:        uuid.New(),
		Endpoint:  sub.Endpoint,
		P256dh:    sub.Keys.P256dh,
		Auth:      sub.Keys.Auth,
		UserAgent: nullString(sub.UserAgent),
	})
	if err != nil {
		return fmt.Errorf("store: upsert push subscription: %w", err)
	}
	return nil
}

// ListPushSubscriptions returns every stored push subscription.
func (s *Store) ListPushSubscriptions(ctx context.Context) ([]push.Subscription, error) {
	rows, err := s.q.ListPushSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list push subscriptions: %w", err)
	}

	out := make([]push.Subscription, 0, len(rows))
	for _, r := range rows {
		out = append(out, push.Subscription{
			Endpoint:  r.Endpoint,
			Keys:      push.Keys{P256dh: r.P256dh, Auth: r.Auth},
			UserAgent: r.UserAgent.String,
		})
	}
	return out, nil
}

// DeletePushSubscription removes an endpoint the push service reported gone.
func (s *Store) DeletePushSubscription(ctx context.Context, endpoint string) error {
	if err := s.q.DeletePushSubscription(ctx, endpoint); err != nil {
		return fmt.Errorf("store: delete push subscription: %w", err)
	}
	return nil
}
