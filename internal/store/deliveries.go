package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/love-letters-backend/internal/db"
)

// Delivery kinds recorded in the deliveries table.
const (
	KindWelcome   = "welcome"
	KindLetter    = "letter"
	KindBroadcast = "broadcast"
	KindPush      = "push"
)

// DeliveryRecord is one send attempt on one channel.
type DeliveryRecord struct {
	RunID     uuid.UUID // uuid.Nil outside a broadcast run
	Channel   string
	Kind      string
	Recipient string
	Err       error
	Meta      map[string]any
}

// RecordDelivery appends a single attempt to the delivery log.
func (s *Store) RecordDelivery(ctx context.Context, rec DeliveryRecord) error {
	params, err := deliveryParams(rec)
	if err != nil {
		return err
	}
	if err := s.q.InsertDelivery(ctx, params); err != nil {
		return fmt.Errorf("store: insert delivery: %w", err)
	}
	return nil
}

// RecordDeliveries writes a whole broadcast's attempts atomically, so a run's
// log is either complete or absent.
func (s *Store) RecordDeliveries(ctx context.Context, recs []DeliveryRecord) error {
	if len(recs) == 0 {
		return nil
	}

	return s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		for _, rec := range recs {
			params, err := deliveryParams(rec)
			if err != nil {
				return err
			}
			if err := q.InsertDelivery(ctx, params); err != nil {
				return fmt.Errorf("RecordDeliveries: insert %s/%s: %w", rec.Channel, rec.Recipient, err)
			}
		}
		return nil
	})
}

func deliveryParams(rec DeliveryRecord) (db.InsertDeliveryParams, error) {
	p := db.InsertDeliveryParams{
		ID:        uuid.New(),
		RunID:     uuid.NullUUID{UUID: rec.RunID, Valid: rec.RunID != uuid.Nil},
		Channel:   rec.Channel,
		Kind:      rec.Kind,
		Recipient: rec.Recipient,
		Status:    "sent",
	}
	if rec.Err != nil {
		p.Status = "failed"
		p.Error = sql.NullString{String: rec.Err.Error(), Valid: true}
	}
	if len(rec.Meta) > 0 {
		raw, err := json.Marshal(rec.Meta)
		if err != nil {
			return db.InsertDeliveryParams{}, fmt.Errorf("store: marshal delivery meta: %w", err)
		}
		p.Meta = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}
	return p, nil
}
