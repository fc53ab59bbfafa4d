package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/myerscreative/flowdoors-tracking/internal/pii"
	"github.com/myerscreative/flowdoors-tracking/internal/store"
)

const (
	deliveriesCollection = "deliveries"
	indexCollection      = "message_index"
)

// Recorder writes delivery records and the messageId index, and applies
// idempotent open/click updates.
type Recorder struct {
	docs  store.Documents
	now   clock
	newID func() string
}

func NewRecorder(docs store.Documents) *Recorder {
	return &Recorder{
		docs:  docs,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// WithClock returns a copy using the given time source. For tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	cp := *r
	cp.now = now
	return &cp
}

// Track records one outbound email at send time: it creates the delivery
// sub-record and the messageId → locator index entry. The recipient address
// is hashed before it is stored.
func (r *Recorder) Track(ctx context.Context, eventID, messageID, recipient string) (*Delivery, error) {
	now := r.now().Unix()
	d := &Delivery{
		DeliveryID:      r.newID(),
		EventID:         eventID,
		MessageID:       messageID,
		RecipientHashed: pii.HashPII(recipient),
		SentAt:          now,
	}
	if err := r.docs.Insert(ctx, deliveriesCollection, d.DeliveryID, d); err != nil {
		return nil, fmt.Errorf("track delivery: %w", err)
	}
	loc := Locator{
		MessageID:  messageID,
		EventID:    eventID,
		DeliveryID: d.DeliveryID,
		CreatedAt:  now,
	}
	if err := r.docs.Insert(ctx, indexCollection, messageID, loc); err != nil {
		return nil, fmt.Errorf("track index entry: %w", err)
	}
	return d, nil
}

// Resolve looks up the locator for a vendor message id. Returns
// store.ErrNotFound when the message was never tracked.
func (r *Recorder) Resolve(ctx context.Context, messageID string) (*Locator, error) {
	var loc Locator
	if err := r.docs.Get(ctx, indexCollection, messageID, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// Apply records one delivery callback, keyed by (messageId, eventType).
// The first-occurrence timestamp is written at most once; the counter always
// increments, so replayed deliveries are safe to apply again.
func (r *Recorder) Apply(ctx context.Context, messageID string, typ EventType) error {
	loc, err := r.Resolve(ctx, messageID)
	if err != nil {
		return err
	}

	var tsField, countField string
	switch typ {
	case Open:
		tsField, countField = "opened_at", "open_count"
	case Click:
		tsField, countField = "clicked_at", "click_count"
	default:
		return fmt.Errorf("unknown delivery event type %q", typ)
	}

	u := store.Update{
		SetIfUnset: store.Fields{tsField: r.now().Unix()},
		Inc:        map[string]int64{countField: 1},
	}
	if err := r.docs.UpdateFields(ctx, deliveriesCollection, loc.DeliveryID, u); err != nil {
		return fmt.Errorf("apply %s for message %s: %w", typ, messageID, err)
	}
	return nil
}

// Get loads a delivery record by id.
func (r *Recorder) Get(ctx context.Context, deliveryID string) (*Delivery, error) {
	var d Delivery
	if err := r.docs.Get(ctx, deliveriesCollection, deliveryID, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
