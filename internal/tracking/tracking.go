// Package tracking maintains the email delivery-tracking side channel: a
// messageId → locator index written at send time, delivery records with
// open/click state, and idempotent updates applied when vendor webhooks
// arrive. The index is the routing and idempotency backbone: no mutation is
// attempted for a messageId that has no index entry.
package tracking

import "time"

// EventType is the internal classification of a delivery callback.
type EventType string

const (
	Open  EventType = "open"
	Click EventType = "click"
)

// Locator maps a vendor-assigned message id to the internal record location:
// the parent canonical event plus the delivery sub-record.
type Locator struct {
	MessageID  string `json:"message_id" bson:"message_id"`
	EventID    string `json:"event_id" bson:"event_id"`
	DeliveryID string `json:"delivery_id" bson:"delivery_id"`
	CreatedAt  int64  `json:"created_at" bson:"created_at"`
}

// Delivery is the tracked state of one outbound email. OpenedAt/ClickedAt
// record the first occurrence only; the counters keep incrementing on
// repeated callbacks, so vendor-side retries can over-count but can never
// flip "was ever opened" back to false.
type Delivery struct {
	DeliveryID      string `json:"delivery_id" bson:"delivery_id"`
	EventID         string `json:"event_id" bson:"event_id"`
	MessageID       string `json:"message_id" bson:"message_id"`
	RecipientHashed string `json:"recipient_hashed,omitempty" bson:"recipient_hashed,omitempty"`
	SentAt          int64  `json:"sent_at" bson:"sent_at"`

	OpenedAt   *int64 `json:"opened_at,omitempty" bson:"opened_at,omitempty"`
	ClickedAt  *int64 `json:"clicked_at,omitempty" bson:"clicked_at,omitempty"`
	OpenCount  int64  `json:"open_count" bson:"open_count"`
	ClickCount int64  `json:"click_count" bson:"click_count"`
}

// clock exists so tests can pin time.
type clock func() time.Time
