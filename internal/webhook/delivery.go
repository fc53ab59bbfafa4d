package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// InboundEvent is the vendor's delivery-callback shape. RecordType is the
// vendor-defined discriminator ("Open", "Click", ...).
type InboundEvent struct {
	RecordType string            `json:"RecordType"`
	MessageID  string            `json:"MessageID"`
	Recipient  string            `json:"Recipient"`
	ReceivedAt string            `json:"ReceivedAt"`
	Tag        string            `json:"Tag,omitempty"`
	Metadata   map[string]string `json:"Metadata,omitempty"`
}

// parseBatch accepts either a single event object or an array of events.
func parseBatch(body []byte) ([]InboundEvent, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []InboundEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("decode event batch: %w", err)
		}
		return events, nil
	}
	var ev InboundEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return []InboundEvent{ev}, nil
}
