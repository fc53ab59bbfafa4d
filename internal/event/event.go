// Package event defines the canonical conversion-event model and the
// normalizer that turns untrusted submissions into it.
package event

import (
	"github.com/myerscreative/flowdoors-tracking/internal/attribution"
)

// Name is the closed set of conversion event names the pipeline accepts.
type Name string

const (
	LeadSubmitted Name = "lead_submitted"
	LeadQualified Name = "lead_qualified"
	DealWon       Name = "deal_won"
)

// Valid reports whether n is one of the accepted event names.
func (n Name) Valid() bool {
	switch n {
	case LeadSubmitted, LeadQualified, DealWon:
		return true
	}
	return false
}

// CanonicalEvent is the validated, defaulted, privacy-hashed record produced
// by the normalizer. It is append-only once created. By construction it has
// no field for a raw email or phone number; only hashes are representable.
type CanonicalEvent struct {
	EventID   string `json:"event_id" bson:"event_id"`
	EventName Name   `json:"event_name" bson:"event_name"`
	// EventTime is RFC 3339; EventTS is the same instant in epoch seconds.
	EventTime string `json:"event_time" bson:"event_time"`
	EventTS   int64  `json:"event_ts" bson:"event_ts"`

	User        UserInfo            `json:"user" bson:"user"`
	Attribution *attribution.Record `json:"attribution,omitempty" bson:"attribution,omitempty"`
	Lead        LeadInfo            `json:"lead" bson:"lead"`
}

// UserInfo carries only hashed identifiers plus request metadata.
type UserInfo struct {
	EmailHashed string `json:"email_hashed,omitempty" bson:"email_hashed,omitempty"`
	PhoneHashed string `json:"phone_hashed,omitempty" bson:"phone_hashed,omitempty"`
	IP          string `json:"ip,omitempty" bson:"ip,omitempty"`
	UserAgent   string `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
}

type LeadInfo struct {
	LeadID   string  `json:"lead_id" bson:"lead_id"`
	FormName string  `json:"form_name,omitempty" bson:"form_name,omitempty"`
	Value    float64 `json:"value,omitempty" bson:"value,omitempty"`
	Currency string  `json:"currency" bson:"currency"`
}

// Submission is the untrusted inbound payload. Raw email and phone are
// accepted here and exist only until normalization hashes them.
type Submission struct {
	EventID     string              `json:"event_id,omitempty"`
	EventName   string              `json:"event_name"`
	EventTime   string              `json:"event_time,omitempty"`
	User        *SubmissionUser     `json:"user,omitempty"`
	Attribution *attribution.Record `json:"attribution,omitempty"`
	Lead        *SubmissionLead     `json:"lead"`
}

type SubmissionUser struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type SubmissionLead struct {
	LeadID   string  `json:"lead_id,omitempty"`
	FormName string  `json:"form_name,omitempty"`
	Value    float64 `json:"value,omitempty"`
	Currency string  `json:"currency,omitempty"`
}
