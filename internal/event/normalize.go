package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/myerscreative/flowdoors-tracking/internal/pii"
)

// RequestMeta is transport-level metadata attached to the canonical event.
type RequestMeta struct {
	ForwardedFor string // X-Forwarded-For header, may list multiple hops
	RemoteAddr   string // transport-level peer, host:port
	UserAgent    string
}

// ClientIP picks the first X-Forwarded-For entry, falling back to the
// transport-level remote address.
func (m RequestMeta) ClientIP() string {
	if m.ForwardedFor != "" {
		first := m.ForwardedFor
		if i := strings.IndexByte(first, ','); i >= 0 {
			first = first[:i]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(m.RemoteAddr); err == nil {
		return host
	}
	return m.RemoteAddr
}

// Normalizer validates inbound submissions, fills defaults, and hashes PII.
type Normalizer struct {
	Now   func() time.Time
	NewID func() string
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

// Normalize parses the untrusted body and produces a canonical event.
// A non-nil FieldError slice means the submission was rejected; err is
// reserved for malformed JSON.
func (n *Normalizer) Normalize(body []byte, meta RequestMeta) (*CanonicalEvent, []FieldError, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var sub Submission
	if err := dec.Decode(&sub); err != nil {
		return nil, nil, fmt.Errorf("decode submission: %w", err)
	}

	if errs := ValidateSubmission(&sub); len(errs) > 0 {
		return nil, errs, nil
	}

	now := n.Now()

	eventTime := sub.EventTime
	if eventTime == "" {
		eventTime = now.Format(time.RFC3339)
	}
	// Already validated as RFC 3339 when client-supplied.
	parsed, err := time.Parse(time.RFC3339, eventTime)
	if err != nil {
		parsed = now
		eventTime = now.Format(time.RFC3339)
	}

	ev := &CanonicalEvent{
		EventID:     sub.EventID,
		EventName:   Name(sub.EventName),
		EventTime:   eventTime,
		EventTS:     parsed.Unix(),
		Attribution: sub.Attribution,
	}
	if ev.EventID == "" {
		ev.EventID = n.NewID()
	}

	ev.Lead = LeadInfo{
		LeadID:   sub.Lead.LeadID,
		FormName: sub.Lead.FormName,
		Value:    sub.Lead.Value,
		Currency: sub.Lead.Currency,
	}
	if ev.Lead.LeadID == "" {
		ev.Lead.LeadID = n.NewID()
	}
	if ev.Lead.Currency == "" {
		ev.Lead.Currency = DefaultCurrency
	}

	// Raw email/phone stop here: only the hashes reach the canonical record.
	if sub.User != nil {
		ev.User.EmailHashed = pii.HashPII(sub.User.Email)
		ev.User.PhoneHashed = pii.HashPII(pii.NormalizePhone(sub.User.Phone))
	}
	ev.User.IP = meta.ClientIP()
	ev.User.UserAgent = meta.UserAgent

	return ev, nil, nil
}
