package forward

import (
	"context"
	"fmt"
	"net/http"

	"github.com/myerscreative/flowdoors-tracking/internal/event"
)

const defaultMetaEndpoint = "https://graph.facebook.com/v19.0"

// Meta reports conversions to the Meta Conversions API. User identifiers are
// already SHA-256 hashed in the canonical event, which is exactly the format
// the API expects.
type Meta struct {
	PixelID     string
	AccessToken string
	Enabled     func() bool
	Endpoint    string
	Client      *http.Client
}

func (m *Meta) Name() string { return "meta" }

func (m *Meta) Forward(ctx context.Context, ev *event.CanonicalEvent) Result {
	if m.Enabled != nil && !m.Enabled() {
		return skipped("meta forwarding disabled by config")
	}
	if m.PixelID == "" || m.AccessToken == "" {
		return skipped("meta credentials not configured")
	}

	userData := map[string]any{}
	if ev.User.EmailHashed != "" {
		userData["em"] = []string{ev.User.EmailHashed}
	}
	if ev.User.PhoneHashed != "" {
		userData["ph"] = []string{ev.User.PhoneHashed}
	}
	if ev.User.IP != "" {
		userData["client_ip_address"] = ev.User.IP
	}
	if ev.User.UserAgent != "" {
		userData["client_user_agent"] = ev.User.UserAgent
	}
	if ev.Attribution != nil {
		if ev.Attribution.FBC != "" {
			userData["fbc"] = ev.Attribution.FBC
		}
		if ev.Attribution.FBP != "" {
			userData["fbp"] = ev.Attribution.FBP
		}
	}

	payload := map[string]any{
		"data": []map[string]any{
			{
				"event_name":    string(ev.EventName),
				"event_time":    ev.EventTS,
				"event_id":      ev.EventID,
				"action_source": "website",
				"user_data":     userData,
				"custom_data": map[string]any{
					"currency": ev.Lead.Currency,
					"value":    ev.Lead.Value,
				},
			},
		},
	}

	endpoint := m.Endpoint
	if endpoint == "" {
		endpoint = defaultMetaEndpoint
	}
	url := fmt.Sprintf("%s/%s/events?access_token=%s", endpoint, m.PixelID, m.AccessToken)
	if err := postJSON(ctx, m.Client, url, payload); err != nil {
		return skipped("meta request failed: %v", err)
	}
	return sent()
}
