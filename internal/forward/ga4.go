package forward

import (
	"context"
	"fmt"
	"net/http"

	"github.com/myerscreative/flowdoors-tracking/internal/event"
)

const defaultGA4Endpoint = "https://www.google-analytics.com/mp/collect"

// GA4 reports conversions to Google Analytics via the Measurement Protocol.
type GA4 struct {
	MeasurementID string
	APISecret     string
	Enabled       func() bool
	Endpoint      string
	Client        *http.Client
}

func (g *GA4) Name() string { return "ga4" }

func (g *GA4) Forward(ctx context.Context, ev *event.CanonicalEvent) Result {
	if g.Enabled != nil && !g.Enabled() {
		return skipped("ga4 forwarding disabled by config")
	}
	if g.MeasurementID == "" || g.APISecret == "" {
		return skipped("ga4 credentials not configured")
	}

	clientID := ev.User.EmailHashed
	if clientID == "" {
		clientID = ev.EventID
	}

	params := map[string]any{
		"currency":       ev.Lead.Currency,
		"value":          ev.Lead.Value,
		"lead_id":        ev.Lead.LeadID,
		"transaction_id": ev.EventID,
	}
	if ev.Attribution != nil {
		if ev.Attribution.UTMSource != "" {
			params["source"] = ev.Attribution.UTMSource
		}
		if ev.Attribution.UTMMedium != "" {
			params["medium"] = ev.Attribution.UTMMedium
		}
		if ev.Attribution.UTMCampaign != "" {
			params["campaign"] = ev.Attribution.UTMCampaign
		}
	}

	payload := map[string]any{
		"client_id":        clientID,
		"timestamp_micros": ev.EventTS * 1_000_000,
		"events": []map[string]any{
			{"name": string(ev.EventName), "params": params},
		},
	}

	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = defaultGA4Endpoint
	}
	url := fmt.Sprintf("%s?measurement_id=%s&api_secret=%s", endpoint, g.MeasurementID, g.APISecret)
	if err := postJSON(ctx, g.Client, url, payload); err != nil {
		return skipped("ga4 request failed: %v", err)
	}
	return sent()
}
