package forward

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/myerscreative/flowdoors-tracking/internal/event"
)

const defaultGoogleAdsEndpoint = "https://googleads.googleapis.com/v17/customers"

// GoogleAds uploads offline click conversions, correlated by the gclid (or
// gbraid/wbraid) captured at attribution time.
type GoogleAds struct {
	CustomerID       string
	ConversionAction string
	Enabled          func() bool
	Endpoint         string
	Client           *http.Client
}

func (g *GoogleAds) Name() string { return "google_ads" }

func (g *GoogleAds) Forward(ctx context.Context, ev *event.CanonicalEvent) Result {
	if g.Enabled != nil && !g.Enabled() {
		return skipped("google ads forwarding disabled by config")
	}
	if g.CustomerID == "" || g.ConversionAction == "" {
		return skipped("google ads credentials not configured")
	}

	var gclid, gbraid, wbraid string
	if ev.Attribution != nil {
		gclid, gbraid, wbraid = ev.Attribution.GCLID, ev.Attribution.GBRAID, ev.Attribution.WBRAID
	}
	if gclid == "" && gbraid == "" && wbraid == "" {
		return skipped("no google click identifier on event")
	}

	conversion := map[string]any{
		"conversionAction":   fmt.Sprintf("customers/%s/conversionActions/%s", g.CustomerID, g.ConversionAction),
		"conversionDateTime": time.Unix(ev.EventTS, 0).UTC().Format("2006-01-02 15:04:05-07:00"),
		"conversionValue":    ev.Lead.Value,
		"currencyCode":       ev.Lead.Currency,
		"orderId":            ev.EventID,
	}
	switch {
	case gclid != "":
		conversion["gclid"] = gclid
	case gbraid != "":
		conversion["gbraid"] = gbraid
	default:
		conversion["wbraid"] = wbraid
	}

	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = defaultGoogleAdsEndpoint
	}
	url := fmt.Sprintf("%s/%s:uploadClickConversions", endpoint, g.CustomerID)
	payload := map[string]any{
		"conversions":    []map[string]any{conversion},
		"partialFailure": true,
	}
	if err := postJSON(ctx, g.Client, url, payload); err != nil {
		return skipped("google ads request failed: %v", err)
	}
	return sent()
}
