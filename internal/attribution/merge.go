package attribution

import (
	"net/url"
	"strings"
	"time"
)

// Merge folds the current visit (query parameters, page URL, referrer) into
// the previously persisted record. prev may be nil for an untracked visitor.
// The input record is not mutated; the merged record is returned.
func Merge(prev *Record, params url.Values, pageURL, referrer string, now time.Time) Record {
	var out Record
	if prev != nil {
		out = *prev
	}

	take := func(dst *string, key string) {
		if v := strings.TrimSpace(params.Get(key)); v != "" {
			*dst = v
		}
	}
	take(&out.UTMSource, "utm_source")
	take(&out.UTMMedium, "utm_medium")
	take(&out.UTMCampaign, "utm_campaign")
	take(&out.UTMContent, "utm_content")
	take(&out.UTMTerm, "utm_term")
	take(&out.GCLID, "gclid")
	take(&out.GBRAID, "gbraid")
	take(&out.WBRAID, "wbraid")
	take(&out.FBCLID, "fbclid")
	take(&out.FBC, "fbc")
	take(&out.FBP, "fbp")

	// First touch only.
	if out.LandingPageURL == "" {
		out.LandingPageURL = strings.TrimSpace(pageURL)
	}
	if out.Referrer == "" {
		out.Referrer = strings.TrimSpace(referrer)
	}
	if out.FirstTouchTS == 0 {
		out.FirstTouchTS = now.Unix()
	}
	out.LastTouchTS = now.Unix()

	return out
}
