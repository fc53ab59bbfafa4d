// Package attribution captures and merges visitor acquisition metadata:
// UTM campaign parameters, ad-platform click identifiers, landing page and
// referrer, plus first/last touch timestamps. A record survives across page
// views and sessions; the merge policy decides which visit wins per field.
package attribution

// Record is one visitor's attribution state.
//
// Merge policy, per field group:
//   - UTM fields: field-level last-write-wins — a later visit overrides a
//     value only when it carries a non-empty value for that same field.
//   - Click identifiers: sticky — once set they are never cleared by a visit
//     that lacks them (the override rule above gives exactly that).
//   - Landing page and referrer: first touch only, never overwritten.
//   - FirstTouchTS: set once, immutable. LastTouchTS: refreshed every merge.
type Record struct {
	UTMSource   string `json:"utm_source,omitempty" bson:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty" bson:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty" bson:"utm_campaign,omitempty"`
	UTMContent  string `json:"utm_content,omitempty" bson:"utm_content,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty" bson:"utm_term,omitempty"`

	GCLID  string `json:"gclid,omitempty" bson:"gclid,omitempty"`
	GBRAID string `json:"gbraid,omitempty" bson:"gbraid,omitempty"`
	WBRAID string `json:"wbraid,omitempty" bson:"wbraid,omitempty"`
	FBCLID string `json:"fbclid,omitempty" bson:"fbclid,omitempty"`
	FBC    string `json:"fbc,omitempty" bson:"fbc,omitempty"`
	FBP    string `json:"fbp,omitempty" bson:"fbp,omitempty"`

	LandingPageURL string `json:"landing_page_url,omitempty" bson:"landing_page_url,omitempty"`
	Referrer       string `json:"referrer,omitempty" bson:"referrer,omitempty"`

	FirstTouchTS int64 `json:"first_touch_ts,omitempty" bson:"first_touch_ts,omitempty"`
	LastTouchTS  int64 `json:"last_touch_ts,omitempty" bson:"last_touch_ts,omitempty"`
}

// IsZero reports whether the record carries no attribution at all.
func (r Record) IsZero() bool {
	return r == Record{}
}
