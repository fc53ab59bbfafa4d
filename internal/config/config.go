// Package config carries the service's environment configuration and the
// hot-reloadable YAML forwarding config (per-vendor kill switches).
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is read once at startup from the environment. Vendor credentials
// are optional: a missing secret means the corresponding forwarder skips,
// never a startup failure.
type Config struct {
	Port     string
	MongoURI string
	MongoDB  string

	WebhookSecret string

	GA4MeasurementID string
	GA4APISecret     string

	GoogleAdsCustomerID       string
	GoogleAdsConversionAction string

	MetaPixelID     string
	MetaAccessToken string

	AttributionTTL  time.Duration
	MaxBodyBytes    int64
	RateLimitPerMin int
	ForwardTimeout  time.Duration
}

func Parse() Config {
	return Config{
		Port:     getString("PORT", "8080"),
		MongoURI: getString("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getString("MONGO_DB", "leadtrack"),

		WebhookSecret: getString("WEBHOOK_SECRET", ""),

		GA4MeasurementID: getString("GA4_MEASUREMENT_ID", ""),
		GA4APISecret:     getString("GA4_API_SECRET", ""),

		GoogleAdsCustomerID:       getString("GOOGLE_ADS_CUSTOMER_ID", ""),
		GoogleAdsConversionAction: getString("GOOGLE_ADS_CONVERSION_ACTION", ""),

		MetaPixelID:     getString("META_PIXEL_ID", ""),
		MetaAccessToken: getString("META_ACCESS_TOKEN", ""),

		AttributionTTL:  time.Duration(getInt("ATTRIBUTION_TTL_DAYS", 90)) * 24 * time.Hour,
		MaxBodyBytes:    int64(getInt("MAX_BODY_BYTES", 1_048_576)),
		RateLimitPerMin: getInt("RATE_LIMIT_PER_MIN", 120),
		ForwardTimeout:  time.Duration(getInt("FORWARD_TIMEOUT_MS", 3000)) * time.Millisecond,
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
