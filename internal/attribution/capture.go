package attribution

import (
	"context"
	"log/slog"
	"net/url"
	"time"
)

// Capture merges the current visit into whatever record the stores hold and
// writes the result back to every store. The first store that yields a record
// wins on load. Store failures are logged and swallowed: attribution capture
// must never block page rendering or lead submission.
func Capture(ctx context.Context, stores []Store, visitorID, pageURL, referrer string, now time.Time, log *slog.Logger) Record {
	var prev *Record
	for _, s := range stores {
		rec, err := s.Load(ctx, visitorID)
		if err != nil {
			log.Warn("attribution load failed", "err", err)
			continue
		}
		if rec != nil {
			prev = rec
			break
		}
	}

	params := queryParams(pageURL)
	merged := Merge(prev, params, pageURL, referrer, now)

	for _, s := range stores {
		if err := s.Save(ctx, visitorID, merged); err != nil {
			log.Warn("attribution save failed", "err", err)
		}
	}
	return merged
}

func queryParams(pageURL string) url.Values {
	u, err := url.Parse(pageURL)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}
