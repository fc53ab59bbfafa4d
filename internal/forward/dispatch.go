package forward

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/myerscreative/flowdoors-tracking/internal/event"
	"github.com/myerscreative/flowdoors-tracking/internal/metrics"
)

// Outcome pairs a vendor name with its forwarding result.
type Outcome struct {
	Vendor string `json:"vendor"`
	Result
}

// Dispatch fans one event out to every registered forwarder concurrently and
// collects the results. Each vendor call is bounded by timeout; a panic in
// one forwarder is converted to a skipped outcome and does not affect its
// siblings.
func Dispatch(ctx context.Context, reg *Registry, ev *event.CanonicalEvent, timeout time.Duration, log *slog.Logger) []Outcome {
	forwarders := reg.All()
	outcomes := make([]Outcome, len(forwarders))

	var wg sync.WaitGroup
	for i, f := range forwarders {
		wg.Add(1)
		go func(i int, f Forwarder) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = Outcome{Vendor: f.Name(), Result: skipped("forwarder panic: %v", r)}
				}
			}()
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			outcomes[i] = Outcome{Vendor: f.Name(), Result: f.Forward(callCtx, ev)}
		}(i, f)
	}
	wg.Wait()

	for _, o := range outcomes {
		metrics.ForwardOutcomes.WithLabelValues(o.Vendor, string(o.Status)).Inc()
		if o.Status == StatusSent {
			log.Info("conversion forwarded", "vendor", o.Vendor, "event_id", ev.EventID)
		} else {
			log.Info("conversion not forwarded", "vendor", o.Vendor, "event_id", ev.EventID, "reason", o.Reason)
		}
	}
	return outcomes
}
