package api

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a fixed-window per-key counter. The map is mutex-guarded
// and stale windows are removed by a periodic sweep rather than on the
// request path.
type rateLimiter struct {
	mu      sync.Mutex
	perMin  int
	windows map[string]*rateWindow
	now     func() time.Time
}

type rateWindow struct {
	start time.Time
	count int
}

func newRateLimiter(perMin int, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		perMin:  perMin,
		windows: make(map[string]*rateWindow),
		now:     now,
	}
}

// allow counts one request for key and reports whether it is within budget.
func (l *rateLimiter) allow(key string) bool {
	if l.perMin <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= time.Minute {
		w = &rateWindow{start: now}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.perMin
}

// startSweep evicts windows older than two minutes until ctx is done.
func (l *rateLimiter) startSweep(ctx context.Context, every time.Duration) {
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				cutoff := l.now().Add(-2 * time.Minute)
				l.mu.Lock()
				for k, w := range l.windows {
					if w.start.Before(cutoff) {
						delete(l.windows, k)
					}
				}
				l.mu.Unlock()
			}
		}
	}()
}
