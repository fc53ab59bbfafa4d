// Package forward reports canonical events to external ad/analytics vendors.
// Each forwarder is an isolated, read-only consumer: it decides to send or
// skip based on its own credentials and kill switch, and its failures never
// propagate to the caller or to sibling forwarders.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/myerscreative/flowdoors-tracking/internal/event"
)

// Status is the uniform outcome vocabulary for a forwarding attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
)

// Result is one forwarder's outcome. Reason is set whenever Status is not
// "sent" and explains the skip in human-readable terms.
type Result struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func sent() Result { return Result{Status: StatusSent} }

func skipped(format string, args ...any) Result {
	return Result{Status: StatusSkipped, Reason: fmt.Sprintf(format, args...)}
}

// Forwarder reports one canonical event to one vendor. Implementations must
// never mutate the event and must convert internal failures into a skipped
// Result instead of returning an error.
type Forwarder interface {
	Name() string
	Forward(ctx context.Context, ev *event.CanonicalEvent) Result
}

// postJSON sends a JSON payload and treats any non-2xx response as a failure.
func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("vendor responded %d", resp.StatusCode)
	}
	return nil
}
