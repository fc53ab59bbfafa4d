package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	memstore "github.com/myerscreative/flowdoors-tracking/internal/store/memory"

	"github.com/myerscreative/flowdoors-tracking/internal/tracking"
)

const testSecret = "whsec_test"

type countingApplier struct {
	calls int
	inner Applier
}

func (c *countingApplier) Apply(ctx context.Context, messageID string, typ tracking.EventType) error {
	c.calls++
	if c.inner != nil {
		return c.inner.Apply(ctx, messageID, typ)
	}
	return nil
}

func newHandler(applier Applier) *Handler {
	return &Handler{
		Secret:  testSecret,
		Applier: applier,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func post(h http.Handler, body string, sign bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/email", strings.NewReader(body))
	if sign {
		req.Header.Set(SignatureHeader, Sign(testSecret, []byte(body)))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandler_GetIsLivenessProbe(t *testing.T) {
	h := newHandler(&countingApplier{})
	req := httptest.NewRequest(http.MethodGet, "/v1/webhooks/email", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", rr.Code)
	}
}

func TestHandler_RejectsBadSignature(t *testing.T) {
	applier := &countingApplier{}
	h := newHandler(applier)

	body := `{"RecordType":"Open","MessageID":"m1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/email", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("wrong-secret", []byte(body)))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if applier.calls != 0 {
		t.Error("no update may be applied before authentication")
	}
	if strings.Contains(rr.Body.String(), "signature") || strings.Contains(rr.Body.String(), "base64") {
		t.Errorf("response leaks verification detail: %s", rr.Body.String())
	}
}

func TestHandler_RejectsMissingSignature(t *testing.T) {
	applier := &countingApplier{}
	rr := post(newHandler(applier), `{"RecordType":"Open","MessageID":"m1"}`, false)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if applier.calls != 0 {
		t.Error("no update may be applied before authentication")
	}
}

func TestHandler_MalformedJSONAfterAuth(t *testing.T) {
	rr := post(newHandler(&countingApplier{}), `{"RecordType":`, true)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for malformed payload post-auth", rr.Code)
	}
}

func TestHandler_IdempotentOpen(t *testing.T) {
	docs := memstore.New()
	rec := tracking.NewRecorder(docs).WithClock(func() time.Time { return time.Unix(5000, 0) })
	d, err := rec.Track(context.Background(), "ev-1", "m1", "lead@example.com")
	if err != nil {
		t.Fatal(err)
	}

	h := newHandler(rec)
	body := `{"RecordType":"Open","MessageID":"m1","Recipient":"lead@example.com","ReceivedAt":"2025-06-01T12:00:00Z"}`
	for i := 0; i < 2; i++ {
		if rr := post(h, body, true); rr.Code != http.StatusOK {
			t.Fatalf("delivery %d status = %d, want 200", i+1, rr.Code)
		}
	}

	got, err := rec.Get(context.Background(), d.DeliveryID)
	if err != nil {
		t.Fatal(err)
	}
	if got.OpenedAt == nil || *got.OpenedAt != 5000 {
		t.Errorf("opened_at = %v, want unchanged first write", got.OpenedAt)
	}
	if got.OpenCount != 2 {
		t.Errorf("open_count = %d, want 2", got.OpenCount)
	}
}

func TestHandler_BatchPartialTolerance(t *testing.T) {
	docs := memstore.New()
	rec := tracking.NewRecorder(docs).WithClock(func() time.Time { return time.Unix(5000, 0) })
	d, err := rec.Track(context.Background(), "ev-1", "known", "lead@example.com")
	if err != nil {
		t.Fatal(err)
	}

	body := `[
		{"RecordType":"Click","MessageID":"known"},
		{"RecordType":"Open","MessageID":"unknown"},
		{"RecordType":"SubscriptionChange","MessageID":"known"}
	]`
	rr := post(newHandler(rec), body, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite unresolvable entries", rr.Code)
	}

	var resp struct {
		Processed int `json:"processed"`
		Skipped   int `json:"skipped"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Processed != 1 || resp.Skipped != 2 {
		t.Errorf("processed/skipped = %d/%d, want 1/2", resp.Processed, resp.Skipped)
	}

	got, _ := rec.Get(context.Background(), d.DeliveryID)
	if got.ClickCount != 1 || got.ClickedAt == nil {
		t.Errorf("resolvable record not updated: %+v", got)
	}
	if got.OpenCount != 0 {
		t.Errorf("open state must be untouched: %+v", got)
	}
}

func TestHandler_StoreFailureIsServerError(t *testing.T) {
	docs := memstore.New()
	rec := tracking.NewRecorder(docs)
	if _, err := rec.Track(context.Background(), "ev-1", "m1", "x@example.com"); err != nil {
		t.Fatal(err)
	}
	docs.FailWrites = true

	rr := post(newHandler(rec), `{"RecordType":"Open","MessageID":"m1"}`, true)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 on store write failure", rr.Code)
	}
}
