package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/myerscreative/flowdoors-tracking/internal/config"
	"github.com/myerscreative/flowdoors-tracking/internal/event"
	"github.com/myerscreative/flowdoors-tracking/internal/forward"
	"github.com/myerscreative/flowdoors-tracking/internal/pii"
	memstore "github.com/myerscreative/flowdoors-tracking/internal/store/memory"
)

func testClock() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

func newTestHandler(t *testing.T, docs *memstore.Store) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	norm := event.NewNormalizer()
	norm.Now = testClock

	return New(ctx, Deps{
		Cfg: config.Config{
			MaxBodyBytes:    1 << 20,
			RateLimitPerMin: 1000,
			AttributionTTL:  90 * 24 * time.Hour,
			ForwardTimeout:  50 * time.Millisecond,
		},
		Docs:       docs,
		Normalizer: norm,
		Forwarders: forward.NewRegistry(),
		Webhook:    http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        testClock,
	})
}

func TestSubmitEvent_HappyPath(t *testing.T) {
	docs := memstore.New()
	h := newTestHandler(t, docs)

	body := `{"event_name":"lead_submitted","user":{"email":"A@Test.com ","phone":"(555) 123-4567"},"lead":{"lead_id":"L1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Event event.CanonicalEvent `json:"event"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Event.User.EmailHashed != pii.HashPII("a@test.com") {
		t.Error("email must be canonicalized and hashed")
	}
	if resp.Event.Lead.Currency != "USD" {
		t.Errorf("currency = %q, want USD", resp.Event.Lead.Currency)
	}
	if strings.Contains(rr.Body.String(), "A@Test.com") || strings.Contains(rr.Body.String(), "5551234567") {
		t.Error("response leaks raw PII")
	}
	if _, ok := docs.Raw("events", resp.Event.EventID); !ok {
		t.Error("canonical event must be persisted")
	}
}

func TestSubmitEvent_ValidationFailure(t *testing.T) {
	h := newTestHandler(t, memstore.New())
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(`{"event_name":"page_view","lead":{}}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp struct {
		Fields []event.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Fields) == 0 {
		t.Error("validation failure must list field errors")
	}
}

func TestSubmitEvent_StoreFailureIsServerError(t *testing.T) {
	docs := memstore.New()
	docs.FailWrites = true
	h := newTestHandler(t, docs)

	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(`{"event_name":"deal_won","lead":{}}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when the authoritative write fails", rr.Code)
	}
}

func TestAutosave(t *testing.T) {
	docs := memstore.New()
	h := newTestHandler(t, docs)

	body := `{"name":"Pat","email":" Pat@Example.com ","phone":"(555) 111-2222","referral":"friend"}`
	req := httptest.NewRequest(http.MethodPut, "/v1/leads/autosave", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}

	key := pii.HashPII("pat@example.com")
	raw, ok := docs.Raw("lead_drafts", key)
	if !ok {
		t.Fatal("draft must be upserted under the derived email key")
	}
	if raw["email_hashed"] != key {
		t.Errorf("email_hashed = %v, want %s", raw["email_hashed"], key)
	}
	if want := pii.HashPII(pii.NormalizePhone("(555) 111-2222")); raw["phone_hashed"] != want {
		t.Errorf("phone_hashed = %v, want %s", raw["phone_hashed"], want)
	}
	for _, v := range raw {
		if v == "pat@example.com" || v == "(555) 111-2222" {
			t.Errorf("draft stores raw PII: %v", raw)
		}
	}

	// Same email, updated fields: still one document.
	req = httptest.NewRequest(http.MethodPut, "/v1/leads/autosave", strings.NewReader(`{"email":"pat@example.com","name":"Pat R"}`))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("second autosave status = %d", rr.Code)
	}
	if got, _ := docs.Raw("lead_drafts", key); got["name"] != "Pat R" {
		t.Errorf("upsert must replace the draft, got %v", got)
	}
}

func TestAutosave_RequiresEmail(t *testing.T) {
	h := newTestHandler(t, memstore.New())
	req := httptest.NewRequest(http.MethodPut, "/v1/leads/autosave", strings.NewReader(`{"name":"No Email"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestCaptureAttribution(t *testing.T) {
	docs := memstore.New()
	h := newTestHandler(t, docs)

	body := `{"page_url":"https://flowdoors.example/doors?utm_source=google&gclid=g1","referrer":"https://google.com"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/attribution/capture", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		VisitorID   string `json:"visitor_id"`
		Attribution struct {
			UTMSource string `json:"utm_source"`
			GCLID     string `json:"gclid"`
		} `json:"attribution"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.VisitorID == "" {
		t.Error("a visitor id must be minted on first sight")
	}
	if resp.Attribution.UTMSource != "google" || resp.Attribution.GCLID != "g1" {
		t.Errorf("attribution = %+v", resp.Attribution)
	}

	var sawVisitor, sawAttr bool
	for _, ck := range rr.Result().Cookies() {
		switch ck.Name {
		case "fd_vid":
			sawVisitor = ck.Value == resp.VisitorID
		case "fd_attr":
			sawAttr = ck.Value != ""
		}
	}
	if !sawVisitor || !sawAttr {
		t.Errorf("visitor/attribution cookies not set (visitor=%v attr=%v)", sawVisitor, sawAttr)
	}
	if _, ok := docs.Raw("visitors", resp.VisitorID); !ok {
		t.Error("durable visitor record must be written")
	}
}

func TestSubmitEvent_RejectsNonJSONContentType(t *testing.T) {
	h := newTestHandler(t, memstore.New())
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader("event_name=deal_won"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rr.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	h := newTestHandler(t, memstore.New())
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
}

func TestForwardingEndpoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forwarding.yaml")
	if err := os.WriteFile(path, []byte("vendors:\n  ga4:\n    enabled: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	loader, err := config.NewLoader(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := New(ctx, Deps{
		Forwarding: loader,
		Webhook:    http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/forwarding", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	if loader.Forwarding().VendorEnabled("ga4") {
		t.Fatal("fixture should start with ga4 disabled")
	}

	if err := os.WriteFile(path, []byte("vendors:\n  ga4:\n    enabled: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/forwarding/reload", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("reload status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if !loader.Forwarding().VendorEnabled("ga4") {
		t.Error("reload must pick up the edited kill switch")
	}
}

func TestRateLimiter(t *testing.T) {
	now := testClock()
	l := newRateLimiter(2, func() time.Time { return now })

	if !l.allow("a") || !l.allow("a") {
		t.Fatal("first two requests must pass")
	}
	if l.allow("a") {
		t.Error("third request in the window must be rejected")
	}
	if !l.allow("b") {
		t.Error("limits are per client key")
	}

	now = now.Add(61 * time.Second)
	if !l.allow("a") {
		t.Error("a new window must reset the counter")
	}
}
