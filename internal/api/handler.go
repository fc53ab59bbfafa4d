package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/myerscreative/flowdoors-tracking/internal/attribution"
	"github.com/myerscreative/flowdoors-tracking/internal/config"
	"github.com/myerscreative/flowdoors-tracking/internal/event"
	"github.com/myerscreative/flowdoors-tracking/internal/forward"
	"github.com/myerscreative/flowdoors-tracking/internal/metrics"
	"github.com/myerscreative/flowdoors-tracking/internal/pii"
	"github.com/myerscreative/flowdoors-tracking/internal/store"
)

const (
	eventsCollection     = "events"
	leadDraftsCollection = "lead_drafts"
	visitorCookie        = "fd_vid"
)

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Cfg        config.Config
	Forwarding *config.Loader
	Docs       store.Documents
	Normalizer *event.Normalizer
	Forwarders *forward.Registry
	Webhook    http.Handler
	Log        *slog.Logger
	Now        func() time.Time
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	deps     Deps
	visitors *attribution.VisitorStore
	limiter  *rateLimiter
	mux      *http.ServeMux
}

// New creates the HTTP handler and registers all routes. ctx bounds the
// rate-limiter sweep goroutine.
func New(ctx context.Context, deps Deps) http.Handler {
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	h := &Handler{
		deps: deps,
		visitors: &attribution.VisitorStore{
			Docs: deps.Docs,
			TTL:  deps.Cfg.AttributionTTL,
			Now:  deps.Now,
		},
		limiter: newRateLimiter(deps.Cfg.RateLimitPerMin, deps.Now),
		mux:     http.NewServeMux(),
	}
	h.limiter.startSweep(ctx, time.Minute)

	h.mux.HandleFunc("POST /v1/events", h.limited(h.submitEvent))
	h.mux.HandleFunc("PUT /v1/leads/autosave", h.limited(h.autosaveLead))
	h.mux.HandleFunc("POST /v1/attribution/capture", h.limited(h.captureAttribution))
	h.mux.Handle("/v1/webhooks/email", deps.Webhook)
	h.mux.HandleFunc("GET /v1/forwarding", h.listForwarding)
	h.mux.HandleFunc("POST /v1/forwarding/reload", h.reloadForwarding)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(deps.Log, h.mux)
}

func (h *Handler) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
			writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		if !h.limiter.allow(clientKey(r)) {
			metrics.RateLimited.Inc()
			w.Header().Set("Retry-After", "10")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// POST /v1/events — normalize, persist, fan out to vendors.
func (h *Handler) submitEvent(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, h.deps.Cfg.MaxBodyBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta := event.RequestMeta{
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RemoteAddr:   r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}

	start := time.Now()
	ev, fieldErrs, err := h.deps.Normalizer.Normalize(body, meta)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(fieldErrs) > 0 {
		metrics.ValidationFailures.Inc()
		writeValidationError(w, fieldErrs)
		return
	}
	metrics.EventsNormalized.Inc()
	metrics.NormalizeDuration.Observe(float64(time.Since(start).Milliseconds()))

	// Authoritative path: a silent write failure would lose the event.
	if err := h.deps.Docs.Insert(r.Context(), eventsCollection, ev.EventID, ev); err != nil {
		h.deps.Log.Error("event write failed", "event_id", ev.EventID, "err", err)
		writeError(w, http.StatusInternalServerError, "event could not be stored")
		return
	}
	h.deps.Log.Info("event normalized", "event_id", ev.EventID, "event_name", ev.EventName)

	outcomes := forward.Dispatch(r.Context(), h.deps.Forwarders, ev, h.deps.Cfg.ForwardTimeout, h.deps.Log)

	writeJSON(w, http.StatusOK, map[string]any{
		"event":      ev,
		"forwarding": outcomes,
	})
}

// autosaveRequest is deliberately lenient: partial form state arrives here
// on every blur, so only the email (the upsert key) is required.
type autosaveRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Referral string `json:"referral,omitempty"`
}

type leadDraft struct {
	Name        string `json:"name,omitempty" bson:"name,omitempty"`
	EmailHashed string `json:"email_hashed" bson:"email_hashed"`
	PhoneHashed string `json:"phone_hashed,omitempty" bson:"phone_hashed,omitempty"`
	Referral    string `json:"referral,omitempty" bson:"referral,omitempty"`
	UpdatedAt   int64  `json:"updated_at" bson:"updated_at"`
}

// PUT /v1/leads/autosave — best-effort draft capture keyed by email.
func (h *Handler) autosaveLead(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, h.deps.Cfg.MaxBodyBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req autosaveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	id := deriveLeadKey(req.Email)
	if id == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	draft := leadDraft{
		Name:        req.Name,
		EmailHashed: id,
		PhoneHashed: hashedPhone(req.Phone),
		Referral:    req.Referral,
		UpdatedAt:   h.deps.Now().Unix(),
	}
	if err := h.deps.Docs.Upsert(r.Context(), leadDraftsCollection, id, draft); err != nil {
		h.deps.Log.Error("lead autosave failed", "lead_key", id, "err", err)
		writeError(w, http.StatusInternalServerError, "autosave failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type captureRequest struct {
	PageURL  string `json:"page_url"`
	Referrer string `json:"referrer,omitempty"`
}

// POST /v1/attribution/capture — page-load merge and dual-store persist.
func (h *Handler) captureAttribution(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, h.deps.Cfg.MaxBodyBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req captureRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Referrer == "" {
		req.Referrer = r.Referer()
	}

	visitorID := h.visitorID(w, r)
	stores := []attribution.Store{
		&attribution.CookieStore{W: w, R: r, TTL: h.deps.Cfg.AttributionTTL},
		h.visitors,
	}
	rec := attribution.Capture(r.Context(), stores, visitorID, req.PageURL, req.Referrer, h.deps.Now(), h.deps.Log)
	metrics.AttributionCaptures.Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"visitor_id":  visitorID,
		"attribution": rec,
	})
}

// GET /v1/forwarding — current per-vendor switches.
func (h *Handler) listForwarding(w http.ResponseWriter, r *http.Request) {
	if h.deps.Forwarding == nil {
		writeJSON(w, http.StatusOK, map[string]any{"vendors": map[string]any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vendors": h.deps.Forwarding.Forwarding().Vendors,
	})
}

// POST /v1/forwarding/reload — re-read the forwarding config from disk.
func (h *Handler) reloadForwarding(w http.ResponseWriter, r *http.Request) {
	if h.deps.Forwarding == nil {
		writeError(w, http.StatusNotFound, "forwarding config not loaded")
		return
	}
	fwd, err := h.deps.Forwarding.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded": true,
		"vendors":  len(fwd.Vendors),
	})
}

// visitorID reads the visitor cookie, minting one on first sight.
func (h *Handler) visitorID(w http.ResponseWriter, r *http.Request) string {
	if ck, err := r.Cookie(visitorCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    id,
		Path:     "/",
		Expires:  h.deps.Now().Add(h.deps.Cfg.AttributionTTL),
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// deriveLeadKey turns an email into the stable, PII-free autosave key.
func deriveLeadKey(email string) string {
	return pii.HashPII(email)
}

func hashedPhone(phone string) string {
	return pii.HashPII(pii.NormalizePhone(phone))
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Docs.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
