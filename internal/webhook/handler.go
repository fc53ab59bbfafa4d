package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/myerscreative/flowdoors-tracking/internal/metrics"
	"github.com/myerscreative/flowdoors-tracking/internal/store"
	"github.com/myerscreative/flowdoors-tracking/internal/tracking"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

const defaultMaxBody = 1 << 20 // 1 MiB

// Applier records one delivery callback. Implemented by tracking.Recorder.
type Applier interface {
	Apply(ctx context.Context, messageID string, typ tracking.EventType) error
}

// Handler is the webhook receiver endpoint. A GET is a no-auth liveness
// probe; a POST runs Received → Authenticated → Parsed → Applied, in that
// order — nothing is parsed or applied before the signature checks out.
type Handler struct {
	Secret  string
	Applier Applier
	Log     *slog.Logger
	MaxBody int64
}

type ack struct {
	Status    string `json:"status"`
	Processed int    `json:"processed,omitempty"`
	Skipped   int    `json:"skipped,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, ack{Status: "ok"})
	case http.MethodPost:
		h.receive(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	if err := VerifySignature(h.Secret, r.Header.Get(SignatureHeader), body); err != nil {
		metrics.WebhookAuthFailures.Inc()
		// Deliberately opaque: do not reveal which check failed.
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	events, err := parseBatch(body)
	if err != nil {
		// Authenticated but malformed: the vendor sent something unexpected.
		// Surface a server error so it alerts instead of dropping silently.
		h.Log.Error("webhook payload unparseable after auth", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "malformed payload"})
		return
	}

	processed, skipped := 0, 0
	for _, ev := range events {
		typ, ok := eventType(ev.RecordType)
		if !ok {
			h.Log.Info("webhook record type not handled", "record_type", ev.RecordType)
			metrics.WebhookEvents.WithLabelValues("unknown", "skipped").Inc()
			skipped++
			continue
		}

		err := h.Applier.Apply(r.Context(), ev.MessageID, typ)
		switch {
		case err == nil:
			metrics.WebhookEvents.WithLabelValues(string(typ), "applied").Inc()
			processed++
		case errors.Is(err, store.ErrNotFound):
			// Not an error: the index entry may not exist yet, or the
			// message predates tracking. Keep going with the batch.
			h.Log.Info("webhook message id unmapped", "message_id", ev.MessageID)
			metrics.WebhookEvents.WithLabelValues(string(typ), "unmapped").Inc()
			skipped++
		default:
			h.Log.Error("webhook update failed", "message_id", ev.MessageID, "err", err)
			metrics.WebhookEvents.WithLabelValues(string(typ), "error").Inc()
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
	}

	h.writeJSON(w, http.StatusOK, ack{Status: "ok", Processed: processed, Skipped: skipped})
}

func eventType(recordType string) (tracking.EventType, bool) {
	switch recordType {
	case "Open":
		return tracking.Open, true
	case "Click":
		return tracking.Click, true
	}
	return "", false
}

func (h *Handler) readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	limit := h.MaxBody
	if limit <= 0 {
		limit = defaultMaxBody
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
