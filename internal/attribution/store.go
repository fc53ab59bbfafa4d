package attribution

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/myerscreative/flowdoors-tracking/internal/store"
)

// Store persists one visitor's attribution record. Two independent adapters
// back every visitor (cookie + document store) so that losing either one
// alone does not erase attribution.
type Store interface {
	Load(ctx context.Context, visitorID string) (*Record, error)
	Save(ctx context.Context, visitorID string, rec Record) error
}

const attributionCookie = "fd_attr"

// CookieStore keeps the record in a browser cookie, base64url-encoded JSON.
// It is bound to a single request/response pair.
type CookieStore struct {
	W   http.ResponseWriter
	R   *http.Request
	TTL time.Duration
}

func (c *CookieStore) Load(ctx context.Context, visitorID string) (*Record, error) {
	ck, err := c.R.Cookie(attributionCookie)
	if err != nil {
		return nil, nil // no cookie is not an error
	}
	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil, fmt.Errorf("attribution cookie: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("attribution cookie: %w", err)
	}
	return &rec, nil
}

func (c *CookieStore) Save(ctx context.Context, visitorID string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	http.SetCookie(c.W, &http.Cookie{
		Name:     attributionCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		Expires:  time.Now().Add(c.TTL),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

const visitorsCollection = "visitors"

// visitorDoc is the durable copy of a visitor's attribution state.
type visitorDoc struct {
	Attribution Record `json:"attribution" bson:"attribution"`
	UpdatedAt   int64  `json:"updated_at" bson:"updated_at"`
}

// VisitorStore keeps the record in the document store, keyed by visitor id.
// Retention is enforced here: records older than TTL load as absent.
type VisitorStore struct {
	Docs store.Documents
	TTL  time.Duration
	Now  func() time.Time
}

func (v *VisitorStore) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *VisitorStore) Load(ctx context.Context, visitorID string) (*Record, error) {
	if visitorID == "" {
		return nil, nil
	}
	var doc visitorDoc
	err := v.Docs.Get(ctx, visitorsCollection, visitorID, &doc)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if v.TTL > 0 && v.now().Unix()-doc.UpdatedAt > int64(v.TTL/time.Second) {
		return nil, nil // expired
	}
	rec := doc.Attribution
	return &rec, nil
}

func (v *VisitorStore) Save(ctx context.Context, visitorID string, rec Record) error {
	if visitorID == "" {
		return nil
	}
	return v.Docs.Upsert(ctx, visitorsCollection, visitorID, visitorDoc{
		Attribution: rec,
		UpdatedAt:   v.now().Unix(),
	})
}
