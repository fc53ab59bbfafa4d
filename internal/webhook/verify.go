// Package webhook receives asynchronous delivery-tracking callbacks from the
// email vendor: it authenticates each request with an HMAC signature over the
// raw body, then applies idempotent open/click updates.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// ErrBadSignature is the only authentication error this package exposes.
// Callers must not reveal which individual check failed.
var ErrBadSignature = errors.New("invalid webhook signature")

// VerifySignature checks a base64-encoded HMAC-SHA256 signature computed over
// the raw, unparsed request body. Missing secret, missing header, malformed
// base64, length mismatch, and digest mismatch all collapse into
// ErrBadSignature.
func VerifySignature(secret, header string, body []byte) error {
	if secret == "" {
		return ErrBadSignature
	}
	sig := strings.TrimSpace(header)
	if sig == "" {
		return ErrBadSignature
	}

	provided, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

// Sign computes the base64 signature for a body. Used by tests and by the
// send path when registering outbound callbacks with the vendor.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
