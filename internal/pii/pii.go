// Package pii canonicalizes and one-way-hashes personal identifiers so that
// the rest of the pipeline never has to touch raw email addresses or phone
// numbers. All functions are pure and never fail: bad input degrades to an
// empty result.
package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Canonicalize trims surrounding whitespace and lowercases, so the same
// identifier hashes identically regardless of how it was typed.
func Canonicalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// HashPII returns the hex-encoded SHA-256 of the canonicalized input.
// Empty input yields "".
func HashPII(raw string) string {
	c := Canonicalize(raw)
	if c == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(c))
	return hex.EncodeToString(sum[:])
}

// NormalizePhone converts a free-form phone number to E.164:
//
//   - a value already starting with "+" passes through unchanged
//   - 10 digits are assumed domestic and get a "+1" prefix
//   - 11 digits starting with "1" get a "+" prefix
//   - anything else keeps its digits and gets a "+" prefix as a best-effort
//     fallback (matches the capture script's lenient behavior)
//
// Empty input, or input with no digits at all, yields "".
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "+") {
		return trimmed
	}

	var b strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case digits == "":
		return ""
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	default:
		return "+" + digits
	}
}
