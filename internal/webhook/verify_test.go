package webhook

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"RecordType":"Open","MessageID":"m1"}`)
	good := Sign(secret, body)

	cases := []struct {
		name   string
		secret string
		header string
		body   []byte
		wantOK bool
	}{
		{"valid", secret, good, body, true},
		{"valid with surrounding space", secret, " " + good + " ", body, true},
		{"missing secret", "", good, body, false},
		{"missing header", secret, "", body, false},
		{"not base64", secret, "%%%not-base64%%%", body, false},
		{"wrong secret", "other", good, body, false},
		{"tampered body", secret, good, []byte(`{"RecordType":"Open","MessageID":"m2"}`), false},
		{"truncated signature", secret, good[:8], body, false},
		{"valid base64 wrong bytes", secret, base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")), body, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifySignature(tc.secret, tc.header, tc.body)
			if tc.wantOK && err != nil {
				t.Errorf("VerifySignature failed: %v", err)
			}
			if !tc.wantOK {
				if !errors.Is(err, ErrBadSignature) {
					t.Errorf("err = %v, want ErrBadSignature", err)
				}
			}
		})
	}
}
