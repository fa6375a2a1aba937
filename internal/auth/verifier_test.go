package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
	"testing"
)

// signPayload builds a signed payload the way a trusted client-side
// authority would: URL-encoded values plus a hash field.
func signPayload(t *testing.T, fields map[string]string, secret string) string {
	t.Helper()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}

	key := sha256.Sum256([]byte(secret))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	hash := hex.EncodeToString(mac.Sum(nil))

	pairs := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		pairs = append(pairs, k+"="+url.QueryEscape(fields[k]))
	}
	pairs = append(pairs, "hash="+hash)
	return strings.Join(pairs, "&")
}

func TestVerify_RoundTrip(t *testing.T) {
	const secret = "test-secret"
	payload := signPayload(t, map[string]string{
		"user":      `{"id":42,"name":"Ann"}`,
		"auth_date": "1718000000",
	}, secret)

	ok, err := Verify(payload, secret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected valid payload to verify")
	}
}

func TestVerify_TamperedHash(t *testing.T) {
	const secret = "test-secret"
	payload := signPayload(t, map[string]string{"user": "42"}, secret)

	// Flip the last character of the hash.
	last := payload[len(payload)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	tampered := payload[:len(payload)-1] + string(flipped)

	ok, err := Verify(tampered, secret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("expected tampered payload to fail")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	payload := signPayload(t, map[string]string{"user": "42"}, "secret-a")

	ok, err := Verify(payload, "secret-b")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("expected payload signed with another secret to fail")
	}
}

func TestVerify_MissingHashRejects(t *testing.T) {
	ok, err := Verify("user=42&auth_date=1718000000", "secret")
	if err != nil {
		t.Fatalf("missing hash must reject, not error: %v", err)
	}
	if ok {
		t.Fatalf("expected payload without hash to fail")
	}
}

func TestVerify_EmptySecretIsError(t *testing.T) {
	_, err := Verify("hash=deadbeef", "")
	if !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestVerify_FieldOrderIrrelevant(t *testing.T) {
	const secret = "s"
	signed := signPayload(t, map[string]string{"b": "2", "a": "1", "c": "3"}, secret)

	// Reassemble pairs in a different order; the sorted canonical string
	// must make the order of transmission irrelevant.
	pairs := strings.Split(signed, "&")
	for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}
	shuffled := strings.Join(pairs, "&")

	ok, err := Verify(shuffled, secret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected reordered payload to verify")
	}
}

func TestVerifier_Check(t *testing.T) {
	const secret = "test-secret"
	valid := signPayload(t, map[string]string{"user": "42"}, secret)

	tests := []struct {
		name       string
		verifier   *Verifier
		payload    string
		wantStatus Status
		wantErr    bool
	}{
		{"verified", NewVerifier(secret, true), valid, StatusVerified, false},
		{"rejected", NewVerifier("other", true), valid, StatusRejected, false},
		{"skipped without secret", NewVerifier("", true), valid, StatusSkippedNoSecret, false},
		{"no secret and no bypass", NewVerifier("", false), valid, StatusRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := tt.verifier.Check(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if status != tt.wantStatus {
				t.Errorf("Check() status = %v, want %v", status, tt.wantStatus)
			}
		})
	}
}

func TestVerifier_SkipIgnoresPayloadContent(t *testing.T) {
	v := NewVerifier("", true)
	status, err := v.Check("hash=notavalidhash")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != StatusSkippedNoSecret {
		t.Fatalf("expected skip with missing secret, got %v", status)
	}
}
