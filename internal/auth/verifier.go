package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

// ErrNoSecret is returned when verification is requested but no shared
// secret is configured.
var ErrNoSecret = errors.New("shared secret is not configured")

// Status is the outcome of an identity check.
type Status int

const (
	// StatusVerified means the payload hash matched the shared secret.
	StatusVerified Status = iota
	// StatusSkippedNoSecret means no secret is configured and the
	// configured policy lets the payload through unchecked.
	StatusSkippedNoSecret
	// StatusRejected means the payload hash did not match.
	StatusRejected
)

// Verifier validates signed identity payloads against a shared secret.
type Verifier struct {
	secret string

	// allowUnverified lets payloads through with StatusSkippedNoSecret
	// when no secret is configured instead of failing the request. An
	// explicit, security-relevant configuration choice.
	allowUnverified bool
}

func NewVerifier(secret string, allowUnverifiedWhenSecretMissing bool) *Verifier {
	return &Verifier{secret: secret, allowUnverified: allowUnverifiedWhenSecretMissing}
}

// HasSecret reports whether a shared secret is configured.
func (v *Verifier) HasSecret() bool {
	return v.secret != ""
}

// Check applies the configured policy to a payload. With no secret
// configured it either skips verification or returns ErrNoSecret,
// depending on policy.
func (v *Verifier) Check(payload string) (Status, error) {
	if v.secret == "" {
		if v.allowUnverified {
			return StatusSkippedNoSecret, nil
		}
		return StatusRejected, ErrNoSecret
	}

	ok, err := Verify(payload, v.secret)
	if err != nil {
		return StatusRejected, err
	}
	if !ok {
		return StatusRejected, nil
	}
	return StatusVerified, nil
}

// Verify checks the HMAC signature of an identity payload. The payload is
// an &-separated list of key=value pairs with URL-encoded values, one of
// which must be `hash`. A payload without a hash field is rejected, not an
// error. An empty secret is an error since verification was explicitly
// requested.
func Verify(payload, secret string) (bool, error) {
	if secret == "" {
		return false, ErrNoSecret
	}

	fields, providedHash := parsePayload(payload)
	if providedHash == "" {
		return false, nil
	}

	digest := sign(canonical(fields), secret)

	// Plain string comparison, not constant time. Kept as-is so digests
	// stay interchangeable with existing clients, see DESIGN.md.
	return digest == providedHash, nil
}

func parsePayload(payload string) (map[string]string, string) {
	fields := make(map[string]string)
	hash := ""

	for _, pair := range strings.Split(payload, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		if key == "hash" {
			hash = value
			continue
		}
		fields[key] = value
	}

	return fields, hash
}

// canonical builds the string that was signed: key=value pairs in
// lexicographic key order, joined by newlines.
func canonical(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	return strings.Join(parts, "\n")
}

// sign computes lowercase hex HMAC-SHA-256 of the canonical string, keyed
// by SHA-256 of the raw secret bytes.
func sign(canonicalStr, secret string) string {
	key := sha256.Sum256([]byte(secret))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(canonicalStr))
	return hex.EncodeToString(mac.Sum(nil))
}
