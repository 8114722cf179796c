package eventsub

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Twitch EventSub request headers. Lookups go through http.Header and are case-insensitive.
const (
	HeaderMessageID        = "Twitch-Eventsub-Message-Id"
	HeaderMessageTimestamp = "Twitch-Eventsub-Message-Timestamp"
	HeaderMessageSignature = "Twitch-Eventsub-Message-Signature"
	HeaderMessageType      = "Twitch-Eventsub-Message-Type"
)

var (
	ErrEmptySecret        = errors.New("webhook secret is empty")
	ErrMissingMessageID   = errors.New("message id header is required")
	ErrMissingTimestamp   = errors.New("message timestamp header is required")
	ErrMissingSignature   = errors.New("message signature header is required")
	ErrMalformedSignature = errors.New("malformed message signature header")
	ErrSignatureMismatch  = errors.New("message signature mismatch")
	ErrMessageTooOld      = errors.New("message timestamp outside allowed age")
)

// Secret is the shared webhook secret registered with the provider.
// The zero value is not a usable secret; build one with NewSecret.
type Secret struct {
	key []byte
}

// NewSecret copies value into an immutable Secret. An empty value is a configuration error.
func NewSecret(value string) (Secret, error) {
	if value == "" {
		return Secret{}, ErrEmptySecret
	}
	return Secret{key: []byte(value)}, nil
}

// IsZero reports whether the secret was never initialized.
func (s Secret) IsZero() bool {
	return len(s.key) == 0
}

// String keeps the secret out of logs and fmt output.
func (s Secret) String() string {
	return "[REDACTED]"
}

// Sign returns the lowercase hex HMAC-SHA256 of messageID + timestamp + body.
func Sign(secret Secret, messageID, timestamp string, body []byte) string {
	return hex.EncodeToString(computeHMAC(secret.key, messageID, timestamp, body))
}

// SignatureHeader formats a digest the way the provider sends it.
func SignatureHeader(digest string) string {
	return "sha256=" + digest
}

func computeHMAC(key []byte, messageID, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return mac.Sum(nil)
}

// Verifier checks EventSub message signatures against a fixed secret.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secret Secret
	maxAge time.Duration
	now    func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithMaxMessageAge rejects messages whose timestamp is older than d.
// Zero disables the check.
func WithMaxMessageAge(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.maxAge = d
	}
}

// WithClock overrides the time source used by the message age check.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier creates a signature verifier for secret.
func NewVerifier(secret Secret, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		secret: secret,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify reports whether the request headers carry a valid signature for body.
func (v *Verifier) Verify(headers http.Header, body []byte) bool {
	return v.VerifyDetailed(headers, body) == nil
}

// VerifyDetailed is Verify with the failure cause, for diagnostics only.
// Every non-nil result must be treated the same way by callers.
func (v *Verifier) VerifyDetailed(headers http.Header, body []byte) error {
	if v.secret.IsZero() {
		return ErrEmptySecret
	}

	messageID := headers.Get(HeaderMessageID)
	if messageID == "" {
		return ErrMissingMessageID
	}
	timestamp := headers.Get(HeaderMessageTimestamp)
	if timestamp == "" {
		return ErrMissingTimestamp
	}
	header := headers.Get(HeaderMessageSignature)
	if header == "" {
		return ErrMissingSignature
	}

	_, digest, ok := strings.Cut(header, "=")
	if !ok || !isLowerHex(digest) {
		return ErrMalformedSignature
	}
	provided, err := hex.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}

	if v.maxAge > 0 {
		sent, err := time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMessageTooOld, err)
		}
		if v.now().Sub(sent) > v.maxAge {
			return ErrMessageTooOld
		}
	}

	expected := computeHMAC(v.secret.key, messageID, timestamp, body)
	if !hmac.Equal(provided, expected) {
		return ErrSignatureMismatch
	}
	return nil
}

// isLowerHex reports whether s is non-empty and made only of 0-9 and a-f,
// the form Sign produces and Twitch sends.
func isLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
