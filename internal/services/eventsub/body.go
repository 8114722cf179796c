package eventsub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxBodyBytes bounds how much of a webhook body is buffered.
const DefaultMaxBodyBytes = 1 << 20

var (
	ErrMalformedBody = errors.New("malformed webhook body")
	ErrBodyTooLarge  = errors.New("webhook body exceeds size limit")
)

// ReadRawBody reads r to EOF and returns the exact bytes received.
// An empty body yields an empty, non-nil slice. A limit <= 0 selects DefaultMaxBodyBytes.
func ReadRawBody(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	if r == nil {
		return []byte{}, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, ErrBodyTooLarge
	}
	if raw == nil {
		raw = []byte{}
	}
	return raw, nil
}

// Body is the decoded webhook payload: one of Challenge, Notification or Unknown.
type Body interface {
	isBody()
}

// Challenge is a subscription verification handshake.
type Challenge struct {
	Value string
}

// Notification carries the optional user id and event payload.
// Revocation messages decode to this shape as well; the message type header tells them apart.
type Notification struct {
	UserID string
	Event  json.RawMessage
}

// Unknown is a body with none of the recognized fields, including an empty or unparsable one.
type Unknown struct{}

func (Challenge) isBody()    {}
func (Notification) isBody() {}
func (Unknown) isBody()      {}

// HasEvent reports whether the notification carried an event payload.
func (n Notification) HasEvent() bool {
	return len(n.Event) > 0
}

// DecodeBody parses raw into a Body. It always returns a usable Body; on invalid
// input the result is Unknown and the error wraps ErrMalformedBody.
// Field names match exactly; "Challenge" or "EVENT" are unrecognized keys.
func DecodeBody(raw []byte) (Body, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Unknown{}, nil
	}

	if trimmed[0] != '{' {
		return Unknown{}, fmt.Errorf("%w: top-level value is not an object", ErrMalformedBody)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Unknown{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if challenge, ok := decodeString(fields["challenge"]); ok && challenge != "" {
		return Challenge{Value: challenge}, nil
	}

	userID, _ := decodeString(fields["user_id"])
	var event json.RawMessage
	if ev := fields["event"]; len(ev) > 0 && !bytes.Equal(ev, []byte("null")) {
		event = ev
	}
	if userID == "" && event == nil {
		return Unknown{}, nil
	}
	return Notification{UserID: userID, Event: event}, nil
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// UserIDOf returns the user id carried by b, if any.
func UserIDOf(b Body) string {
	if n, ok := b.(Notification); ok {
		return n.UserID
	}
	return ""
}
