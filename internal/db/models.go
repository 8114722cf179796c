package db

import (
	"encoding/json"
)

// StoredEvent is a verified EventSub notification persisted for downstream consumers
type StoredEvent struct {
	MessageID        string          `json:"message_id"`
	Provider         string          `json:"provider"`
	EventType        string          `json:"event_type"`
	UserID           string          `json:"user_id,omitempty"`
	Payload          json.RawMessage `json:"payload"`
	MessageTimestamp string          `json:"message_timestamp"`
}

// RevocationRecord is a provider-initiated subscription revocation
type RevocationRecord struct {
	MessageID        string `json:"message_id"`
	Provider         string `json:"provider"`
	EventType        string `json:"event_type"`
	UserID           string `json:"user_id,omitempty"`
	MessageTimestamp string `json:"message_timestamp"`
}
