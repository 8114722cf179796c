package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrMissingMessageID = errors.New("message id is required")

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// EventStore persists verified events and revocations.
type EventStore struct {
	db Execer
}

// NewEventStore creates a store backed by db (usually Pool).
func NewEventStore(db Execer) *EventStore {
	return &EventStore{db: db}
}

// InsertEvent stores an event. Redeliveries of the same message id are ignored;
// the returned bool reports whether a new row was written.
func (s *EventStore) InsertEvent(ctx context.Context, event StoredEvent) (bool, error) {
	if event.MessageID == "" {
		return false, ErrMissingMessageID
	}
	query := `
		INSERT INTO eventsub_events (message_id, provider, event_type, user_id, payload, message_timestamp)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		ON CONFLICT (message_id) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query,
		event.MessageID, event.Provider, event.EventType, event.UserID, []byte(event.Payload), event.MessageTimestamp)
	if err != nil {
		return false, fmt.Errorf("failed to insert event %s: %w", event.MessageID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// InsertRevocation stores a revocation, ignoring redeliveries.
func (s *EventStore) InsertRevocation(ctx context.Context, rev RevocationRecord) (bool, error) {
	if rev.MessageID == "" {
		return false, ErrMissingMessageID
	}
	query := `
		INSERT INTO subscription_revocations (message_id, provider, event_type, user_id, message_timestamp)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (message_id) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query, rev.MessageID, rev.Provider, rev.EventType, rev.UserID, rev.MessageTimestamp)
	if err != nil {
		return false, fmt.Errorf("failed to insert revocation %s: %w", rev.MessageID, err)
	}
	return tag.RowsAffected() == 1, nil
}
