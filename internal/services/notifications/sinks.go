package notifications

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/yourusername/eventsub-receiver/internal/db"
	"github.com/yourusername/eventsub-receiver/internal/services/eventsub"
)

// StoreSink persists events and revocations to Postgres
type StoreSink struct {
	store *db.EventStore
}

// NewStoreSink creates a sink backed by store
func NewStoreSink(store *db.EventStore) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Name() string { return "postgres" }

func (s *StoreSink) HandleEvent(ctx context.Context, event eventsub.Event) error {
	inserted, err := s.store.InsertEvent(ctx, db.StoredEvent{
		MessageID:        event.MessageID,
		Provider:         event.Provider,
		EventType:        event.EventType,
		UserID:           event.UserID,
		Payload:          event.Payload,
		MessageTimestamp: event.Timestamp,
	})
	if err != nil {
		return err
	}
	if !inserted {
		log.Printf("[NOTIF_SKIP] Duplicate delivery: event=%s", event.MessageID)
	}
	return nil
}

func (s *StoreSink) HandleRevocation(ctx context.Context, rev eventsub.Revocation) error {
	_, err := s.store.InsertRevocation(ctx, db.RevocationRecord{
		MessageID:        rev.MessageID,
		Provider:         rev.Provider,
		EventType:        rev.EventType,
		UserID:           rev.UserID,
		MessageTimestamp: rev.Timestamp,
	})
	return err
}

// messageSender is implemented by discord.WebhookClient
type messageSender interface {
	Send(ctx context.Context, content string) error
}

// DiscordSink relays a one-line summary of each event to a Discord channel
type DiscordSink struct {
	sender messageSender
}

// NewDiscordSink creates a sink posting through sender
func NewDiscordSink(sender messageSender) *DiscordSink {
	return &DiscordSink{sender: sender}
}

func (s *DiscordSink) Name() string { return "discord" }

func (s *DiscordSink) HandleEvent(ctx context.Context, event eventsub.Event) error {
	return s.sender.Send(ctx, RenderSummary(event))
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// LogSink prints every event as a JSON line. It is the fallback when no other sink is configured.
type LogSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewLogSink creates a sink writing to out (stdout when nil)
func NewLogSink(out io.Writer) *LogSink {
	if out == nil {
		out = os.Stdout
	}
	return &LogSink{out: out}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) HandleEvent(_ context.Context, event eventsub.Event) error {
	return s.write("event received", map[string]interface{}{
		"provider":   event.Provider,
		"event_type": event.EventType,
		"user_id":    event.UserID,
		"message_id": event.MessageID,
		"event":      event.Payload,
	})
}

func (s *LogSink) HandleRevocation(_ context.Context, rev eventsub.Revocation) error {
	return s.write("subscription revoked", map[string]interface{}{
		"provider":   rev.Provider,
		"event_type": rev.EventType,
		"user_id":    rev.UserID,
		"message_id": rev.MessageID,
	})
}

func (s *LogSink) write(message string, ctx map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.out).Encode(LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     "INFO",
		Message:   message,
		Context:   ctx,
	})
}
