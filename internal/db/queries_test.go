package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	tag   string
	err   error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag(f.tag), nil
}

func TestInsertEvent(t *testing.T) {
	fake := &fakeExecer{tag: "INSERT 0 1"}
	store := NewEventStore(fake)

	inserted, err := store.InsertEvent(context.Background(), StoredEvent{
		MessageID:        "msg-1",
		Provider:         "twitch",
		EventType:        "stream.online",
		UserID:           "7",
		Payload:          []byte(`{"k":"v"}`),
		MessageTimestamp: "2023-07-19T10:11:12Z",
	})
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	if !inserted {
		t.Fatalf("expected row inserted")
	}
	call := fake.calls[0]
	if !strings.Contains(call.sql, "ON CONFLICT (message_id) DO NOTHING") {
		t.Fatalf("expected idempotent insert, got %s", call.sql)
	}
	if call.args[0] != "msg-1" || call.args[2] != "stream.online" || string(call.args[4].([]byte)) != `{"k":"v"}` {
		t.Fatalf("unexpected args %v", call.args)
	}
}

func TestInsertEvent_Duplicate(t *testing.T) {
	store := NewEventStore(&fakeExecer{tag: "INSERT 0 0"})
	inserted, err := store.InsertEvent(context.Background(), StoredEvent{MessageID: "msg-1", Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate to be ignored")
	}
}

func TestInsertEvent_Errors(t *testing.T) {
	store := NewEventStore(&fakeExecer{err: errors.New("connection refused")})
	if _, err := store.InsertEvent(context.Background(), StoredEvent{}); !errors.Is(err, ErrMissingMessageID) {
		t.Fatalf("expected ErrMissingMessageID, got %v", err)
	}
	_, err := store.InsertEvent(context.Background(), StoredEvent{MessageID: "m", Payload: []byte(`{}`)})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}

func TestInsertRevocation(t *testing.T) {
	fake := &fakeExecer{tag: "INSERT 0 1"}
	store := NewEventStore(fake)
	inserted, err := store.InsertRevocation(context.Background(), RevocationRecord{
		MessageID: "msg-2", Provider: "twitch", EventType: "channel.follow", UserID: "42", MessageTimestamp: "ts",
	})
	if err != nil || !inserted {
		t.Fatalf("expected revocation inserted, got %v %v", inserted, err)
	}
	if !strings.Contains(fake.calls[0].sql, "subscription_revocations") {
		t.Fatalf("expected revocations table, got %s", fake.calls[0].sql)
	}
}

func TestEnsureSchema(t *testing.T) {
	fake := &fakeExecer{tag: "CREATE TABLE"}
	if err := EnsureSchema(context.Background(), fake); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if fake.calls[0].sql != Schema {
		t.Fatalf("expected schema statement")
	}
}
