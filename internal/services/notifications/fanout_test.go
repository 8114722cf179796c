package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/eventsub-receiver/internal/db"
	"github.com/yourusername/eventsub-receiver/internal/services/eventsub"
)

type fakeSink struct {
	name   string
	err    error
	mu     sync.Mutex
	events []eventsub.Event
	revs   []eventsub.Revocation
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) HandleEvent(_ context.Context, ev eventsub.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type fakeRevocationSink struct {
	fakeSink
}

func (f *fakeRevocationSink) HandleRevocation(_ context.Context, rev eventsub.Revocation) error {
	f.revs = append(f.revs, rev)
	return f.err
}

type fakeSender struct {
	content []string
}

func (f *fakeSender) Send(_ context.Context, content string) error {
	f.content = append(f.content, content)
	return nil
}

type fakeExecer struct {
	mu    sync.Mutex
	sqls  []string
	tag   string
	calls int
}

func (f *fakeExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sqls = append(f.sqls, sql)
	f.calls++
	return pgconn.NewCommandTag(f.tag), nil
}

func testEvent() eventsub.Event {
	return eventsub.Event{
		Provider:  "twitch",
		EventType: "stream.online",
		UserID:    "7",
		MessageID: "msg-1",
		Timestamp: "2023-07-19T10:11:12Z",
		Payload:   json.RawMessage(`{"broadcaster_user_name":"Streamer","type":"live"}`),
	}
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	a := &fakeSink{name: "a"}
	b := &fakeSink{name: "b"}
	svc := NewFanoutService(a, b)

	if err := svc.Forward(context.Background(), testEvent()); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected each sink to receive the event, got %d and %d", len(a.events), len(b.events))
	}
}

func TestFanout_FailureDoesNotStopOtherSinks(t *testing.T) {
	boom := errors.New("boom")
	bad := &fakeSink{name: "bad", err: boom}
	good := &fakeSink{name: "good"}
	svc := NewFanoutService(bad, good)

	err := svc.Forward(context.Background(), testEvent())
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined sink error, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad:") {
		t.Fatalf("expected sink name in error, got %v", err)
	}
	if len(good.events) != 1 {
		t.Fatalf("expected healthy sink to receive the event")
	}
}

func TestFanout_RecordRevocationOnlyReachesRevocationSinks(t *testing.T) {
	plain := &fakeSink{name: "plain"}
	tracking := &fakeRevocationSink{fakeSink{name: "tracking"}}
	svc := NewFanoutService(plain, tracking)

	rev := eventsub.Revocation{Provider: "twitch", EventType: "channel.follow", UserID: "42", MessageID: "m"}
	if err := svc.RecordRevocation(context.Background(), rev); err != nil {
		t.Fatalf("record revocation: %v", err)
	}
	if len(tracking.revs) != 1 || tracking.revs[0].UserID != "42" {
		t.Fatalf("expected revocation recorded, got %v", tracking.revs)
	}
}

func TestStoreSink(t *testing.T) {
	fake := &fakeExecer{tag: "INSERT 0 0"}
	sink := NewStoreSink(db.NewEventStore(fake))

	if err := sink.HandleEvent(context.Background(), testEvent()); err != nil {
		t.Fatalf("duplicate delivery must not be an error: %v", err)
	}
	if err := sink.HandleRevocation(context.Background(), eventsub.Revocation{MessageID: "m2"}); err != nil {
		t.Fatalf("handle revocation: %v", err)
	}
	if fake.calls != 2 || !strings.Contains(fake.sqls[0], "eventsub_events") || !strings.Contains(fake.sqls[1], "subscription_revocations") {
		t.Fatalf("unexpected statements %v", fake.sqls)
	}
}

func TestDiscordSink(t *testing.T) {
	sender := &fakeSender{}
	if err := NewDiscordSink(sender).HandleEvent(context.Background(), testEvent()); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(sender.content) != 1 || !strings.Contains(sender.content[0], "broadcaster_user_name: Streamer") {
		t.Fatalf("unexpected content %v", sender.content)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(&buf)
	if err := sink.HandleEvent(context.Background(), testEvent()); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	event, _ := entry.Context["event"].(map[string]interface{})
	if entry.Message != "event received" || event["type"] != "live" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestRenderSummary(t *testing.T) {
	got := RenderSummary(testEvent())
	want := "**stream.online** for user 7\nbroadcaster_user_name: Streamer\ntype: live"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	ev := testEvent()
	ev.Payload = json.RawMessage(`[1]`)
	ev.UserID = ""
	if got := RenderSummary(ev); got != "**stream.online**" {
		t.Fatalf("expected header only for non-object payload, got %q", got)
	}
}
