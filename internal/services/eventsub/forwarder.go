package eventsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultForwardTimeout keeps forwarding well inside Twitch's 10 second response budget.
const DefaultForwardTimeout = 5 * time.Second

var (
	ErrForwardPanic   = errors.New("event forwarder panicked")
	ErrForwardTimeout = errors.New("event forwarder timed out")
)

// Event is a verified notification handed to the event-handling collaborator.
type Event struct {
	Provider  string
	EventType string
	UserID    string
	MessageID string
	Timestamp string
	Payload   json.RawMessage
}

// Revocation records that the provider revoked a subscription.
type Revocation struct {
	Provider  string
	EventType string
	UserID    string
	MessageID string
	Timestamp string
}

// Forwarder receives verified events. Deliveries may repeat; implementations own idempotency.
type Forwarder interface {
	Forward(ctx context.Context, event Event) error
}

// ForwarderFunc adapts a function to Forwarder.
type ForwarderFunc func(ctx context.Context, event Event) error

// Forward calls f.
func (f ForwarderFunc) Forward(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// RevocationRecorder is notified of revoked subscriptions.
type RevocationRecorder interface {
	RecordRevocation(ctx context.Context, revocation Revocation) error
}

// isolate runs fn detached from the caller's cancellation, bounded by timeout,
// converting panics into errors. It returns once fn finishes or the timeout fires,
// whichever comes first.
func isolate(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("%w: %v", ErrForwardPanic, p)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w after %s", ErrForwardTimeout, timeout)
	}
}
