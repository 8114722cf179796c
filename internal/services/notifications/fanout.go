package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/eventsub-receiver/internal/services/eventsub"
)

// Sink consumes verified events
type Sink interface {
	Name() string
	HandleEvent(ctx context.Context, event eventsub.Event) error
}

// RevocationSink consumes subscription revocations
type RevocationSink interface {
	HandleRevocation(ctx context.Context, revocation eventsub.Revocation) error
}

// FanoutService delivers each verified event to every configured sink
type FanoutService struct {
	sinks []Sink
}

var (
	_ eventsub.Forwarder          = (*FanoutService)(nil)
	_ eventsub.RevocationRecorder = (*FanoutService)(nil)
)

// NewFanoutService creates a new fanout service over sinks
func NewFanoutService(sinks ...Sink) *FanoutService {
	return &FanoutService{sinks: sinks}
}

// Forward delivers event to all sinks concurrently. A failing sink does not
// stop the others; all failures are joined into the returned error.
func (s *FanoutService) Forward(ctx context.Context, event eventsub.Event) error {
	start := time.Now()
	errs := make([]error, len(s.sinks))

	var g errgroup.Group
	for i, sink := range s.sinks {
		g.Go(func() error {
			if err := sink.HandleEvent(ctx, event); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
				log.Printf("[FANOUT_ERROR] Sink %s failed for %s: %v", sink.Name(), event.MessageID, err)
			}
			return nil
		})
	}
	g.Wait()

	err := errors.Join(errs...)
	delivered := len(s.sinks)
	for _, e := range errs {
		if e != nil {
			delivered--
		}
	}
	log.Printf("[FANOUT] Completed: %s (%s), Sinks: %d/%d, Duration: %v",
		event.EventType, event.MessageID, delivered, len(s.sinks), time.Since(start))
	return err
}

// RecordRevocation passes revocation to every sink that tracks revocations
func (s *FanoutService) RecordRevocation(ctx context.Context, revocation eventsub.Revocation) error {
	var errs []error
	for _, sink := range s.sinks {
		rs, ok := sink.(RevocationSink)
		if !ok {
			continue
		}
		if err := rs.HandleRevocation(ctx, revocation); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
