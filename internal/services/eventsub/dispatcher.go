package eventsub

import (
	"context"
	"net/http"
	"time"
)

// RejectionBody is sent with every 403.
const RejectionBody = "HMAC digest check failed"

// Request is one inbound webhook delivery with its body already captured.
type Request struct {
	Provider   string
	EventType  string
	RemoteAddr string
	Headers    http.Header
	Body       []byte
	// BodyErr is set when the body could not be captured in full.
	BodyErr error
}

// MessageID returns the provider message id header.
func (r Request) MessageID() string {
	return r.Headers.Get(HeaderMessageID)
}

// Response is what the endpoint writes back to the provider.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Kind        Kind
	Verified    bool
}

// Observer receives pipeline diagnostics. Implementations must not block.
type Observer interface {
	SignatureRejected(ctx context.Context, req Request, err error)
	MalformedBody(ctx context.Context, req Request, err error)
	ChallengeAnswered(ctx context.Context, req Request)
	Revoked(ctx context.Context, req Request, userID string)
	Notified(ctx context.Context, req Request, userID string, forwarded bool)
	ForwardFailed(ctx context.Context, req Request, err error)
}

// NopObserver discards all diagnostics.
type NopObserver struct{}

func (NopObserver) SignatureRejected(context.Context, Request, error) {}
func (NopObserver) MalformedBody(context.Context, Request, error)     {}
func (NopObserver) ChallengeAnswered(context.Context, Request)        {}
func (NopObserver) Revoked(context.Context, Request, string)          {}
func (NopObserver) Notified(context.Context, Request, string, bool)   {}
func (NopObserver) ForwardFailed(context.Context, Request, error)     {}

// Dispatcher runs the verify, decode, classify and act pipeline for each request.
type Dispatcher struct {
	verifier       *Verifier
	forwarder      Forwarder
	revocations    RevocationRecorder
	observer       Observer
	forwardTimeout time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRevocationRecorder forwards revocations to r.
func WithRevocationRecorder(r RevocationRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.revocations = r
	}
}

// WithForwardTimeout bounds each forwarding call. Non-positive values are ignored.
func WithForwardTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.forwardTimeout = timeout
		}
	}
}

// NewDispatcher wires the pipeline. A nil forwarder drops events and a nil observer discards diagnostics.
func NewDispatcher(verifier *Verifier, forwarder Forwarder, observer Observer, opts ...DispatcherOption) *Dispatcher {
	if observer == nil {
		observer = NopObserver{}
	}
	d := &Dispatcher{
		verifier:       verifier,
		forwarder:      forwarder,
		observer:       observer,
		forwardTimeout: DefaultForwardTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch produces the response for req. It only ever answers 200 or 403.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	if req.BodyErr != nil {
		d.observer.SignatureRejected(ctx, req, req.BodyErr)
		return rejected()
	}
	if err := d.verifier.VerifyDetailed(req.Headers, req.Body); err != nil {
		d.observer.SignatureRejected(ctx, req, err)
		return rejected()
	}

	body, err := DecodeBody(req.Body)
	if err != nil {
		d.observer.MalformedBody(ctx, req, err)
	}

	kind := Classify(body, req.Headers)
	switch kind {
	case KindChallenge:
		d.observer.ChallengeAnswered(ctx, req)
		return Response{
			StatusCode:  http.StatusOK,
			ContentType: "text/plain",
			Body:        []byte(body.(Challenge).Value),
			Kind:        kind,
			Verified:    true,
		}
	case KindRevocation:
		d.handleRevocation(ctx, req, UserIDOf(body))
	default:
		d.handleNotification(ctx, req, body)
	}

	return Response{StatusCode: http.StatusOK, Kind: kind, Verified: true}
}

func (d *Dispatcher) handleRevocation(ctx context.Context, req Request, userID string) {
	d.observer.Revoked(ctx, req, userID)
	if d.revocations == nil {
		return
	}
	revocation := Revocation{
		Provider:  req.Provider,
		EventType: req.EventType,
		UserID:    userID,
		MessageID: req.MessageID(),
		Timestamp: req.Headers.Get(HeaderMessageTimestamp),
	}
	err := isolate(ctx, d.forwardTimeout, func(ctx context.Context) error {
		return d.revocations.RecordRevocation(ctx, revocation)
	})
	if err != nil {
		d.observer.ForwardFailed(ctx, req, err)
	}
}

func (d *Dispatcher) handleNotification(ctx context.Context, req Request, body Body) {
	n, _ := body.(Notification)
	if !n.HasEvent() || d.forwarder == nil {
		d.observer.Notified(ctx, req, n.UserID, false)
		return
	}

	event := Event{
		Provider:  req.Provider,
		EventType: req.EventType,
		UserID:    n.UserID,
		MessageID: req.MessageID(),
		Timestamp: req.Headers.Get(HeaderMessageTimestamp),
		Payload:   n.Event,
	}
	err := isolate(ctx, d.forwardTimeout, func(ctx context.Context) error {
		return d.forwarder.Forward(ctx, event)
	})
	if err != nil {
		d.observer.ForwardFailed(ctx, req, err)
	}
	d.observer.Notified(ctx, req, n.UserID, err == nil)
}

func rejected() Response {
	return Response{
		StatusCode:  http.StatusForbidden,
		ContentType: "text/plain",
		Body:        []byte(RejectionBody),
	}
}
