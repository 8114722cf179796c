package logging

import (
	"context"
	"errors"

	"github.com/yourusername/eventsub-receiver/internal/services/eventsub"
)

// Metric names published for webhook outcomes.
const (
	MetricChallenge        = "WebhookChallenge"
	MetricRevocation       = "WebhookRevocation"
	MetricNotification     = "WebhookNotification"
	MetricSignatureFailure = "WebhookSignatureFailure"
	MetricMalformedBody    = "WebhookMalformedBody"
	MetricForwardFailure   = "WebhookForwardFailure"
)

// MetricsPublisher counts webhook outcomes.
type MetricsPublisher interface {
	PublishWebhookMetric(ctx context.Context, name string)
}

// WebhookObserver reports dispatcher diagnostics to the security log and metrics.
type WebhookObserver struct {
	logger  *SecurityLogger
	metrics MetricsPublisher
}

var _ eventsub.Observer = (*WebhookObserver)(nil)

// NewWebhookObserver creates an observer. metrics may be nil.
func NewWebhookObserver(logger *SecurityLogger, metrics MetricsPublisher) *WebhookObserver {
	return &WebhookObserver{logger: logger, metrics: metrics}
}

func (o *WebhookObserver) publish(ctx context.Context, name string) {
	if o.metrics != nil {
		o.metrics.PublishWebhookMetric(ctx, name)
	}
}

func (o *WebhookObserver) SignatureRejected(ctx context.Context, req eventsub.Request, err error) {
	reason := "unknown"
	if err != nil {
		reason = err.Error()
	}
	if errors.Is(err, eventsub.ErrBodyTooLarge) {
		reason = "body_too_large"
	}
	o.logger.LogWebhookSignatureFailure(ctx, req.Provider, req.MessageID(), req.RemoteAddr, reason)
	o.publish(ctx, MetricSignatureFailure)
}

func (o *WebhookObserver) MalformedBody(ctx context.Context, req eventsub.Request, err error) {
	o.logger.LogEvent(ctx, webhookEvent(req, "webhook_malformed_body", SeverityWarning, map[string]interface{}{
		"error":      err.Error(),
		"body_bytes": len(req.Body),
	}))
	o.publish(ctx, MetricMalformedBody)
}

func (o *WebhookObserver) ChallengeAnswered(ctx context.Context, req eventsub.Request) {
	o.logger.LogEvent(ctx, webhookEvent(req, "webhook_challenge", SeverityInfo, map[string]interface{}{
		"subscription_type": req.EventType,
	}))
	o.publish(ctx, MetricChallenge)
}

func (o *WebhookObserver) Revoked(ctx context.Context, req eventsub.Request, userID string) {
	o.logger.LogSubscriptionRevoked(ctx, req.Provider, req.EventType, userID, req.MessageID())
	o.publish(ctx, MetricRevocation)
}

func (o *WebhookObserver) Notified(ctx context.Context, req eventsub.Request, userID string, forwarded bool) {
	event := webhookEvent(req, "webhook_notification", SeverityInfo, map[string]interface{}{
		"subscription_type": req.EventType,
		"forwarded":         forwarded,
	})
	event.UserID = userID
	o.logger.LogEvent(ctx, event)
	o.publish(ctx, MetricNotification)
}

func (o *WebhookObserver) ForwardFailed(ctx context.Context, req eventsub.Request, err error) {
	event := webhookEvent(req, "webhook_forward_failure", SeverityCritical, map[string]interface{}{
		"subscription_type": req.EventType,
		"error":             err.Error(),
	})
	event.Success = false
	o.logger.LogEvent(ctx, event)
	o.publish(ctx, MetricForwardFailure)
}

func webhookEvent(req eventsub.Request, eventType, severity string, details map[string]interface{}) SecurityEvent {
	return SecurityEvent{
		EventType: eventType,
		Severity:  severity,
		Provider:  req.Provider,
		MessageID: req.MessageID(),
		IPAddress: req.RemoteAddr,
		Details:   details,
		Success:   true,
	}
}
