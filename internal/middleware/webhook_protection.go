package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// WebhookProtection rate limits webhook deliveries.
// Duplicate deliveries are not filtered here; the event store is idempotent per message id.
type WebhookProtection struct {
	rateLimiter *rate.Limiter
	onLimited   func(r *http.Request)
}

// NewWebhookProtection creates a limiter allowing requestsPerSecond with the given burst.
// Non-positive values fall back to 100 webhooks/sec, burst 200.
func NewWebhookProtection(requestsPerSecond, burst int, onLimited func(r *http.Request)) *WebhookProtection {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 100
	}
	if burst <= 0 {
		burst = 200
	}
	return &WebhookProtection{
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		onLimited:   onLimited,
	}
}

// Middleware applies webhook rate limiting. Twitch redelivers on any non-2xx,
// so a 429 here only defers the message.
func (wp *WebhookProtection) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !wp.rateLimiter.Allow() {
			rejectLimited(w, r, wp.onLimited)
			return
		}

		next.ServeHTTP(w, r)
	}
}
