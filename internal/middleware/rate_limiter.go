package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// GlobalRateLimiter throttles an unauthenticated route with one shared token bucket.
type GlobalRateLimiter struct {
	limiter   *rate.Limiter
	onLimited func(r *http.Request)
}

// NewGlobalRateLimiter creates a global rate limiter. onLimited may be nil.
func NewGlobalRateLimiter(requestsPerSecond int, burst int, onLimited func(r *http.Request)) *GlobalRateLimiter {
	return &GlobalRateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		onLimited: onLimited,
	}
}

// Middleware applies global rate limiting.
func (gl *GlobalRateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !gl.limiter.Allow() {
			rejectLimited(w, r, gl.onLimited)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// rejectLimited writes the 429 shared by every throttled route.
func rejectLimited(w http.ResponseWriter, r *http.Request, onLimited func(r *http.Request)) {
	if onLimited != nil {
		onLimited(r)
	}
	w.Header().Set("Retry-After", "1")
	http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
}
