package logging

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Severity levels, lowest first.
const (
	SeverityDebug    = "DEBUG"
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// SecurityLogger writes structured webhook and security events as JSON lines.
// Events go to stdout by default, which CloudWatch Logs captures in Lambda.
type SecurityLogger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel int
	now      func() time.Time
}

// SecurityEvent represents a structured security event.
type SecurityEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType string                 `json:"event_type"`
	Severity  string                 `json:"severity"`
	Provider  string                 `json:"provider,omitempty"`
	MessageID string                 `json:"message_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
}

// NewSecurityLogger creates a logger writing to out (stdout when nil) that
// drops events below level ("debug", "info", "warn", "critical"; default info).
func NewSecurityLogger(out io.Writer, level string) *SecurityLogger {
	if out == nil {
		out = os.Stdout
	}
	return &SecurityLogger{
		out:      out,
		minLevel: parseLevel(level),
		now:      time.Now,
	}
}

// LogEvent logs a security event as structured JSON.
func (sl *SecurityLogger) LogEvent(_ context.Context, event SecurityEvent) {
	if severityRank(event.Severity) < sl.minLevel {
		return
	}
	event.Timestamp = sl.now().UTC()
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("[SECURITY_ERROR] Failed to marshal event: %v", err)
		return
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	eventJSON = append(eventJSON, '\n')
	if _, err := sl.out.Write(eventJSON); err != nil {
		log.Printf("[SECURITY_ERROR] Failed to write event: %v", err)
	}
}

// LogWebhookSignatureFailure logs a failed webhook signature verification.
func (sl *SecurityLogger) LogWebhookSignatureFailure(ctx context.Context, provider, messageID, ipAddress, reason string) {
	sl.LogEvent(ctx, SecurityEvent{
		EventType: "webhook_signature_failure",
		Severity:  SeverityCritical,
		Provider:  provider,
		MessageID: messageID,
		IPAddress: ipAddress,
		Success:   false,
		Details: map[string]interface{}{
			"reason": reason,
		},
	})
}

// LogRateLimitExceeded logs a rate limit violation.
func (sl *SecurityLogger) LogRateLimitExceeded(ctx context.Context, ipAddress, endpoint string) {
	sl.LogEvent(ctx, SecurityEvent{
		EventType: "rate_limit_exceeded",
		Severity:  SeverityWarning,
		IPAddress: ipAddress,
		Success:   false,
		Details: map[string]interface{}{
			"endpoint": endpoint,
		},
	})
}

// LogSubscriptionRevoked logs a provider-initiated subscription revocation.
func (sl *SecurityLogger) LogSubscriptionRevoked(ctx context.Context, provider, eventType, userID, messageID string) {
	sl.LogEvent(ctx, SecurityEvent{
		EventType: "subscription_revoked",
		Severity:  SeverityInfo,
		Provider:  provider,
		MessageID: messageID,
		UserID:    userID,
		Success:   true,
		Details: map[string]interface{}{
			"subscription_type": eventType,
		},
	})
}

func parseLevel(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return severityRank(SeverityDebug)
	case "warn", "warning":
		return severityRank(SeverityWarning)
	case "critical", "error":
		return severityRank(SeverityCritical)
	default:
		return severityRank(SeverityInfo)
	}
}

func severityRank(severity string) int {
	switch severity {
	case SeverityDebug:
		return 0
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 1
	}
}
