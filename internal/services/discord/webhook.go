package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// maxContentLength is Discord's limit for message content, in characters.
const maxContentLength = 2000

// maxRetryAfter caps how long a rate limited send waits before its single retry.
const maxRetryAfter = 2 * time.Second

// WebhookClient posts messages to a Discord channel webhook
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

// WebhookMessage is the Discord execute-webhook payload
type WebhookMessage struct {
	Content         string           `json:"content"`
	Username        string           `json:"username,omitempty"`
	AllowedMentions *AllowedMentions `json:"allowed_mentions,omitempty"`
}

// AllowedMentions controls which mentions Discord resolves
type AllowedMentions struct {
	Parse []string `json:"parse"`
}

// NewWebhookClient creates a client for webhookURL
func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts content to the webhook. Mentions are disabled so relayed event
// text can never ping a channel. A 429 is retried once after Retry-After.
func (c *WebhookClient) Send(ctx context.Context, content string) error {
	content = truncate(content, maxContentLength)
	payload, err := json.Marshal(WebhookMessage{
		Content:         content,
		Username:        "EventSub",
		AllowedMentions: &AllowedMentions{Parse: []string{}},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	resp, err := c.post(ctx, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp.Header.Get("Retry-After"))
		resp.Body.Close()
		log.Printf("[DISCORD_API] Rate limited, retrying after %v", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if resp, err = c.post(ctx, payload); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord webhook failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (c *WebhookClient) post(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send discord webhook: %w", err)
	}
	return resp, nil
}

func retryAfter(header string) time.Duration {
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds < 0 {
		return time.Second
	}
	wait := time.Duration(seconds * float64(time.Second))
	if wait > maxRetryAfter {
		wait = maxRetryAfter
	}
	return wait
}

// truncate shortens s to at most limit characters, ending in "..." when cut.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}
