package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator checks configuration values before the service starts.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateWebhookSecret checks the EventSub webhook secret. Only emptiness is fatal;
// Twitch additionally requires 10-100 ASCII characters when registering a subscription,
// which is reported as a warning.
func (v *Validator) ValidateWebhookSecret(secret string) (warning string, err error) {
	if secret == "" {
		return "", fmt.Errorf("webhook secret is required")
	}
	if len(secret) < 10 || len(secret) > 100 {
		warning = "webhook secret length is outside Twitch's 10-100 character range"
	}
	for _, r := range secret {
		if r > 127 {
			return "webhook secret contains non-ASCII characters", nil
		}
	}
	return warning, nil
}

// ValidateDatabaseURL checks that a database URL is a postgres URL. Empty means no database.
func (v *Validator) ValidateDatabaseURL(databaseURL string) error {
	if databaseURL == "" {
		return nil
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("invalid database URL")
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("database URL must use the postgres scheme")
	}
	return nil
}

// ValidateDiscordWebhookURL checks a Discord channel webhook URL. Empty disables the relay.
func (v *Validator) ValidateDiscordWebhookURL(webhookURL string) error {
	if webhookURL == "" {
		return nil
	}
	u, err := url.Parse(webhookURL)
	if err != nil {
		return fmt.Errorf("invalid Discord webhook URL")
	}
	if u.Scheme != "https" {
		return fmt.Errorf("Discord webhook URL must use https")
	}
	host := strings.ToLower(u.Hostname())
	if host != "discord.com" && host != "discordapp.com" && !strings.HasSuffix(host, ".discord.com") {
		return fmt.Errorf("Discord webhook URL must point at discord.com")
	}
	if !strings.HasPrefix(u.Path, "/api/webhooks/") {
		return fmt.Errorf("Discord webhook URL must be an /api/webhooks/ URL")
	}
	return nil
}
