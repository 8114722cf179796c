package validation

import (
	"strings"
	"testing"
)

func TestValidateWebhookSecret(t *testing.T) {
	v := NewValidator()
	if _, err := v.ValidateWebhookSecret(""); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
	if warn, err := v.ValidateWebhookSecret("short"); err != nil || warn == "" {
		t.Fatalf("expected warning for short secret, got %q %v", warn, err)
	}
	if warn, err := v.ValidateWebhookSecret(strings.Repeat("a", 32)); err != nil || warn != "" {
		t.Fatalf("expected clean pass, got %q %v", warn, err)
	}
	if warn, _ := v.ValidateWebhookSecret("sécret-with-accent"); !strings.Contains(warn, "non-ASCII") {
		t.Fatalf("expected non-ASCII warning, got %q", warn)
	}
}

func TestValidateDatabaseURL(t *testing.T) {
	v := NewValidator()
	for _, ok := range []string{"", "postgres://u:p@localhost:5432/db", "postgresql://localhost/db?sslmode=disable"} {
		if err := v.ValidateDatabaseURL(ok); err != nil {
			t.Fatalf("expected %q to pass: %v", ok, err)
		}
	}
	for _, bad := range []string{"mysql://localhost/db", "://nope"} {
		if err := v.ValidateDatabaseURL(bad); err == nil {
			t.Fatalf("expected %q to fail", bad)
		}
	}
}

func TestValidateDiscordWebhookURL(t *testing.T) {
	v := NewValidator()
	for _, ok := range []string{"", "https://discord.com/api/webhooks/1/abc", "https://canary.discord.com/api/webhooks/1/abc"} {
		if err := v.ValidateDiscordWebhookURL(ok); err != nil {
			t.Fatalf("expected %q to pass: %v", ok, err)
		}
	}
	for _, bad := range []string{"http://discord.com/api/webhooks/1/abc", "https://evil.example/api/webhooks/1", "https://discord.com/channels/1"} {
		if err := v.ValidateDiscordWebhookURL(bad); err == nil {
			t.Fatalf("expected %q to fail", bad)
		}
	}
}
