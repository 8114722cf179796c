package config

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func TestLoad_Development(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("TWITCH_WEBHOOK_SECRET", "0123456789abcdef")
	t.Setenv("FORWARD_TIMEOUT", "3s")
	t.Setenv("MAX_MESSAGE_AGE", "10m")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WebhookSecret != "0123456789abcdef" {
		t.Fatalf("unexpected secret")
	}
	if cfg.ForwardTimeout != 3*time.Second || cfg.MaxMessageAge != 10*time.Minute {
		t.Fatalf("unexpected durations %v %v", cfg.ForwardTimeout, cfg.MaxMessageAge)
	}
	if cfg.Port != "8080" || cfg.MaxBodyBytes != 1<<20 || cfg.RateLimit != 100 || cfg.RateBurst != 200 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.IsProduction() {
		t.Fatalf("development config reported as production")
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("TWITCH_WEBHOOK_SECRET", "")

	if _, err := Load(context.Background()); !errors.Is(err, ErrMissingWebhookSecret) {
		t.Fatalf("expected ErrMissingWebhookSecret, got %v", err)
	}
}

func TestLoad_DecryptsSealedSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("KMS_KEY_ID", "")
	t.Setenv("TWITCH_WEBHOOK_SECRET", "dev:"+base64.StdEncoding.EncodeToString([]byte("sealed-secret-value")))

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WebhookSecret != "sealed-secret-value" {
		t.Fatalf("expected decrypted secret, got %q", cfg.WebhookSecret)
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"FORWARD_TIMEOUT":    "soon",
		"MAX_MESSAGE_AGE":    "10",
		"MAX_BODY_BYTES":     "1MB",
		"WEBHOOK_RATE_LIMIT": "fast",
	}
	for key, value := range cases {
		getenv := func(k string) string {
			if k == key {
				return value
			}
			return ""
		}
		if _, err := fromEnv(getenv); err == nil {
			t.Fatalf("expected error for %s=%s", key, value)
		}
	}
}

func TestValidate(t *testing.T) {
	base := Config{WebhookSecret: "0123456789abcdef", ForwardTimeout: time.Second}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}

	bad := base
	bad.DatabaseURL = "mysql://localhost/db"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected database URL error")
	}

	bad = base
	bad.DiscordWebhookURL = "https://example.com/hook"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected discord URL error")
	}

	bad = base
	bad.ForwardTimeout = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected forward timeout error")
	}

	bad = base
	bad.WebhookSecret = ""
	if err := bad.Validate(); !errors.Is(err, ErrMissingWebhookSecret) {
		t.Fatalf("expected ErrMissingWebhookSecret, got %v", err)
	}
}
