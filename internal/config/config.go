package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/yourusername/eventsub-receiver/internal/services/encryption"
	"github.com/yourusername/eventsub-receiver/internal/services/secrets"
	"github.com/yourusername/eventsub-receiver/internal/validation"
)

var ErrMissingWebhookSecret = errors.New("webhook secret is not configured")

// Config holds all application configuration.
// In production, the webhook secret is loaded from AWS Secrets Manager.
// In development, everything comes from environment variables.
type Config struct {
	// Secret shared with Twitch when the subscription was registered
	WebhookSecret     string
	WebhookSecretName string

	// Database
	DatabaseURL string

	// Discord relay (optional)
	DiscordWebhookURL string

	// Webhook processing
	ForwardTimeout time.Duration
	MaxMessageAge  time.Duration
	MaxBodyBytes   int64
	RateLimit      int
	RateBurst      int

	// App (non-secret)
	Environment      string
	LogLevel         string
	Port             string
	MetricsNamespace string

	// AWS
	KMSKeyID string
}

// Load reads all configuration from the appropriate source.
// Production: secret from AWS Secrets Manager unless TWITCH_WEBHOOK_SECRET is set.
// Development: everything from environment variables (loaded from .env).
// A secret of the form kms:<base64> or dev:<base64> is decrypted before use.
func Load(ctx context.Context) (*Config, error) {
	cfg, err := fromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}

	mgr, err := secrets.NewManager(ctx, cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets manager: %w", err)
	}
	secret, err := mgr.GetWebhookSecret(ctx, cfg.WebhookSecretName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingWebhookSecret, err)
	}

	if encryption.IsEncrypted(secret) {
		svc, err := encryption.NewService(ctx, cfg.KMSKeyID)
		if err != nil {
			return nil, fmt.Errorf("failed to create encryption service: %w", err)
		}
		if secret, err = svc.Decrypt(ctx, secret); err != nil {
			return nil, fmt.Errorf("failed to decrypt webhook secret: %w", err)
		}
		log.Println("[CONFIG] Decrypted webhook secret")
	}
	cfg.WebhookSecret = secret

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Printf("[CONFIG] Loaded configuration (environment=%s)", cfg.Environment)
	return cfg, nil
}

// fromEnv reads the non-secret settings.
func fromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		WebhookSecretName: getenv("WEBHOOK_SECRET_NAME"),
		DatabaseURL:       getenv("DATABASE_URL"),
		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL"),
		Environment:       getenv("ENVIRONMENT"),
		LogLevel:          getenv("LOG_LEVEL"),
		Port:              getenv("PORT"),
		MetricsNamespace:  getenv("METRICS_NAMESPACE"),
		KMSKeyID:          getenv("KMS_KEY_ID"),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	var err error
	if cfg.ForwardTimeout, err = durationVar(getenv, "FORWARD_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxMessageAge, err = durationVar(getenv, "MAX_MESSAGE_AGE", 0); err != nil {
		return nil, err
	}
	maxBody, err := intVar(getenv, "MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxBodyBytes = int64(maxBody)
	if cfg.RateLimit, err = intVar(getenv, "WEBHOOK_RATE_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = intVar(getenv, "WEBHOOK_RATE_BURST", 200); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	v := validation.NewValidator()
	warning, err := v.ValidateWebhookSecret(c.WebhookSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingWebhookSecret, err)
	}
	if warning != "" {
		log.Printf("[CONFIG_WARN] %s", warning)
	}
	if err := v.ValidateDatabaseURL(c.DatabaseURL); err != nil {
		return err
	}
	if err := v.ValidateDiscordWebhookURL(c.DiscordWebhookURL); err != nil {
		return err
	}
	if c.ForwardTimeout <= 0 {
		return fmt.Errorf("FORWARD_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction returns true if running in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func durationVar(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
