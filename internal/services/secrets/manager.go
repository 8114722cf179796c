package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DefaultWebhookSecretName is the Secrets Manager id holding the webhook secret.
const DefaultWebhookSecretName = "eventsub/webhook-secret"

type getSecretValueAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Manager provides centralized secrets management via AWS Secrets Manager.
// In development it reads environment variables instead.
// The secret is read once at startup; rotating it means redeploying or
// letting Lambda start fresh environments.
type Manager struct {
	client getSecretValueAPI
	isDev  bool
	getenv func(string) string
}

// WebhookSecret is the JSON document stored in Secrets Manager.
type WebhookSecret struct {
	WebhookSecret string `json:"webhook_secret"`
}

// NewManager creates a secrets manager. Outside production no AWS config is loaded.
func NewManager(ctx context.Context, isProduction bool) (*Manager, error) {
	if !isProduction {
		log.Println("[SECRETS] Using environment variables (development mode)")
		return newManager(nil), nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Secrets Manager: %w", err)
	}
	log.Println("[SECRETS] Using AWS Secrets Manager (production mode)")
	return newManager(secretsmanager.NewFromConfig(cfg)), nil
}

func newManager(client getSecretValueAPI) *Manager {
	return &Manager{
		client: client,
		isDev:  client == nil,
		getenv: os.Getenv,
	}
}

// GetWebhookSecret returns the EventSub webhook secret.
// Priority: TWITCH_WEBHOOK_SECRET env var, then Secrets Manager (production only).
func (m *Manager) GetWebhookSecret(ctx context.Context, secretName string) (string, error) {
	if secret := m.getenv("TWITCH_WEBHOOK_SECRET"); secret != "" {
		return secret, nil
	}
	if m.isDev {
		return "", fmt.Errorf("TWITCH_WEBHOOK_SECRET environment variable not set")
	}
	if secretName == "" {
		secretName = DefaultWebhookSecretName
	}

	raw, err := m.getSecret(ctx, secretName)
	if err != nil {
		return "", err
	}
	var s WebhookSecret
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return "", fmt.Errorf("failed to parse webhook secret: %w", err)
	}
	return s.WebhookSecret, nil
}

// getSecret fetches a secret string from AWS Secrets Manager.
func (m *Manager) getSecret(ctx context.Context, secretName string) (string, error) {
	result, err := m.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch secret %s: %w", secretName, err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretName)
	}
	return *result.SecretString, nil
}
