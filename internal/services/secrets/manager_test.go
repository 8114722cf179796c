package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type fakeSecretsManager struct {
	calls  int
	lastID string
	value  *string
	err    error
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	f.lastID = aws.ToString(in.SecretId)
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretString: f.value}, nil
}

func noEnv(string) string { return "" }

func TestGetWebhookSecret_FromSecretsManager(t *testing.T) {
	fake := &fakeSecretsManager{value: aws.String(`{"webhook_secret":"from-aws"}`)}
	m := newManager(fake)
	m.getenv = noEnv

	got, err := m.GetWebhookSecret(context.Background(), "")
	if err != nil {
		t.Fatalf("get secret: %v", err)
	}
	if got != "from-aws" {
		t.Fatalf("expected from-aws, got %q", got)
	}
	if fake.calls != 1 || fake.lastID != DefaultWebhookSecretName {
		t.Fatalf("expected one fetch of %s, got %d of %q", DefaultWebhookSecretName, fake.calls, fake.lastID)
	}

	if _, err := m.GetWebhookSecret(context.Background(), "custom/name"); err != nil {
		t.Fatalf("get secret: %v", err)
	}
	if fake.lastID != "custom/name" {
		t.Fatalf("expected custom secret id, got %q", fake.lastID)
	}
}

func TestGetWebhookSecret_FetchError(t *testing.T) {
	m := newManager(&fakeSecretsManager{err: errors.New("access denied")})
	m.getenv = noEnv
	if _, err := m.GetWebhookSecret(context.Background(), ""); err == nil {
		t.Fatalf("expected fetch error")
	}
}

func TestGetWebhookSecret_EnvWins(t *testing.T) {
	fake := &fakeSecretsManager{err: errors.New("should not be called")}
	m := newManager(fake)
	m.getenv = func(string) string { return "from-env" }

	got, err := m.GetWebhookSecret(context.Background(), "")
	if err != nil || got != "from-env" {
		t.Fatalf("expected env secret, got %q %v", got, err)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no AWS call")
	}
}

func TestGetWebhookSecret_Errors(t *testing.T) {
	dev := newManager(nil)
	dev.getenv = noEnv
	if _, err := dev.GetWebhookSecret(context.Background(), ""); err == nil {
		t.Fatalf("expected error when env var missing in dev mode")
	}

	m := newManager(&fakeSecretsManager{value: aws.String(`not json`)})
	m.getenv = noEnv
	if _, err := m.GetWebhookSecret(context.Background(), ""); err == nil {
		t.Fatalf("expected parse error")
	}

	m = newManager(&fakeSecretsManager{})
	m.getenv = noEnv
	if _, err := m.GetWebhookSecret(context.Background(), ""); err == nil {
		t.Fatalf("expected error for binary-only secret")
	}
}
