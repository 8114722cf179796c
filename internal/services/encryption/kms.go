package encryption

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

const (
	kmsPrefix = "kms:"
	devPrefix = "dev:"
)

type kmsAPI interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Service seals configuration secrets with AWS KMS.
// In development mode (no KMS key ID), it falls back to base64 encoding
// which is NOT secure but allows local testing without AWS infrastructure.
type Service struct {
	client kmsAPI
	keyID  string
	isDev  bool
}

// NewService creates an encryption service. An empty key ID enables dev mode.
func NewService(ctx context.Context, kmsKeyID string) (*Service, error) {
	if kmsKeyID == "" {
		return &Service{isDev: true}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Service{
		client: kms.NewFromConfig(cfg),
		keyID:  kmsKeyID,
	}, nil
}

// Encrypt encrypts plaintext and returns a prefixed base64 ciphertext.
func (s *Service) Encrypt(ctx context.Context, plaintext string) (string, error) {
	if s.isDev {
		return devPrefix + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
	}

	result, err := s.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     &s.keyID,
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", fmt.Errorf("KMS encryption failed: %w", err)
	}
	return kmsPrefix + base64.StdEncoding.EncodeToString(result.CiphertextBlob), nil
}

// Decrypt reverses Encrypt. Values without a known prefix are returned unchanged.
func (s *Service) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	switch {
	case strings.HasPrefix(ciphertext, devPrefix):
		decoded, err := base64.StdEncoding.DecodeString(ciphertext[len(devPrefix):])
		if err != nil {
			return "", fmt.Errorf("failed to decode dev ciphertext: %w", err)
		}
		return string(decoded), nil
	case strings.HasPrefix(ciphertext, kmsPrefix):
		if s.isDev {
			return "", fmt.Errorf("KMS ciphertext requires KMS_KEY_ID to be configured")
		}
		blob, err := base64.StdEncoding.DecodeString(ciphertext[len(kmsPrefix):])
		if err != nil {
			return "", fmt.Errorf("failed to decode KMS ciphertext: %w", err)
		}
		result, err := s.client.Decrypt(ctx, &kms.DecryptInput{
			CiphertextBlob: blob,
			KeyId:          &s.keyID,
		})
		if err != nil {
			return "", fmt.Errorf("KMS decryption failed: %w", err)
		}
		return string(result.Plaintext), nil
	default:
		return ciphertext, nil
	}
}

// IsEncrypted checks if a value carries an encryption prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, kmsPrefix) || strings.HasPrefix(value, devPrefix)
}
