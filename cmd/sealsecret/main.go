// Command sealsecret encrypts a webhook secret for use as TWITCH_WEBHOOK_SECRET
// or as the webhook_secret field of the Secrets Manager entry.
//
//	sealsecret -key alias/eventsub -secret "$SECRET"
//	echo -n "$SECRET" | sealsecret -key alias/eventsub
//
// Without -key the output is a dev: value that is only base64 encoded.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/yourusername/eventsub-receiver/internal/services/encryption"
	"github.com/yourusername/eventsub-receiver/internal/validation"
)

func main() {
	keyID := flag.String("key", os.Getenv("KMS_KEY_ID"), "KMS key ID or alias (empty for dev mode)")
	secret := flag.String("secret", "", "secret to seal (read from stdin when empty)")
	flag.Parse()

	if err := run(context.Background(), *keyID, *secret, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("[SEAL_ERROR] %v", err)
	}
}

func run(ctx context.Context, keyID, secret string, in io.Reader, out io.Writer) error {
	if secret == "" {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read secret: %w", err)
		}
		secret = strings.TrimRight(line, "\r\n")
	}

	warning, err := validation.NewValidator().ValidateWebhookSecret(secret)
	if err != nil {
		return err
	}
	if warning != "" {
		log.Printf("[SEAL_WARN] %s", warning)
	}

	svc, err := encryption.NewService(ctx, keyID)
	if err != nil {
		return err
	}
	sealed, err := svc.Encrypt(ctx, secret)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, sealed)
	return err
}
