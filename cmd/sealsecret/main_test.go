package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/yourusername/eventsub-receiver/internal/services/encryption"
)

func TestRun_DevModeFromStdin(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), "", "", strings.NewReader("0123456789abcdef\n"), &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	sealed := strings.TrimSpace(out.String())
	if !strings.HasPrefix(sealed, "dev:") {
		t.Fatalf("expected dev: prefix, got %q", sealed)
	}

	svc, _ := encryption.NewService(context.Background(), "")
	plain, err := svc.Decrypt(context.Background(), sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "0123456789abcdef" {
		t.Fatalf("round trip = %q", plain)
	}
}

func TestRun_EmptySecret(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), "", "", strings.NewReader(""), &out); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
}
