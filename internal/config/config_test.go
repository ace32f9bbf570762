package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when token secrets are missing")
	}

	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "access-secret")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when refresh secret is missing")
	}
}

func TestLoadRejectsSharedSecret(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "same-secret")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", "same-secret")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when both secrets are identical")
	}
	if !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", "refresh-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.AppPort)
	}
	if cfg.Tokens.AccessTTL != 15*time.Minute {
		t.Fatalf("expected default access TTL 15m, got %s", cfg.Tokens.AccessTTL)
	}
	if cfg.Tokens.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("expected default refresh TTL 168h, got %s", cfg.Tokens.RefreshTTL)
	}
	if cfg.PasswordCost != 10 {
		t.Fatalf("expected default password cost 10, got %d", cfg.PasswordCost)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Setenv("VIDTUBE_ACCESS_TOKEN_TTL", "30m")
	t.Setenv("VIDTUBE_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Tokens.AccessTTL != 30*time.Minute {
		t.Fatalf("expected access TTL 30m, got %s", cfg.Tokens.AccessTTL)
	}
	if cfg.AppPort != 9999 {
		t.Fatalf("expected port 9999, got %d", cfg.AppPort)
	}
}
