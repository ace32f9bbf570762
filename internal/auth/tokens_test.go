package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/models"
)

func testIssuer(accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return NewTokenIssuer(config.TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     accessTTL,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    refreshTTL,
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := testIssuer(time.Minute, time.Hour)

	identity := models.Identity{UserID: "user-1", Username: "alice", Email: "alice@example.com", FullName: "Alice Example"}
	token, expiresAt, err := issuer.IssueAccessToken(identity)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if expiresAt.Before(time.Now()) {
		t.Fatalf("expiry should be in the future, got %v", expiresAt)
	}

	got, err := issuer.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if got != identity {
		t.Fatalf("expected identity %+v got %+v", identity, got)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	issuer := testIssuer(time.Minute, time.Hour)

	token, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	userID, err := issuer.VerifyRefreshToken(token)
	if err != nil {
		t.Fatalf("verify refresh token: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1 got %s", userID)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	issuer := testIssuer(time.Minute, time.Hour)

	issued := time.Now()
	issuer.NowFunc = func() time.Time { return issued }

	token, _, err := issuer.IssueAccessToken(models.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	issuer.NowFunc = func() time.Time { return issued.Add(2 * time.Minute) }

	if _, err := issuer.VerifyAccessToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired got %v", err)
	}
}

func TestTokenSecretSeparation(t *testing.T) {
	issuer := testIssuer(time.Minute, time.Hour)

	access, _, err := issuer.IssueAccessToken(models.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	refresh, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	if _, err := issuer.VerifyRefreshToken(access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access token must not verify as refresh token, got %v", err)
	}
	if _, err := issuer.VerifyAccessToken(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token must not verify as access token, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	issuer := testIssuer(time.Minute, time.Hour)

	token, _, err := issuer.IssueAccessToken(models.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected a three-part token, got %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := issuer.VerifyAccessToken(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid got %v", err)
	}

	if _, err := issuer.VerifyAccessToken("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage input got %v", err)
	}
}
