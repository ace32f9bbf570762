package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/models"
)

// accessClaims binds a snapshot of the user's identity to a short-lived token.
type accessClaims struct {
	models.Identity
	jwt.RegisteredClaims
}

// refreshClaims carry only the user id; everything else is resolved from
// storage when the token is presented.
type refreshClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies the access/refresh token pair. Access and
// refresh tokens are signed with separate secrets. Verification is purely
// cryptographic: the storage cross-check for refresh tokens belongs to the
// session Manager.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	// NowFunc overrides the clock in tests.
	NowFunc func() time.Time
}

// NewTokenIssuer constructs an issuer from validated token configuration.
func NewTokenIssuer(cfg config.TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

// IssueAccessToken signs a short-lived token embedding the identity snapshot.
func (t *TokenIssuer) IssueAccessToken(identity models.Identity) (string, time.Time, error) {
	if identity.UserID == "" {
		return "", time.Time{}, errors.New("issue access token: user id must be provided")
	}

	now := t.now()
	expiresAt := now.Add(t.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(t.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken signs a long-lived token carrying only the user id.
func (t *TokenIssuer) IssueRefreshToken(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("issue refresh token: user id must be provided")
	}

	now := t.now()
	expiresAt := now.Add(t.refreshTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(t.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken validates signature and expiry and returns the embedded
// identity snapshot. No storage lookup is performed.
func (t *TokenIssuer) VerifyAccessToken(tokenString string) (models.Identity, error) {
	claims := &accessClaims{}
	if err := t.parse(tokenString, claims, t.accessSecret); err != nil {
		return models.Identity{}, err
	}
	if claims.UserID == "" {
		return models.Identity{}, ErrTokenInvalid
	}
	return claims.Identity, nil
}

// VerifyRefreshToken validates signature and expiry and returns the user id.
func (t *TokenIssuer) VerifyRefreshToken(tokenString string) (string, error) {
	claims := &refreshClaims{}
	if err := t.parse(tokenString, claims, t.refreshSecret); err != nil {
		return "", err
	}
	if claims.UserID == "" {
		return "", ErrTokenInvalid
	}
	return claims.UserID, nil
}

func (t *TokenIssuer) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !parsed.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func (t *TokenIssuer) now() time.Time {
	if t.NowFunc != nil {
		return t.NowFunc().UTC()
	}
	return time.Now().UTC()
}
