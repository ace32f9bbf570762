package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// AccessTokenCookie is the cookie carrying the access token for browser clients.
const AccessTokenCookie = "accessToken"

// TokenVerifier validates an access token and returns its identity snapshot.
type TokenVerifier interface {
	VerifyAccessToken(token string) (models.Identity, error)
}

// IdentityResolver confirms the token's subject still exists.
type IdentityResolver interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// RequireAuth gates protected routes. It locates a bearer token (cookie
// first, Authorization header as fallback), verifies it, resolves the user,
// and attaches the identity to the request context. It performs no writes:
// the one identity lookup is its only side effect, so it is safe to run
// concurrently for unrelated requests.
func RequireAuth(verifier TokenVerifier, users IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "no token provided")
				return
			}

			identity, err := verifier.VerifyAccessToken(token)
			if err != nil {
				// Expired and tampered tokens are distinguished here for
				// logging but never in the response.
				logger.Warn("access token rejected", "error", err)
				unauthorized(w, "invalid or expired token")
				return
			}

			user, err := users.FindByID(ctx, identity.UserID)
			if err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					logger.Warn("token references missing user", "userId", identity.UserID)
					unauthorized(w, "user no longer exists")
					return
				}
				logger.Error("identity lookup failed", "userId", identity.UserID, "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(ctx, user.Identity())))
		})
	}
}

func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
