package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/repositories"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondError maps domain sentinels onto the uniform error envelope. Every
// credential or token failure collapses to a generic 401 message; anything
// unrecognized is a 500 with the detail kept out of the response.
func respondError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenInvalid):
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
	case errors.Is(err, auth.ErrRefreshMismatch):
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "refresh token invalid or already used"})
	case errors.Is(err, auth.ErrNoToken):
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "no token provided"})
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, repositories.ErrNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, repositories.ErrConflict):
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "resource already exists"})
	default:
		logging.FromContext(ctx).Error("request error", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": fallback})
	}
}

func respondForbidden(ctx context.Context, w http.ResponseWriter) {
	respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "not authorized"})
}

// identityOr401 fetches the identity the verification gate attached to the
// context. A missing identity means the route was wired without the gate.
func identityOr401(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondJSON(r.Context(), w, http.StatusUnauthorized, map[string]string{"error": "no token provided"})
		return "", false
	}
	return identity.UserID, true
}
