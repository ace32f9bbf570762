package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

type stubVerifier struct {
	identity models.Identity
	err      error
}

func (s stubVerifier) VerifyAccessToken(string) (models.Identity, error) {
	return s.identity, s.err
}

type stubResolver struct {
	user models.User
	err  error
}

func (s stubResolver) FindByID(context.Context, string) (models.User, error) {
	return s.user, s.err
}

func okHandler(captured *models.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := auth.IdentityFromContext(r.Context()); ok {
			*captured = identity
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthNoToken(t *testing.T) {
	gate := RequireAuth(stubVerifier{}, stubResolver{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	gate(okHandler(&models.Identity{})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestRequireAuthCookie(t *testing.T) {
	user := models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	gate := RequireAuth(stubVerifier{identity: user.Identity()}, stubResolver{user: user})

	var seen models.Identity
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "signed-token"})
	rec := httptest.NewRecorder()

	gate(okHandler(&seen)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if seen.UserID != "user-1" {
		t.Fatalf("expected identity to be attached, got %+v", seen)
	}
}

func TestRequireAuthBearerHeader(t *testing.T) {
	user := models.User{ID: "user-1", Username: "alice"}
	gate := RequireAuth(stubVerifier{identity: user.Identity()}, stubResolver{user: user})

	var seen models.Identity
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer signed-token")
	rec := httptest.NewRecorder()

	gate(okHandler(&seen)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if seen.UserID != "user-1" {
		t.Fatalf("expected identity to be attached, got %+v", seen)
	}
}

func TestRequireAuthRejectsBadToken(t *testing.T) {
	for _, verifyErr := range []error{auth.ErrTokenExpired, auth.ErrTokenInvalid} {
		gate := RequireAuth(stubVerifier{err: verifyErr}, stubResolver{})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		gate(okHandler(&models.Identity{})).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %v got %d", verifyErr, rec.Code)
		}
	}
}

func TestRequireAuthDeletedUser(t *testing.T) {
	gate := RequireAuth(stubVerifier{identity: models.Identity{UserID: "ghost"}}, stubResolver{err: auth.ErrUserNotFound})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer signed-token")
	rec := httptest.NewRecorder()

	gate(okHandler(&models.Identity{})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user got %d", rec.Code)
	}
}

func TestRequireAuthStorageFailure(t *testing.T) {
	gate := RequireAuth(stubVerifier{identity: models.Identity{UserID: "user-1"}}, stubResolver{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer signed-token")
	rec := httptest.NewRecorder()

	gate(okHandler(&models.Identity{})).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("storage failures must be 500, got %d", rec.Code)
	}
}
