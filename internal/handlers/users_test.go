package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type stubStorage struct {
	saved []string
}

func (s *stubStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.saved = append(s.saved, name)
	return "https://cdn.example.com/" + name, nil
}

func newSessionTestKit(t *testing.T) (UserHandler, *auth.Manager, *repositories.InMemoryUserStore) {
	t.Helper()

	store := repositories.NewInMemoryUserStore()
	issuer := auth.NewTokenIssuer(config.TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    time.Hour,
	})
	manager := auth.NewManager(store, issuer, auth.NewPasswordHasher(bcrypt.MinCost, 4))

	handler := UserHandler{Sessions: manager, Users: store, Storage: &stubStorage{}}
	return handler, manager, store
}

func registerRequest(t *testing.T, withAvatar bool) *http.Request {
	return registerRequestAs(t, "alice", "alice@example.com", withAvatar)
}

func registerRequestAs(t *testing.T, username, email string, withAvatar bool) *http.Request {
	t.Helper()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"username": username,
		"email":    email,
		"fullName": "Alice Example",
		"password": "supersafe",
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if withAvatar {
		part, err := form.CreateFormFile("avatar", "alice.png")
		if err != nil {
			t.Fatalf("create avatar part: %v", err)
		}
		if _, err := part.Write([]byte("not-really-a-png")); err != nil {
			t.Fatalf("write avatar: %v", err)
		}
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return req
}

func loginAlice(t *testing.T, handler UserHandler) (*httptest.ResponseRecorder, sessionResponse) {
	t.Helper()

	body, err := json.Marshal(loginRequest{Username: "alice", Password: "supersafe"})
	if err != nil {
		t.Fatalf("marshal login: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return rec, resp
}

func cookieValue(t *testing.T, rec *httptest.ResponseRecorder, name string) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	t.Fatalf("cookie %s not set", name)
	return ""
}

func TestUserHandlerRegister(t *testing.T) {
	handler, _, store := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		User userResponse `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.Avatar == "" {
		t.Fatal("expected avatar url in response")
	}

	stored, err := store.FindByLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe")) != nil {
		t.Fatal("stored password is not hashed")
	}
}

func TestUserHandlerRegisterRequiresAvatar(t *testing.T) {
	handler, _, _ := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, false))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUserHandlerRegisterDuplicate(t *testing.T) {
	handler, _, _ := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409 got %d", rec.Code)
	}
}

func TestUserHandlerRegisterDuplicateMixedCase(t *testing.T) {
	handler, _, _ := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Register(rec, registerRequestAs(t, "Alice", "ALICE@example.com", true))
	if rec.Code != http.StatusConflict {
		t.Fatalf("mixed-case duplicate: expected 409 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestUserHandlerLoginSetsCookies(t *testing.T) {
	handler, _, _ := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d", rec.Code)
	}

	loginRec, resp := loginAlice(t, handler)

	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens in body, got %+v", resp.Tokens)
	}
	if cookieValue(t, loginRec, "accessToken") != resp.Tokens.AccessToken {
		t.Fatal("access token cookie must match body")
	}
	if cookieValue(t, loginRec, RefreshTokenCookie) != resp.Tokens.RefreshToken {
		t.Fatal("refresh token cookie must match body")
	}
}

func TestUserHandlerLoginBadCredentials(t *testing.T) {
	handler, _, _ := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))

	body, _ := json.Marshal(loginRequest{Username: "alice", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	loginRec := httptest.NewRecorder()
	handler.Login(loginRec, req)

	if loginRec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", loginRec.Code)
	}
}

func TestUserHandlerRefreshRotates(t *testing.T) {
	handler, _, _ := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))
	_, session := loginAlice(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: session.Tokens.RefreshToken})
	refreshRec := httptest.NewRecorder()
	handler.Refresh(refreshRec, req)

	if refreshRec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200 got %d (%s)", refreshRec.Code, refreshRec.Body.String())
	}

	var resp struct {
		Tokens models.SessionTokens `json:"tokens"`
	}
	if err := json.NewDecoder(refreshRec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if resp.Tokens.RefreshToken == session.Tokens.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}

	// The superseded token is rejected on a second presentation.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: session.Tokens.RefreshToken})
	reuseRec := httptest.NewRecorder()
	handler.Refresh(reuseRec, req)

	if reuseRec.Code != http.StatusUnauthorized {
		t.Fatalf("reused token: expected 401 got %d", reuseRec.Code)
	}
}

func TestUserHandlerRefreshFromBody(t *testing.T) {
	handler, _, _ := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))
	_, session := loginAlice(t, handler)

	body, _ := json.Marshal(refreshRequest{RefreshToken: session.Tokens.RefreshToken})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(body))
	refreshRec := httptest.NewRecorder()
	handler.Refresh(refreshRec, req)

	if refreshRec.Code != http.StatusOK {
		t.Fatalf("refresh from body: expected 200 got %d", refreshRec.Code)
	}
}

func TestUserHandlerRefreshWithoutToken(t *testing.T) {
	handler, _, _ := newSessionTestKit(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestUserHandlerLogout(t *testing.T) {
	handler, _, store := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))
	_, session := loginAlice(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), models.Identity{UserID: session.User.ID}))
	logoutRec := httptest.NewRecorder()
	handler.Logout(logoutRec, req)

	if logoutRec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200 got %d", logoutRec.Code)
	}
	if store.RefreshTokenOf(session.User.ID) != "" {
		t.Fatal("logout must clear the session slot")
	}

	for _, cookie := range logoutRec.Result().Cookies() {
		if cookie.Value != "" || cookie.MaxAge >= 0 {
			t.Fatalf("expected cookie %s to be cleared", cookie.Name)
		}
	}

	// Refresh after logout must fail.
	refreshReq := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	refreshReq.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: session.Tokens.RefreshToken})
	refreshRec := httptest.NewRecorder()
	handler.Refresh(refreshRec, refreshReq)

	if refreshRec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401 got %d", refreshRec.Code)
	}
}

func TestUserHandlerUpdateAvatar(t *testing.T) {
	handler, _, store := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))
	_, session := loginAlice(t, handler)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("avatar", "new-face.png")
	if err != nil {
		t.Fatalf("create avatar part: %v", err)
	}
	if _, err := part.Write([]byte("fresh-pixels")); err != nil {
		t.Fatalf("write avatar: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/avatar", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req = req.WithContext(auth.WithIdentity(req.Context(), models.Identity{UserID: session.User.ID}))
	avatarRec := httptest.NewRecorder()
	handler.UpdateAvatar(avatarRec, req)

	if avatarRec.Code != http.StatusOK {
		t.Fatalf("update avatar: expected 200 got %d (%s)", avatarRec.Code, avatarRec.Body.String())
	}

	stored, err := store.FindByID(context.Background(), session.User.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.Avatar == session.User.Avatar || stored.Avatar == "" {
		t.Fatalf("expected a replaced avatar url, got %q", stored.Avatar)
	}
}

func TestUserHandlerWatchHistory(t *testing.T) {
	handler, _, store := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))
	_, session := loginAlice(t, handler)

	for _, videoID := range []string{"video-1", "video-2", "video-1"} {
		if err := store.AddWatchHistory(context.Background(), session.User.ID, videoID); err != nil {
			t.Fatalf("add watch history: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), models.Identity{UserID: session.User.ID}))
	historyRec := httptest.NewRecorder()
	handler.WatchHistory(historyRec, req)

	if historyRec.Code != http.StatusOK {
		t.Fatalf("watch history: expected 200 got %d (%s)", historyRec.Code, historyRec.Body.String())
	}

	var resp struct {
		Videos []videoResponse `json:"videos"`
	}
	if err := json.NewDecoder(historyRec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Videos) != 2 {
		t.Fatalf("expected deduplicated history of 2 videos, got %d", len(resp.Videos))
	}
	if resp.Videos[0].ID != "video-1" {
		t.Fatalf("expected most recent view first, got %q", resp.Videos[0].ID)
	}
}

func TestUserHandlerChangePassword(t *testing.T) {
	handler, _, _ := newSessionTestKit(t)

	rec := httptest.NewRecorder()
	handler.Register(rec, registerRequest(t, true))
	_, session := loginAlice(t, handler)

	body, _ := json.Marshal(changePasswordRequest{CurrentPassword: "supersafe", NewPassword: "evensafer"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), models.Identity{UserID: session.User.ID}))
	changeRec := httptest.NewRecorder()
	handler.ChangePassword(changeRec, req)

	if changeRec.Code != http.StatusOK {
		t.Fatalf("change password: expected 200 got %d (%s)", changeRec.Code, changeRec.Body.String())
	}

	// Wrong current password is a 401.
	body, _ = json.Marshal(changePasswordRequest{CurrentPassword: "supersafe", NewPassword: "another00"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), models.Identity{UserID: session.User.ID}))
	failRec := httptest.NewRecorder()
	handler.ChangePassword(failRec, req)

	if failRec.Code != http.StatusUnauthorized {
		t.Fatalf("stale current password: expected 401 got %d", failRec.Code)
	}
}
