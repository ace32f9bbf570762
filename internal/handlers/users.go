package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

const (
	// RefreshTokenCookie is the cookie carrying the refresh token.
	RefreshTokenCookie = "refreshToken"

	maxImageUpload = 8 << 20 // 8 MiB
)

// UserHandler implements registration, the session lifecycle endpoints, and
// profile management.
type UserHandler struct {
	Sessions SessionManager
	Users    repositories.UserRepository
	Storage  MediaStorage
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type userResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage,omitempty"`
}

type sessionResponse struct {
	User   userResponse         `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FullName:   user.FullName,
		Avatar:     user.Avatar,
		CoverImage: user.CoverImage,
	}
}

// Register handles POST /api/v1/users/register. The avatar image is required
// and uploaded to the object store before the account is created.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "multipart form required"})
		return
	}

	input := auth.RegisterInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		FullName: r.FormValue("fullName"),
		Password: r.FormValue("password"),
	}

	if len(input.Password) < 8 {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	avatarURL, err := h.uploadImage(r, "avatar", "avatars")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "avatar image is required"})
			return
		}
		logger.Error("avatar upload failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to store avatar"})
		return
	}
	input.Avatar = avatarURL

	coverURL, err := h.uploadImage(r, "coverImage", "covers")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		logger.Error("cover image upload failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to store cover image"})
		return
	}
	input.CoverImage = coverURL

	user, err := h.Sessions.Register(ctx, input)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "username or email already exists"})
			return
		}
		respondError(ctx, w, err, "failed to create account")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"user": toUserResponse(user)})
}

// Login handles POST /api/v1/users/login. Tokens travel both as secure
// http-only cookies and in the body for non-browser clients.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	user, tokens, err := h.Sessions.Login(ctx, identifier, req.Password)
	if err != nil {
		respondError(ctx, w, err, "failed to create session")
		return
	}

	setAuthCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, sessionResponse{User: toUserResponse(user), Tokens: tokens})
}

// Refresh handles POST /api/v1/users/refresh-token. The refresh token is
// accepted from the cookie or the request body.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := ""
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}
	if token == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "no token provided"})
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		respondError(ctx, w, err, "unable to refresh session")
		return
	}

	setAuthCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, map[string]any{"tokens": tokens})
}

// Logout handles POST /api/v1/users/logout. It clears the session slot so
// every outstanding refresh token is permanently rejected.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	if err := h.Sessions.Logout(ctx, userID); err != nil {
		respondError(ctx, w, err, "failed to end session")
		return
	}

	clearAuthCookies(w)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "logged out"})
}

// ChangePassword handles POST /api/v1/users/change-password. The current
// password is re-verified before the new hash is stored.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.NewPassword) < 8 {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	if err := h.Sessions.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(ctx, w, err, "failed to change password")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "password changed"})
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "no token provided"})
		return
	}

	user, err := h.Users.FindByID(ctx, identity.UserID)
	if err != nil {
		respondError(ctx, w, err, "failed to load account")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FullName == "" || req.Email == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "full name and email are required"})
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
		return
	}

	user, err := h.Users.UpdateAccount(ctx, userID, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "email already in use"})
			return
		}
		respondError(ctx, w, err, "failed to update account")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", "avatars", h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", "covers", h.Users.UpdateCoverImage)
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewerID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "username is required"})
		return
	}

	profile, err := h.Users.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		respondError(ctx, w, err, "failed to load channel")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"channel": profile})
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	history, err := h.Users.WatchHistory(ctx, userID)
	if err != nil {
		respondError(ctx, w, err, "failed to load watch history")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": toVideoResponses(history)})
}

func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field, prefix string, persist func(ctx context.Context, userID, url string) error) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "multipart form required"})
		return
	}

	url, err := h.uploadImage(r, field, prefix)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": field + " image is required"})
			return
		}
		logger.Error("image upload failed", "field", field, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to store image"})
		return
	}

	if err := persist(ctx, userID, url); err != nil {
		respondError(ctx, w, err, "failed to update image")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"url": url})
}

func (h UserHandler) uploadImage(r *http.Request, field, prefix string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", err
	}
	defer file.Close()

	key := prefix + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	return h.Storage.Save(r.Context(), key, file)
}

func setAuthCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
