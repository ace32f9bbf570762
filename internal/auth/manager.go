package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
)

// UserStore is the slice of user persistence the session lifecycle needs.
// FindByID and FindByLogin return ErrUserNotFound when no account matches.
// RotateRefreshToken must perform an atomic compare-and-swap on the session
// slot and return ErrRefreshMismatch when the current value differs.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (models.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, current, next string) error
}

// Manager orchestrates the authentication state transitions: registration,
// login, refresh-with-rotation, logout, and password change.
type Manager struct {
	users  UserStore
	issuer *TokenIssuer
	hasher *PasswordHasher

	// NowFunc overrides the clock in tests.
	NowFunc func() time.Time
}

// NewManager wires the session lifecycle over its three collaborators.
func NewManager(users UserStore, issuer *TokenIssuer, hasher *PasswordHasher) *Manager {
	if users == nil || issuer == nil || hasher == nil {
		panic("auth: manager dependencies must not be nil")
	}
	return &Manager{users: users, issuer: issuer, hasher: hasher}
}

// RegisterInput carries the fields required to create an account. Avatar is
// required; CoverImage may be empty.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     string
	CoverImage string
}

// Register creates a new account. The plaintext password is hashed before
// the record is written and never stored or logged.
func (m *Manager) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FullName = strings.TrimSpace(input.FullName)

	switch {
	case input.Username == "":
		return models.User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	case input.Email == "":
		return models.User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	case input.FullName == "":
		return models.User{}, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	case input.Password == "":
		return models.User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	case input.Avatar == "":
		return models.User{}, fmt.Errorf("%w: avatar is required", ErrInvalidInput)
	}

	if _, err := mail.ParseAddress(input.Email); err != nil {
		return models.User{}, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}

	hashed, err := m.hasher.Hash(ctx, input.Password)
	if err != nil {
		return models.User{}, err
	}

	now := m.now()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   input.Username,
		Email:      input.Email,
		FullName:   input.FullName,
		Avatar:     input.Avatar,
		CoverImage: input.CoverImage,
		Password:   hashed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := m.users.Create(ctx, user); err != nil {
		return models.User{}, err
	}

	user.Password = ""
	return user, nil
}

// Login verifies credentials, issues a fresh token pair, and overwrites the
// session slot. A login from a second device invalidates the first device's
// refresh token by design.
func (m *Manager) Login(ctx context.Context, usernameOrEmail, password string) (models.User, models.SessionTokens, error) {
	usernameOrEmail = strings.ToLower(strings.TrimSpace(usernameOrEmail))
	if usernameOrEmail == "" || password == "" {
		return models.User{}, models.SessionTokens{}, fmt.Errorf("%w: username or email and password are required", ErrInvalidInput)
	}

	user, err := m.users.FindByLogin(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, models.SessionTokens{}, ErrInvalidCredentials
		}
		return models.User{}, models.SessionTokens{}, err
	}

	if err := m.hasher.Compare(ctx, user.Password, password); err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	tokens, err := m.issuePair(user.Identity())
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	user.Password = ""
	user.RefreshToken = ""
	return user, tokens, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// both verify cryptographically and match the slot stored for its user; the
// swap is a single conditional update so two racing refreshes of the same
// token cannot both succeed. The superseded token is unusable afterwards
// even though its own expiry has not elapsed.
func (m *Manager) Refresh(ctx context.Context, presented string) (models.SessionTokens, error) {
	if strings.TrimSpace(presented) == "" {
		return models.SessionTokens{}, ErrNoToken
	}

	userID, err := m.issuer.VerifyRefreshToken(presented)
	if err != nil {
		return models.SessionTokens{}, err
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.SessionTokens{}, ErrRefreshMismatch
		}
		return models.SessionTokens{}, err
	}

	tokens, err := m.issuePair(user.Identity())
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.users.RotateRefreshToken(ctx, user.ID, presented, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Logout clears the session slot. Previously issued refresh tokens are
// permanently rejected; the outstanding access token expires on its own
// short clock.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id must be provided", ErrInvalidInput)
	}
	return m.users.SetRefreshToken(ctx, userID, "")
}

// ChangePassword re-verifies the current password before storing a new hash.
// The refresh slot is left untouched: an issued refresh token stays valid
// across a password change until it is rotated or the user logs out.
func (m *Manager) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if userID == "" || currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: current and new passwords are required", ErrInvalidInput)
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := m.hasher.Compare(ctx, user.Password, currentPassword); err != nil {
		return err
	}

	hashed, err := m.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}

	return m.users.UpdatePassword(ctx, userID, hashed)
}

func (m *Manager) issuePair(identity models.Identity) (models.SessionTokens, error) {
	accessToken, accessExpires, err := m.issuer.IssueAccessToken(identity)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, refreshExpires, err := m.issuer.IssueRefreshToken(identity.UserID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

func (m *Manager) now() time.Time {
	if m.NowFunc != nil {
		return m.NowFunc().UTC()
	}
	return time.Now().UTC()
}
