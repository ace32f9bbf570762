package auth

import "errors"

var (
	// ErrInvalidInput indicates a malformed or incomplete request payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials covers unknown accounts and password mismatches
	// alike so responses never reveal which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid indicates a token with a bad signature or malformed payload.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates a token whose expiry has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrRefreshMismatch indicates a refresh token that no longer matches the
	// user's session slot: rotated away, cleared by logout, or never issued.
	ErrRefreshMismatch = errors.New("refresh token invalid or already used")
	// ErrNoToken indicates a protected request arrived without any bearer token.
	ErrNoToken = errors.New("no token provided")
	// ErrUserNotFound indicates the referenced account does not exist, possibly
	// deleted after a token was issued for it.
	ErrUserNotFound = errors.New("user not found")
)
