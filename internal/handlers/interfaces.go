package handlers

import (
	"context"
	"io"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/stats"
)

// SessionManager drives the authentication state transitions for users.
type SessionManager interface {
	Register(ctx context.Context, input auth.RegisterInput) (models.User, error)
	Login(ctx context.Context, usernameOrEmail, password string) (models.User, models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// MediaStorage persists uploaded media and returns a public location.
type MediaStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// AssetIngestor schedules background persistence of staged video assets.
type AssetIngestor interface {
	Enqueue(ctx context.Context, job media.Job) error
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Sessions      SessionManager
	TokenVerifier interface {
		VerifyAccessToken(token string) (models.Identity, error)
	}
	Users         repositories.UserRepository
	Videos        repositories.VideoRepository
	Comments      repositories.CommentRepository
	Tweets        repositories.TweetRepository
	Likes         repositories.LikeRepository
	Subscriptions repositories.SubscriptionRepository
	Playlists     repositories.PlaylistRepository
	Stats         stats.Provider
	Storage       MediaStorage
	Ingest        AssetIngestor
}
