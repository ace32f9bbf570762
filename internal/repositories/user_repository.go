package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// UserRepository defines the data access contract for users, including the
// refresh-token session slot embedded on the user row.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	UpdateAccount(ctx context.Context, userID, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, avatarURL string) error
	UpdateCoverImage(ctx context.Context, userID, coverURL string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, current, next string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	AddWatchHistory(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)
}
