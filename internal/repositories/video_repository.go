package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// VideoRepository defines persistence for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListByChannel(ctx context.Context, channelID string, includeUnpublished bool) ([]models.Video, error)
	UpdateDetails(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	SetPublished(ctx context.Context, id string, published bool) error
	IncrementViews(ctx context.Context, id string) error
	MarkAssetReady(ctx context.Context, id, location string, duration float64) error
	MarkAssetFailed(ctx context.Context, id string) error
}

// CommentRepository defines persistence for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListByVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// TweetRepository defines persistence for channel tweets.
type TweetRepository interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
}

// LikeRepository toggles and counts likes across videos, comments, and tweets.
type LikeRepository interface {
	Toggle(ctx context.Context, userID string, target models.LikeTarget) (liked bool, err error)
	ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}

// SubscriptionRepository manages channel subscriptions.
type SubscriptionRepository interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (subscribed bool, err error)
	ListSubscribers(ctx context.Context, channelID string) ([]models.User, error)
	ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.User, error)
}

// PlaylistRepository manages playlists and their video membership.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	ListVideos(ctx context.Context, playlistID string) ([]models.Video, error)
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
	UpdateDetails(ctx context.Context, playlist models.Playlist) error
	Delete(ctx context.Context, id string) error
}

// StatsRepository aggregates dashboard numbers for a channel.
type StatsRepository interface {
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
}
