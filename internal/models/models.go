package models

import "time"

// User represents an account within the VidTube platform. The password
// field only ever holds a bcrypt hash, and RefreshToken is the single
// session slot: at most one refresh token is valid per user at a time.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Avatar       string
	CoverImage   string
	Password     string
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the point-in-time snapshot of a user carried inside access
// tokens and attached to authenticated requests.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Identity returns the token-safe snapshot of the user.
func (u User) Identity() Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
	}
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Video is an uploaded video owned by a channel (user).
type Video struct {
	ID           string
	OwnerID      string
	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string
	Duration     float64
	Views        int64
	IsPublished  bool
	AssetStatus  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	AssetStatusPending = "pending"
	AssetStatusReady   = "ready"
	AssetStatusFailed  = "failed"
)

// Comment is a user comment attached to a video.
type Comment struct {
	ID        string
	VideoID   string
	OwnerID   string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tweet is a short community post on a user's channel.
type Tweet struct {
	ID        string
	OwnerID   string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LikeTarget identifies which entity a like row points at. Exactly one of
// the id fields is set.
type LikeTarget struct {
	VideoID   string
	CommentID string
	TweetID   string
}

// Subscription links a subscriber to the channel they follow.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// Playlist is a user-curated ordered collection of videos.
type Playlist struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChannelProfile is the public view of a user's channel, including the
// caller-dependent subscription flag.
type ChannelProfile struct {
	UserID          string `json:"userId"`
	Username        string `json:"username"`
	FullName        string `json:"fullName"`
	Avatar          string `json:"avatar"`
	CoverImage      string `json:"coverImage"`
	Subscribers     int64  `json:"subscribersCount"`
	SubscribedTo    int64  `json:"channelsSubscribedToCount"`
	IsSubscribed    bool   `json:"isSubscribed"`
}

// ChannelStats aggregates dashboard numbers for a channel.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalLikes       int64 `json:"totalLikes"`
}
