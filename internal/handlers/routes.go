package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Every route
// below the public auth endpoints passes through the verification gate
// before reaching its handler.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	guard := middleware.RequireAuth(deps.TokenVerifier, deps.Users)
	protected := func(handler http.HandlerFunc) http.Handler {
		return guard(handler)
	}

	health := HealthHandler{}
	users := UserHandler{Sessions: deps.Sessions, Users: deps.Users, Storage: deps.Storage}
	videos := VideoHandler{Videos: deps.Videos, Users: deps.Users, Storage: deps.Storage, Ingest: deps.Ingest}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos}
	tweets := TweetHandler{Tweets: deps.Tweets}
	likes := LikeHandler{Likes: deps.Likes}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos}
	dashboard := DashboardHandler{Stats: deps.Stats, Videos: deps.Videos}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", users.Register)
	mux.HandleFunc("POST /api/v1/users/login", users.Login)
	mux.HandleFunc("POST /api/v1/users/refresh-token", users.Refresh)
	mux.Handle("POST /api/v1/users/logout", protected(users.Logout))
	mux.Handle("POST /api/v1/users/change-password", protected(users.ChangePassword))
	mux.Handle("GET /api/v1/users/current-user", protected(users.CurrentUser))
	mux.Handle("PATCH /api/v1/users/update-account", protected(users.UpdateAccount))
	mux.Handle("PATCH /api/v1/users/avatar", protected(users.UpdateAvatar))
	mux.Handle("PATCH /api/v1/users/cover-image", protected(users.UpdateCoverImage))
	mux.Handle("GET /api/v1/users/c/{username}", protected(users.ChannelProfile))
	mux.Handle("GET /api/v1/users/history", protected(users.WatchHistory))

	mux.Handle("POST /api/v1/videos", protected(videos.Publish))
	mux.Handle("GET /api/v1/videos/channel/{channelId}", protected(videos.ListByChannel))
	mux.Handle("GET /api/v1/videos/{videoId}", protected(videos.Get))
	mux.Handle("PATCH /api/v1/videos/{videoId}", protected(videos.Update))
	mux.Handle("DELETE /api/v1/videos/{videoId}", protected(videos.Delete))
	mux.Handle("PATCH /api/v1/videos/{videoId}/toggle-publish", protected(videos.TogglePublish))

	mux.Handle("POST /api/v1/videos/{videoId}/comments", protected(comments.Add))
	mux.Handle("GET /api/v1/videos/{videoId}/comments", protected(comments.ListForVideo))
	mux.Handle("PATCH /api/v1/comments/{commentId}", protected(comments.Update))
	mux.Handle("DELETE /api/v1/comments/{commentId}", protected(comments.Delete))

	mux.Handle("POST /api/v1/tweets", protected(tweets.Create))
	mux.Handle("GET /api/v1/tweets/user/{userId}", protected(tweets.ListForUser))
	mux.Handle("PATCH /api/v1/tweets/{tweetId}", protected(tweets.Update))
	mux.Handle("DELETE /api/v1/tweets/{tweetId}", protected(tweets.Delete))

	mux.Handle("POST /api/v1/likes/toggle/v/{videoId}", protected(likes.ToggleVideo))
	mux.Handle("POST /api/v1/likes/toggle/c/{commentId}", protected(likes.ToggleComment))
	mux.Handle("POST /api/v1/likes/toggle/t/{tweetId}", protected(likes.ToggleTweet))
	mux.Handle("GET /api/v1/likes/videos", protected(likes.LikedVideos))

	mux.Handle("POST /api/v1/subscriptions/c/{channelId}", protected(subscriptions.Toggle))
	mux.Handle("GET /api/v1/subscriptions/c/{channelId}", protected(subscriptions.Subscribers))
	mux.Handle("GET /api/v1/subscriptions/u/{subscriberId}", protected(subscriptions.SubscribedChannels))

	mux.Handle("POST /api/v1/playlist", protected(playlists.Create))
	mux.Handle("GET /api/v1/playlist/user/{userId}", protected(playlists.ListForUser))
	mux.Handle("PATCH /api/v1/playlist/add/{videoId}/{playlistId}", protected(playlists.AddVideo))
	mux.Handle("PATCH /api/v1/playlist/remove/{videoId}/{playlistId}", protected(playlists.RemoveVideo))
	mux.Handle("GET /api/v1/playlist/{playlistId}", protected(playlists.Get))
	mux.Handle("PATCH /api/v1/playlist/{playlistId}", protected(playlists.Update))
	mux.Handle("DELETE /api/v1/playlist/{playlistId}", protected(playlists.Delete))

	mux.Handle("GET /api/v1/dashboard/stats", protected(dashboard.ChannelStats))
	mux.Handle("GET /api/v1/dashboard/videos", protected(dashboard.ChannelVideos))
}
