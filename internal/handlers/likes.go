package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// LikeHandler toggles likes on videos, comments, and tweets.
type LikeHandler struct {
	Likes repositories.LikeRepository
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTarget{VideoID: r.PathValue("videoId")})
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTarget{CommentID: r.PathValue("commentId")})
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTarget{TweetID: r.PathValue("tweetId")})
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	videos, err := h.Likes.ListLikedVideos(ctx, userID)
	if err != nil {
		respondError(ctx, w, err, "failed to list liked videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": toVideoResponses(videos)})
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, target models.LikeTarget) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	liked, err := h.Likes.Toggle(ctx, userID, target)
	if err != nil {
		respondError(ctx, w, err, "failed to toggle like")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"liked": liked})
}
