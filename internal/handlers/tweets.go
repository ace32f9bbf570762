package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// TweetHandler manages short community posts on a channel.
type TweetHandler struct {
	Tweets repositories.TweetRepository
}

type tweetRequest struct {
	Content string `json:"content"`
}

type tweetResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toTweetResponse(tweet models.Tweet) tweetResponse {
	return tweetResponse{
		ID:        tweet.ID,
		OwnerID:   tweet.OwnerID,
		Content:   tweet.Content,
		CreatedAt: tweet.CreatedAt,
	}
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}

	now := time.Now().UTC()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Tweets.Create(ctx, tweet); err != nil {
		respondError(ctx, w, err, "failed to create tweet")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"tweet": toTweetResponse(tweet)})
}

// ListForUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := identityOr401(w, r); !ok {
		return
	}

	tweets, err := h.Tweets.ListByOwner(ctx, r.PathValue("userId"))
	if err != nil {
		respondError(ctx, w, err, "failed to list tweets")
		return
	}

	out := make([]tweetResponse, 0, len(tweets))
	for _, tweet := range tweets {
		out = append(out, toTweetResponse(tweet))
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"tweets": out})
}

// Update handles PATCH /api/v1/tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}

	tweet, ok := h.ownedTweet(w, r, userID)
	if !ok {
		return
	}

	updated, err := h.Tweets.UpdateContent(ctx, tweet.ID, req.Content)
	if err != nil {
		respondError(ctx, w, err, "failed to update tweet")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"tweet": toTweetResponse(updated)})
}

// Delete handles DELETE /api/v1/tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	tweet, ok := h.ownedTweet(w, r, userID)
	if !ok {
		return
	}

	if err := h.Tweets.Delete(ctx, tweet.ID); err != nil {
		respondError(ctx, w, err, "failed to delete tweet")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h TweetHandler) ownedTweet(w http.ResponseWriter, r *http.Request, userID string) (models.Tweet, bool) {
	ctx := r.Context()

	tweet, err := h.Tweets.FindByID(ctx, r.PathValue("tweetId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "not found"})
		} else {
			respondError(ctx, w, err, "failed to load tweet")
		}
		return models.Tweet{}, false
	}
	if tweet.OwnerID != userID {
		respondForbidden(ctx, w)
		return models.Tweet{}, false
	}
	return tweet, true
}
