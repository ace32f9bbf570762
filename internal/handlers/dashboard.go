package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/stats"
)

// DashboardHandler serves the channel owner's private dashboard.
type DashboardHandler struct {
	Stats  stats.Provider
	Videos repositories.VideoRepository
}

// ChannelStats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) ChannelStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	channelStats, err := h.Stats.ChannelStats(ctx, userID)
	if err != nil {
		respondError(ctx, w, err, "failed to load channel stats")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"stats": channelStats})
}

// ChannelVideos handles GET /api/v1/dashboard/videos, listing the caller's
// videos including unpublished ones.
func (h DashboardHandler) ChannelVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	videos, err := h.Videos.ListByChannel(ctx, userID, true)
	if err != nil {
		respondError(ctx, w, err, "failed to list videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": toVideoResponses(videos)})
}
