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

// PlaylistHandler manages playlists and their video membership.
type PlaylistHandler struct {
	Playlists repositories.PlaylistRepository
	Videos    repositories.VideoRepository
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type playlistResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toPlaylistResponse(playlist models.Playlist) playlistResponse {
	return playlistResponse{
		ID:          playlist.ID,
		OwnerID:     playlist.OwnerID,
		Name:        playlist.Name,
		Description: playlist.Description,
		CreatedAt:   playlist.CreatedAt,
	}
}

// Create handles POST /api/v1/playlist.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Playlists.Create(ctx, playlist); err != nil {
		respondError(ctx, w, err, "failed to create playlist")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"playlist": toPlaylistResponse(playlist)})
}

// Get handles GET /api/v1/playlist/{playlistId}. The playlist's videos are
// included in the response.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := identityOr401(w, r); !ok {
		return
	}

	playlist, err := h.Playlists.FindByID(ctx, r.PathValue("playlistId"))
	if err != nil {
		respondError(ctx, w, err, "failed to load playlist")
		return
	}

	videos, err := h.Playlists.ListVideos(ctx, playlist.ID)
	if err != nil {
		respondError(ctx, w, err, "failed to load playlist videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"playlist": toPlaylistResponse(playlist),
		"videos":   toVideoResponses(videos),
	})
}

// ListForUser handles GET /api/v1/playlist/user/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := identityOr401(w, r); !ok {
		return
	}

	playlists, err := h.Playlists.ListByOwner(ctx, r.PathValue("userId"))
	if err != nil {
		respondError(ctx, w, err, "failed to list playlists")
		return
	}

	out := make([]playlistResponse, 0, len(playlists))
	for _, playlist := range playlists {
		out = append(out, toPlaylistResponse(playlist))
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"playlists": out})
}

// AddVideo handles PATCH /api/v1/playlist/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.ownedPlaylist(w, r)
	if !ok {
		return
	}

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		respondError(ctx, w, err, "failed to load video")
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, video.ID); err != nil {
		respondError(ctx, w, err, "failed to add video to playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "added"})
}

// RemoveVideo handles PATCH /api/v1/playlist/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.ownedPlaylist(w, r)
	if !ok {
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, r.PathValue("videoId")); err != nil {
		respondError(ctx, w, err, "failed to remove video from playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "removed"})
}

// Update handles PATCH /api/v1/playlist/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.ownedPlaylist(w, r)
	if !ok {
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		playlist.Name = name
	}
	if req.Description != "" {
		playlist.Description = req.Description
	}

	if err := h.Playlists.UpdateDetails(ctx, playlist); err != nil {
		respondError(ctx, w, err, "failed to update playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"playlist": toPlaylistResponse(playlist)})
}

// Delete handles DELETE /api/v1/playlist/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.ownedPlaylist(w, r)
	if !ok {
		return
	}

	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		respondError(ctx, w, err, "failed to delete playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h PlaylistHandler) ownedPlaylist(w http.ResponseWriter, r *http.Request) (models.Playlist, bool) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return models.Playlist{}, false
	}

	playlist, err := h.Playlists.FindByID(ctx, r.PathValue("playlistId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "not found"})
		} else {
			respondError(ctx, w, err, "failed to load playlist")
		}
		return models.Playlist{}, false
	}
	if playlist.OwnerID != userID {
		respondForbidden(ctx, w)
		return models.Playlist{}, false
	}
	return playlist, true
}
