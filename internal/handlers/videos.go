package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

const maxVideoUpload = 512 << 20 // 512 MiB

// VideoHandler manages video publishing and retrieval. Uploaded files are
// staged to disk and handed to the ingestor; the video row is visible
// immediately with a pending asset status.
type VideoHandler struct {
	Videos  repositories.VideoRepository
	Users   repositories.UserRepository
	Storage MediaStorage
	Ingest  AssetIngestor
}

type videoResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"videoUrl,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	IsPublished  bool      `json:"isPublished"`
	AssetStatus  string    `json:"assetStatus"`
	CreatedAt    time.Time `json:"createdAt"`
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func toVideoResponse(video models.Video) videoResponse {
	return videoResponse{
		ID:           video.ID,
		OwnerID:      video.OwnerID,
		Title:        video.Title,
		Description:  video.Description,
		VideoURL:     video.VideoURL,
		ThumbnailURL: video.ThumbnailURL,
		Duration:     video.Duration,
		Views:        video.Views,
		IsPublished:  video.IsPublished,
		AssetStatus:  video.AssetStatus,
		CreatedAt:    video.CreatedAt,
	}
}

func toVideoResponses(videos []models.Video) []videoResponse {
	out := make([]videoResponse, 0, len(videos))
	for _, video := range videos {
		out = append(out, toVideoResponse(video))
	}
	return out
}

// Publish handles POST /api/v1/videos. The video file is staged locally and
// queued for upload; the thumbnail is stored synchronously.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	ownerID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxVideoUpload); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "multipart form required"})
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	file, header, err := r.FormFile("videoFile")
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "video file is required"})
		return
	}
	defer file.Close()

	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)

	now := time.Now().UTC()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: r.FormValue("description"),
		Duration:    duration,
		AssetStatus: models.AssetStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if thumb, thumbHeader, thumbErr := r.FormFile("thumbnail"); thumbErr == nil {
		url, saveErr := h.Storage.Save(ctx, "thumbnails/"+video.ID+strings.ToLower(extOf(thumbHeader.Filename)), thumb)
		thumb.Close()
		if saveErr != nil {
			logger.Error("thumbnail upload failed", "error", saveErr)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to store thumbnail"})
			return
		}
		video.ThumbnailURL = url
	}

	stagedPath, err := media.StageUpload(file)
	if err != nil {
		logger.Error("staging video upload failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to stage video"})
		return
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		_ = os.Remove(stagedPath)
		respondError(ctx, w, err, "failed to create video")
		return
	}

	job := media.Job{
		VideoID:  video.ID,
		Path:     stagedPath,
		Filename: header.Filename,
		Duration: duration,
	}
	if err := h.Ingest.Enqueue(ctx, job); err != nil {
		logger.Error("ingest queue full", "video_id", video.ID, "error", err)
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "upload queue is full, try again later"})
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, map[string]any{"video": toVideoResponse(video)})
}

// Get handles GET /api/v1/videos/{videoId}. Unpublished videos are visible
// only to their owner; successful views are counted and recorded in the
// viewer's watch history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	viewerID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		respondError(ctx, w, err, "failed to load video")
		return
	}

	if !video.IsPublished && video.OwnerID != viewerID {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if err := h.Videos.IncrementViews(ctx, video.ID); err != nil {
		logger.Warn("increment views failed", "video_id", video.ID, "error", err)
	} else {
		video.Views++
	}
	if err := h.Users.AddWatchHistory(ctx, viewerID, video.ID); err != nil {
		logger.Warn("record watch history failed", "video_id", video.ID, "error", err)
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"video": toVideoResponse(video)})
}

// ListByChannel handles GET /api/v1/videos/channel/{channelId}. Owners see
// their unpublished videos; everyone else sees published ones only.
func (h VideoHandler) ListByChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewerID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	channelID := r.PathValue("channelId")
	videos, err := h.Videos.ListByChannel(ctx, channelID, channelID == viewerID)
	if err != nil {
		respondError(ctx, w, err, "failed to list videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": toVideoResponses(videos)})
}

// Update handles PATCH /api/v1/videos/{videoId}.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}

	var req updateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		video.Title = title
	}
	if req.Description != "" {
		video.Description = req.Description
	}

	if err := h.Videos.UpdateDetails(ctx, video); err != nil {
		respondError(ctx, w, err, "failed to update video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"video": toVideoResponse(video)})
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		respondError(ctx, w, err, "failed to delete video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

// TogglePublish handles PATCH /api/v1/videos/{videoId}/toggle-publish.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}

	video.IsPublished = !video.IsPublished
	if err := h.Videos.SetPublished(ctx, video.ID, video.IsPublished); err != nil {
		respondError(ctx, w, err, "failed to toggle publish state")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"video": toVideoResponse(video)})
}

// ownedVideo loads the path video and enforces ownership: a missing video is
// a 404, an existing video owned by someone else is a 403.
func (h VideoHandler) ownedVideo(w http.ResponseWriter, r *http.Request) (models.Video, bool) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return models.Video{}, false
	}

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "not found"})
		} else {
			respondError(ctx, w, err, "failed to load video")
		}
		return models.Video{}, false
	}
	if video.OwnerID != userID {
		respondForbidden(ctx, w)
		return models.Video{}, false
	}
	return video, true
}

func extOf(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		return name[idx:]
	}
	return ""
}
