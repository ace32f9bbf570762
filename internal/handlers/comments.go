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

// CommentHandler manages comments on videos.
type CommentHandler struct {
	Comments repositories.CommentRepository
	Videos   repositories.VideoRepository
}

type commentRequest struct {
	Content string `json:"content"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toCommentResponse(comment models.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		VideoID:   comment.VideoID,
		OwnerID:   comment.OwnerID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
}

// Add handles POST /api/v1/videos/{videoId}/comments.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		respondError(ctx, w, err, "failed to load video")
		return
	}

	now := time.Now().UTC()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   video.ID,
		OwnerID:   userID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		respondError(ctx, w, err, "failed to add comment")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"comment": toCommentResponse(comment)})
}

// ListForVideo handles GET /api/v1/videos/{videoId}/comments.
func (h CommentHandler) ListForVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := identityOr401(w, r); !ok {
		return
	}

	comments, err := h.Comments.ListByVideo(ctx, r.PathValue("videoId"))
	if err != nil {
		respondError(ctx, w, err, "failed to list comments")
		return
	}

	out := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, toCommentResponse(comment))
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"comments": out})
}

// Update handles PATCH /api/v1/comments/{commentId}. Only the comment owner
// may edit it.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}

	comment, ok := h.ownedComment(w, r, userID)
	if !ok {
		return
	}

	updated, err := h.Comments.UpdateContent(ctx, comment.ID, req.Content)
	if err != nil {
		respondError(ctx, w, err, "failed to update comment")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"comment": toCommentResponse(updated)})
}

// Delete handles DELETE /api/v1/comments/{commentId}. The comment owner and
// the owner of the video may both remove it.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	comment, err := h.Comments.FindByID(ctx, r.PathValue("commentId"))
	if err != nil {
		respondError(ctx, w, err, "failed to load comment")
		return
	}

	if comment.OwnerID != userID {
		video, err := h.Videos.FindByID(ctx, comment.VideoID)
		if err != nil || video.OwnerID != userID {
			respondForbidden(ctx, w)
			return
		}
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		respondError(ctx, w, err, "failed to delete comment")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h CommentHandler) ownedComment(w http.ResponseWriter, r *http.Request, userID string) (models.Comment, bool) {
	ctx := r.Context()

	comment, err := h.Comments.FindByID(ctx, r.PathValue("commentId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "not found"})
		} else {
			respondError(ctx, w, err, "failed to load comment")
		}
		return models.Comment{}, false
	}
	if comment.OwnerID != userID {
		respondForbidden(ctx, w)
		return models.Comment{}, false
	}
	return comment, true
}
