package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/repositories"
)

// SubscriptionHandler manages channel subscriptions.
type SubscriptionHandler struct {
	Subscriptions repositories.SubscriptionRepository
	Users         repositories.UserRepository
}

type channelSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}. Subscribing to
// your own channel is rejected.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	channelID := r.PathValue("channelId")
	if channelID == userID {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot subscribe to your own channel"})
		return
	}

	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		respondError(ctx, w, err, "failed to load channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, userID, channelID)
	if err != nil {
		respondError(ctx, w, err, "failed to toggle subscription")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"subscribed": subscribed})
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}. The list is
// private to the channel owner.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identityOr401(w, r)
	if !ok {
		return
	}

	channelID := r.PathValue("channelId")
	if channelID != userID {
		respondForbidden(ctx, w)
		return
	}

	subscribers, err := h.Subscriptions.ListSubscribers(ctx, channelID)
	if err != nil {
		respondError(ctx, w, err, "failed to list subscribers")
		return
	}

	out := make([]channelSummary, 0, len(subscribers))
	for _, user := range subscribers {
		out = append(out, channelSummary{ID: user.ID, Username: user.Username, FullName: user.FullName, Avatar: user.Avatar})
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"subscribers": out})
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := identityOr401(w, r); !ok {
		return
	}

	channels, err := h.Subscriptions.ListSubscribedChannels(ctx, r.PathValue("subscriberId"))
	if err != nil {
		respondError(ctx, w, err, "failed to list subscriptions")
		return
	}

	out := make([]channelSummary, 0, len(channels))
	for _, user := range channels {
		out = append(out, channelSummary{ID: user.ID, Username: user.Username, FullName: user.FullName, Avatar: user.Avatar})
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"channels": out})
}
