package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/pinboard-be/internal/models"
	"github.com/isdelr/pinboard-be/internal/services"
)

// LikeHandler handles liking and unliking pins.
type LikeHandler struct {
	service services.PinServiceProvider
}

// NewLikeHandler creates a new LikeHandler.
func NewLikeHandler(service services.PinServiceProvider) *LikeHandler {
	return &LikeHandler{service: service}
}

// LikePayload names the user performing the like.
type LikePayload struct {
	UserID string `json:"userId"`
}

// LikeResponse wraps the pin after a like change.
type LikeResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    models.Pin `json:"data"`
}

// Add records a like. Liking twice is acknowledged without change.
func (h *LikeHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.service.AddLike, "Liked successfully", "Already liked")
}

// Remove deletes the caller's like if present.
func (h *LikeHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.service.RemoveLike, "unLiked successfully", "unLiked successfully")
}

func (h *LikeHandler) change(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, pinID, userID string) (models.Pin, bool, error), changedMsg, unchangedMsg string) {
	var payload LikePayload
	if !decodeBody(w, r, &payload) {
		return
	}

	pin, changed, err := apply(r.Context(), chi.URLParam(r, "id"), payload.UserID)
	if err != nil {
		writeError(w, r, err, msgPinNotFound)
		return
	}

	msg := changedMsg
	if !changed {
		msg = unchangedMsg
	}
	writeJSON(w, http.StatusOK, LikeResponse{Success: true, Message: msg, Data: pin})
}
