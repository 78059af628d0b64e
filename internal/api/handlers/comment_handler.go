package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/pinboard-be/internal/services"
	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/rs/zerolog/log"
)

// CommentHandler handles HTTP requests for comments.
type CommentHandler struct {
	service services.CommentServiceProvider
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(service services.CommentServiceProvider) *CommentHandler {
	return &CommentHandler{service: service}
}

// CommentResponse is the envelope returned by comment creation.
type CommentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Create posts a comment on the pin in the URL.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload services.CreateCommentInput
	if !decodeBody(w, r, &payload) {
		return
	}

	pinID := chi.URLParam(r, "pinId")
	comment, err := h.service.CreateComment(r.Context(), pinID, payload)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) || errors.Is(err, store.ErrNotFound) {
			writeError(w, r, err, msgPinNotFound)
			return
		}
		log.Error().Err(err).Str("pin_id", pinID).Msg("Failed to create comment")
		writeJSON(w, http.StatusInternalServerError, CommentResponse{Message: "Failed to submit", Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, CommentResponse{Success: true, Message: "Comment submitted", Data: comment})
}
