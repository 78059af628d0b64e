package handlers

import (
	"net/http"

	"github.com/isdelr/pinboard-be/internal/services"
	"github.com/rs/zerolog/log"
)

// HealthHandler reports service health.
type HealthHandler struct {
	service services.HealthServiceProvider
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(service services.HealthServiceProvider) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health responds 200 when the store is reachable and 503 otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Check(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Root serves the landing banner.
func Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<h1>Pinboard API</h1>"))
}
