package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/pinboard-be/internal/services"
	"github.com/rs/zerolog/log"
)

const msgPinNotFound = "Pin not found"

// PinHandler handles HTTP requests related to pins and their feeds.
type PinHandler struct {
	service services.PinServiceProvider
}

// NewPinHandler creates a new PinHandler.
func NewPinHandler(service services.PinServiceProvider) *PinHandler {
	return &PinHandler{service: service}
}

// Create handles the request to create a new pin.
func (h *PinHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload services.CreatePinInput
	if !decodeBody(w, r, &payload) {
		return
	}

	pin, err := h.service.CreatePin(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, msgPinNotFound)
		return
	}

	log.Info().Str("pin_id", pin.ID.Hex()).Strs("tags", pin.Tags).Msg("Pin created")
	writeMessage(w, http.StatusOK, "Pin Created successfully!")
}

// GetAll handles the request to get all pins.
func (h *PinHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	pins, err := h.service.GetAllPins(r.Context())
	if err != nil {
		writeError(w, r, err, msgPinNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pins)
}

// Get handles the request to get a single pin by its ID.
func (h *PinHandler) Get(w http.ResponseWriter, r *http.Request) {
	pin, err := h.service.GetPinByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, msgPinNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pin)
}

// Explore lists the pins tagged for the explore page.
func (h *PinHandler) Explore(w http.ResponseWriter, r *http.Request) {
	pins, err := h.service.GetExplorePins(r.Context())
	if err != nil {
		writeError(w, r, err, msgPinNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pins)
}

// Category lists pins related by tag to the pin in the URL.
func (h *PinHandler) Category(w http.ResponseWriter, r *http.Request) {
	pins, err := h.service.GetRelatedPins(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, msgPinNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pins)
}

// Slideshow returns the landing page categories with their pins.
func (h *PinHandler) Slideshow(w http.ResponseWriter, r *http.Request) {
	show, err := h.service.GetSlideshow(r.Context())
	if err != nil {
		writeError(w, r, err, msgPinNotFound)
		return
	}
	writeJSON(w, http.StatusOK, show)
}

// Search finds pins matching the keyword in the URL.
func (h *PinHandler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := chi.URLParam(r, "searchword")
	// chi routes on RawPath when it is set, leaving the parameter escaped.
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(keyword)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid search keyword")
			return
		}
		keyword = decoded
	}

	pins, err := h.service.SearchPins(r.Context(), keyword)
	if err != nil {
		writeError(w, r, err, msgPinNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pins)
}
