package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/pinboard-be/internal/services"
	"github.com/rs/zerolog/log"
)

const msgUserNotFound = "User not found"

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse identifies the authenticated user.
type LoginResponse struct {
	ID    string `json:"ID"`
	Email string `json:"email"`
	Name  string `json:"Name"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload services.RegisterInput
	if !decodeBody(w, r, &payload) {
		return
	}

	user, err := h.service.Register(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, msgUserNotFound)
		return
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("User registered")
	writeMessage(w, http.StatusOK, "User registered successfully! Proceed to Login.")
}

// Login checks credentials and returns the user's identity.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	user, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed login attempt")
		writeError(w, r, err, msgUserNotFound)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{ID: user.ID.Hex(), Email: user.Email, Name: user.Name})
}

// GetAll lists every user.
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAllUsers(r.Context())
	if err != nil {
		writeError(w, r, err, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Get returns one user with saved pins resolved.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update merges the supplied fields into a user. Only fname, email, dob and
// password may be changed; any other key is rejected with 400.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload services.UpdateUserInput
	if !decodeStrictBody(w, r, &payload) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, r, err, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete removes a user.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err, "User does not exist")
		return
	}

	log.Info().Str("user_id", id).Msg("User deleted")
	writeMessage(w, http.StatusOK, "User has been deleted.")
}

// SavePin adds a pin to a user's saved collection.
func (h *UserHandler) SavePin(w http.ResponseWriter, r *http.Request) {
	added, err := h.service.SavePin(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "pinID"))
	if err != nil {
		writeError(w, r, err, "User or pin not found")
		return
	}

	if !added {
		writeMessage(w, http.StatusOK, "Pin already saved")
		return
	}
	writeMessage(w, http.StatusOK, "Pin saved successfully")
}
