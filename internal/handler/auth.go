// Package handler wires HTTP requests to the service layer: it parses
// and validates the HTTP surface (path params, query strings, JSON
// bodies), calls a service method and writes the response envelope.
// Business rules live one layer down.
package handler

import (
	"net/http"

	"github.com/sakif/sr-companion/internal/auth"
	"github.com/sakif/sr-companion/internal/service"
)

// AuthHandler serves the login and profile endpoints. Identity comes from
// the request context — the gateway middleware has already resolved it
// before these handlers run.
type AuthHandler struct {
	users *service.UserService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Login handles GET /api/auth/login. The gateway resolves the identity,
// so login is a read: it creates the user row on first contact and
// otherwise just reports back.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	result, err := h.users.LoginOrRegister(r.Context(), session.OpenID, session.UnionID)
	if err != nil {
		writeError(w, err)
		return
	}
	// Always 200: clients tell registration apart via isNewUser, not the
	// status code.
	message := "login successful"
	if result.IsNewUser {
		message = "registration successful"
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: result, Message: message})
}

// GetProfile handles GET /api/auth/profile.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nickname  *string `json:"nickname"`
		AvatarURL *string `json:"avatar_url"`
	}
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), auth.IdentityFromContext(r.Context()), body.Nickname, body.AvatarURL)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, user)
}
