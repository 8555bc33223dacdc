package handler

import (
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sr-companion/internal/upstream"
)

// proxyUIDPattern is looser than the binding rule on purpose: the proxy
// route serves lookups for any plausibly-real uid, including older
// 10-digit ones, without requiring the account to be bindable here.
var proxyUIDPattern = regexp.MustCompile(`^[0-9]{9,10}$`)

// proxyError mirrors the error shape the frontend already parses on the
// public lookup route. It predates the response envelope and is kept
// as-is so existing clients don't break.
type proxyError struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	UID       string `json:"uid"`
	Timestamp string `json:"timestamp"`
}

// PlayerHandler proxies public player lookups straight to the upstream
// API. No authentication, no persistence: the showcase data is public and
// callers may look up any uid.
type PlayerHandler struct {
	client *upstream.Client
}

// NewPlayerHandler creates a PlayerHandler.
func NewPlayerHandler(client *upstream.Client) *PlayerHandler {
	return &PlayerHandler{client: client}
}

// GetPlayer handles GET /api/player/{uid} and its /info alias.
func (h *PlayerHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if !proxyUIDPattern.MatchString(uid) {
		writeJSON(w, http.StatusBadRequest, proxyError{
			Error:     "invalid uid format",
			Details:   "uid must be 9 or 10 digits",
			UID:       uid,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	raw, err := h.client.FetchPlayerRaw(r.Context(), uid)
	if err != nil {
		// The lookup route predates the error taxonomy and keeps its
		// original 500-on-failure contract.
		writeJSON(w, http.StatusInternalServerError, proxyError{
			Error:     "failed to fetch player data",
			Details:   "the game data service did not return a result",
			UID:       uid,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}
