package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sr-companion/internal/apperror"
	"github.com/sakif/sr-companion/internal/auth"
	"github.com/sakif/sr-companion/internal/model"
	"github.com/sakif/sr-companion/internal/service"
)

// UserDataHandler serves the identity-scoped data endpoints: game
// accounts, characters, sync, settings, history and stats.
type UserDataHandler struct {
	users *service.UserService
	sync  *service.SyncService
	stats *service.StatsService
}

// NewUserDataHandler creates a UserDataHandler.
func NewUserDataHandler(users *service.UserService, sync *service.SyncService, stats *service.StatsService) *UserDataHandler {
	return &UserDataHandler{users: users, sync: sync, stats: stats}
}

// ListGameAccounts handles GET /api/auth/game-accounts.
func (h *UserDataHandler) ListGameAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.users.ListGameAccounts(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if accounts == nil {
		accounts = []model.GameAccount{}
	}
	respond(w, http.StatusOK, accounts)
}

// AddGameAccount handles POST /api/auth/game-account.
func (h *UserDataHandler) AddGameAccount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UID        string `json:"uid"`
		Nickname   string `json:"nickname"`
		Level      int    `json:"level"`
		WorldLevel int    `json:"world_level"`
		IsPrimary  bool   `json:"is_primary"`
	}
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.users.AddGameAccount(r.Context(), auth.IdentityFromContext(r.Context()),
		service.GameAccountBind{
			UID:        body.UID,
			Nickname:   body.Nickname,
			Level:      body.Level,
			WorldLevel: body.WorldLevel,
			IsPrimary:  body.IsPrimary,
		})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, account)
}

// SetPrimaryAccount handles PUT /api/auth/game-account/{uid}/primary.
func (h *UserDataHandler) SetPrimaryAccount(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if err := h.users.SetPrimaryAccount(r.Context(), auth.IdentityFromContext(r.Context()), uid); err != nil {
		writeError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "primary account updated")
}

// ListCharacters handles GET /api/user/characters?uid=.
func (h *UserDataHandler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	characters, err := h.users.ListCharacters(r.Context(), auth.IdentityFromContext(r.Context()),
		r.URL.Query().Get("uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	if characters == nil {
		characters = []model.Character{}
	}
	respond(w, http.StatusOK, characters)
}

// SyncCharacters handles POST /api/user/sync.
func (h *UserDataHandler) SyncCharacters(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UID string `json:"uid"`
		// ForceUpdate is accepted for client compatibility. Every sync
		// already fetches fresh data, so nothing branches on it.
		ForceUpdate bool `json:"force_update"`
	}
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.sync.SyncCharacters(r.Context(), auth.IdentityFromContext(r.Context()), body.UID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

// SetFavorite handles PUT /api/user/characters/{uid}/{characterID}/favorite.
func (h *UserDataHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsFavorite bool `json:"is_favorite"`
	}
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, err)
		return
	}

	err := h.users.SetFavoriteCharacter(r.Context(), auth.IdentityFromContext(r.Context()),
		chi.URLParam(r, "uid"), chi.URLParam(r, "characterID"), body.IsFavorite)
	if err != nil {
		writeError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "favorite updated")
}

// DeleteCharacter handles DELETE /api/user/characters/{uid}/{characterID}.
func (h *UserDataHandler) DeleteCharacter(w http.ResponseWriter, r *http.Request) {
	err := h.users.DeleteCharacter(r.Context(), auth.IdentityFromContext(r.Context()),
		chi.URLParam(r, "uid"), chi.URLParam(r, "characterID"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "character deleted")
}

// GetSettings handles GET /api/auth/settings.
func (h *UserDataHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.users.GetSettings(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/auth/settings.
func (h *UserDataHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update model.SettingsUpdate
	if err := decodeBody(r, &update, true); err != nil {
		writeError(w, err)
		return
	}

	settings, err := h.users.UpdateSettings(r.Context(), auth.IdentityFromContext(r.Context()), update)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, settings)
}

// ListSyncLogs handles GET /api/user/sync-logs?limit=.
func (h *UserDataHandler) ListSyncLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("limit", "INVALID_LIMIT", "limit must be an integer"))
			return
		}
		limit = parsed
	}

	logs, err := h.users.ListSyncLogs(r.Context(), auth.IdentityFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []model.SyncLog{}
	}
	respond(w, http.StatusOK, logs)
}

// GetStats handles GET /api/user/stats.
func (h *UserDataHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.UserStats(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, stats)
}
