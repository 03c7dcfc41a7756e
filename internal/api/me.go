package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/dukandaar/internal/listing"
	"github.com/erazemk/dukandaar/internal/model"
	"github.com/erazemk/dukandaar/internal/points"
	"github.com/erazemk/dukandaar/internal/prefs"
	"github.com/erazemk/dukandaar/internal/store"
)

// MeHandler serves the signed-in user's own state.
type MeHandler struct {
	DB       *sql.DB
	Ledger   *points.Ledger
	Prefs    *prefs.Store
	Listings *listing.Service
}

// Standing handles GET /api/me/standing.
func (h *MeHandler) Standing(w http.ResponseWriter, r *http.Request) {
	id := GetIdentity(r.Context())
	standing, err := h.Ledger.Standing(r.Context(), id.UserID)
	if err != nil {
		slog.Error("loading standing", "user_id", id.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, standing)
}

// Notifications handles GET /api/me/notifications.
func (h *MeHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	id := GetIdentity(r.Context())
	ns, err := store.ListUnseenNotifications(r.Context(), h.DB, id.UserID)
	if err != nil {
		slog.Error("listing notifications", "user_id", id.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if ns == nil {
		ns = []model.Notification{}
	}
	jsonResponse(w, http.StatusOK, ns)
}

// NotificationSeen handles POST /api/me/notifications/{id}/seen.
func (h *MeHandler) NotificationSeen(w http.ResponseWriter, r *http.Request) {
	nid, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	id := GetIdentity(r.Context())
	ok, err := store.MarkNotificationSeen(r.Context(), h.DB, id.UserID, nid)
	if err != nil {
		slog.Error("dismissing notification", "user_id", id.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preferences handles GET /api/me/preferences.
func (h *MeHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	id := GetIdentity(r.Context())
	p, err := h.Prefs.Get(r.Context(), id.UserID)
	if err != nil {
		slog.Error("loading preferences", "user_id", id.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// ToggleFavorite handles POST /api/me/favorites/{id}. Only listings the
// caller can see may be favorited.
func (h *MeHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := GetIdentity(r.Context())
	listingID := chi.URLParam(r, "id")

	if _, err := h.Listings.Get(r.Context(), id, listingID); err != nil {
		serviceError(w, r, err)
		return
	}

	on, err := h.Prefs.ToggleFavorite(r.Context(), id.UserID, listingID)
	if err != nil {
		slog.Error("toggling favorite", "user_id", id.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"listing_id": listingID, "favorite": on})
}

// OnboardingSeen handles POST /api/me/onboarding.
func (h *MeHandler) OnboardingSeen(w http.ResponseWriter, r *http.Request) {
	id := GetIdentity(r.Context())
	if err := h.Prefs.MarkOnboardingSeen(r.Context(), id.UserID); err != nil {
		slog.Error("saving onboarding state", "user_id", id.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type languageRequest struct {
	Language string `json:"language"`
}

// SetLanguage handles PUT /api/me/language.
func (h *MeHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := GetIdentity(r.Context())
	p, err := h.Prefs.SetLanguage(r.Context(), id.UserID, req.Language)
	if errors.Is(err, prefs.ErrInvalidLanguage) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("saving language", "user_id", id.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, p)
}
