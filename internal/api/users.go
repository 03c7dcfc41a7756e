package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/dukandaar/internal/auth"
	"github.com/erazemk/dukandaar/internal/model"
	"github.com/erazemk/dukandaar/internal/points"
	"github.com/erazemk/dukandaar/internal/store"
)

// LeaderboardSize is the number of users on the leaderboard.
const LeaderboardSize = 10

// UsersHandler handles the leaderboard and user management endpoints.
type UsersHandler struct {
	DB          *sql.DB
	AdminEmails []string
}

type leaderboardEntry struct {
	Position    int         `json:"position"`
	UserID      int64       `json:"user_id"`
	DisplayName string      `json:"display_name"`
	Points      int         `json:"points"`
	Rank        points.Rank `json:"rank"`
}

type updateUserRequest struct {
	Role string `json:"role"`
}

// Leaderboard handles GET /api/leaderboard.
func (h *UsersHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	users, err := store.TopUsers(r.Context(), h.DB, LeaderboardSize)
	if err != nil {
		slog.Error("failed to load leaderboard", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}

	entries := make([]leaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, leaderboardEntry{
			Position:    i + 1,
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			Points:      u.Points,
			Rank:        points.RankFor(u.Points),
		})
	}
	jsonResponse(w, http.StatusOK, entries)
}

// List handles GET /api/users. Roles are reported as resolved.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	for i := range users {
		users[i].Role = auth.ResolveRole(h.AdminEmails, users[i].Email, users[i].Role)
	}
	jsonResponse(w, http.StatusOK, users)
}

// Update handles PUT /api/users/{id}. It changes the stored role; an
// allow-listed admin stays admin whatever is stored.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	actor := GetIdentity(r.Context())
	if actor.UserID == id && req.Role != model.RoleAdmin {
		jsonError(w, http.StatusBadRequest, "cannot demote yourself")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := store.UpdateUserRole(r.Context(), h.DB, id, req.Role); err != nil {
		slog.Error("failed to update user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	user.Role = auth.ResolveRole(h.AdminEmails, user.Email, req.Role)
	slog.Info("user role updated", "admin_id", actor.UserID, "target_user_id", id, "new_role", req.Role)
	jsonResponse(w, http.StatusOK, user)
}
