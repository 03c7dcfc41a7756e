package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/dukandaar/internal/auth"
	"github.com/erazemk/dukandaar/internal/model"
	"github.com/erazemk/dukandaar/internal/points"
	"github.com/erazemk/dukandaar/internal/store"
	"github.com/erazemk/dukandaar/internal/validation"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB          *sql.DB
	JWTSecret   string
	AdminEmails []string
	TokenExpiry time.Duration
	ResetExpiry time.Duration
	Lockout     *auth.Lockout
	Ledger      *points.Ledger
}

type signupRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// sessionResponse is the signed-in user as returned on sign-in and session
// restore.
type sessionResponse struct {
	Token    string          `json:"token,omitempty"`
	User     *model.User     `json:"user"`
	IsAdmin  bool            `json:"is_admin"`
	Standing points.Standing `json:"standing"`
}

func (h *AuthHandler) session(r *http.Request, user *model.User, token string) (*sessionResponse, error) {
	standing, err := h.Ledger.Standing(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	u := *user
	u.Role = auth.ResolveRole(h.AdminEmails, u.Email, u.Role)
	return &sessionResponse{
		Token:    token,
		User:     &u,
		IsAdmin:  u.Role == model.RoleAdmin,
		Standing: standing,
	}, nil
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, user *model.User, status int) {
	token, _, err := auth.GenerateToken(h.JWTSecret, user, h.TokenExpiry)
	if err != nil {
		slog.Error("generating token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	resp, err := h.session(r, user, token)
	if err != nil {
		slog.Error("loading standing", "user_id", user.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, status, resp)
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = store.NormalizeEmail(req.Email)
	if ve := validation.Struct(&req); ve != nil {
		validationError(w, ve)
		return
	}

	existing, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		slog.Error("looking up user", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, "an account with this email already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Email, req.DisplayName, hash, model.RoleUser)
	if err != nil {
		slog.Error("creating user", "error", err)
		jsonError(w, http.StatusConflict, "an account with this email already exists")
		return
	}

	slog.Info("user signed up", "user_id", user.ID)
	h.issue(w, r, user, http.StatusCreated)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	if locked, remaining := h.Lockout.Locked(req.Email); locked {
		jsonError(w, http.StatusTooManyRequests, lockedMessage(remaining))
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		slog.Error("looking up user", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		slog.Warn("login failed", "email", store.NormalizeEmail(req.Email), "remote", r.RemoteAddr)
		left, lockedFor := h.Lockout.Fail(req.Email)
		if lockedFor > 0 {
			jsonError(w, http.StatusTooManyRequests, lockedMessage(lockedFor))
			return
		}
		jsonError(w, http.StatusUnauthorized, fmt.Sprintf("invalid credentials (%d attempts remaining)", left))
		return
	}

	h.Lockout.Reset(req.Email)
	slog.Info("user logged in", "user_id", user.ID)
	h.issue(w, r, user, http.StatusOK)
}

func lockedMessage(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("too many attempts, try again in %d seconds", secs)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeSession(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		slog.Error("revoking token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	slog.Info("user logged out", "user_id", claims.UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Session handles GET /api/auth/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	id := GetIdentity(r.Context())
	user, err := store.GetUser(r.Context(), h.DB, id.UserID)
	if err != nil || user == nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp, err := h.session(r, user, "")
	if err != nil {
		slog.Error("loading standing", "user_id", user.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id := GetIdentity(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id.UserID)
	if err != nil || user == nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id.UserID, hash); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	slog.Info("user changed own password", "user_id", id.UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// RequestReset handles POST /api/auth/reset-request. The response is the
// same whether or not the account exists.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = store.NormalizeEmail(req.Email)
	if ve := validation.Struct(&req); ve != nil {
		validationError(w, ve)
		return
	}

	accepted := map[string]string{"message": "if the account exists, a reset link has been sent"}

	user, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		slog.Error("looking up user", "error", err)
		jsonResponse(w, http.StatusAccepted, accepted)
		return
	}
	if user == nil {
		jsonResponse(w, http.StatusAccepted, accepted)
		return
	}

	token, hash, err := auth.NewResetToken()
	if err != nil {
		slog.Error("generating reset token", "error", err)
		jsonResponse(w, http.StatusAccepted, accepted)
		return
	}
	if err := store.CreatePasswordReset(r.Context(), h.DB, hash, user.ID, time.Now().UTC().Add(h.ResetExpiry)); err != nil {
		slog.Error("storing reset token", "error", err)
		jsonResponse(w, http.StatusAccepted, accepted)
		return
	}

	// No mailer: the operator relays the token.
	slog.Info("password reset requested", "user_id", user.ID, "reset_token", token)
	jsonResponse(w, http.StatusAccepted, accepted)
}

// ConfirmReset handles POST /api/auth/reset.
func (h *AuthHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ve := validation.Struct(&req); ve != nil {
		validationError(w, ve)
		return
	}

	userID, err := store.ConsumePasswordReset(r.Context(), h.DB, auth.HashResetToken(req.Token), time.Now().UTC())
	if err != nil {
		slog.Error("consuming reset token", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if userID == 0 {
		jsonError(w, http.StatusBadRequest, "reset token is invalid or expired")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, userID, hash); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	slog.Info("password reset completed", "user_id", userID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}
