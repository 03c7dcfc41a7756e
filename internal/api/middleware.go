package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/dukandaar/internal/auth"
	"github.com/erazemk/dukandaar/internal/metrics"
	"github.com/erazemk/dukandaar/internal/model"
	"github.com/erazemk/dukandaar/internal/store"
)

type contextKey string

const (
	claimsKey   contextKey = "claims"
	identityKey contextKey = "identity"
)

// bearerToken returns the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

// Authenticate validates the bearer token and establishes the caller's
// identity without a role. Requests without a token pass through
// anonymously; a bad or revoked token is rejected.
func Authenticate(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ValidateToken(secret, tokenStr)
			if err != nil {
				jsonError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			revoked, err := store.SessionRevoked(r.Context(), db, claims.ID)
			if err != nil {
				slog.Error("checking token revocation", "error", err)
				jsonError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if revoked {
				jsonError(w, http.StatusUnauthorized, "token has been revoked")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, identityKey, claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveRole loads the caller's profile and resolves the effective role
// from the stored role and the admin allow-list. A deleted account is
// rejected.
func ResolveRole(db *sql.DB, adminEmails []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetIdentity(r.Context())
			if !id.Authenticated() {
				next.ServeHTTP(w, r)
				return
			}

			user, err := store.GetUser(r.Context(), db, id.UserID)
			if err != nil {
				slog.Error("loading user profile", "user_id", id.UserID, "error", err)
				jsonError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if user == nil {
				jsonError(w, http.StatusUnauthorized, "account no longer exists")
				return
			}

			id.Email = user.Email
			id.Name = user.DisplayName
			id.Role = auth.ResolveRole(adminEmails, user.Email, user.Role)
			id.RoleResolved = true

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetIdentity(r.Context()).Authenticated() {
			jsonError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects callers without a resolved admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetIdentity(r.Context())
		if !id.Authenticated() {
			jsonError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !id.IsAdmin() {
			jsonError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClaims retrieves the JWT claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// GetIdentity returns the caller's identity. Anonymous callers get the zero
// identity.
func GetIdentity(ctx context.Context) model.Identity {
	id, _ := ctx.Value(identityKey).(model.Identity)
	return id
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware logs HTTP requests with method, path, status, duration
// and request id, and records request metrics under the matched route.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.RecordAPIRequest(r.Method, route, rec.status, elapsed)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", elapsed.Round(time.Millisecond).String(),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
