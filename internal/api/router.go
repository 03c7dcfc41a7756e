package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/dukandaar/internal/auth"
	"github.com/erazemk/dukandaar/internal/config"
	"github.com/erazemk/dukandaar/internal/listing"
	"github.com/erazemk/dukandaar/internal/media"
	"github.com/erazemk/dukandaar/internal/points"
	"github.com/erazemk/dukandaar/internal/prefs"
)

// Deps is everything the router needs.
type Deps struct {
	DB        *sql.DB
	JWTSecret string
	Server    config.ServerConfig
	Auth      config.AuthConfig
	Listings  *listing.Service
	Ledger    *points.Ledger
	Media     *media.Store
	Prefs     *prefs.Store
	Lockout   *auth.Lockout
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	if d.Lockout == nil {
		d.Lockout = auth.NewLockout(d.Auth.LockoutAttempts, d.Auth.LockoutDuration)
	}
	rateLimit := d.Server.RateLimit
	if rateLimit <= 0 {
		rateLimit = 20
	}

	authHandler := &AuthHandler{
		DB:          d.DB,
		JWTSecret:   d.JWTSecret,
		AdminEmails: d.Auth.AdminEmails,
		TokenExpiry: d.Auth.TokenExpiry,
		ResetExpiry: d.Auth.ResetExpiry,
		Lockout:     d.Lockout,
		Ledger:      d.Ledger,
	}
	meHandler := &MeHandler{DB: d.DB, Ledger: d.Ledger, Prefs: d.Prefs, Listings: d.Listings}
	listingsHandler := &ListingsHandler{Listings: d.Listings, Prefs: d.Prefs, Media: d.Media}
	usersHandler := &UsersHandler{DB: d.DB, AdminEmails: d.Auth.AdminEmails}

	// Each limited route group has its own per-IP budget.
	limiter := func() func(http.Handler) http.Handler {
		return httprate.LimitByIP(rateLimit, time.Minute)
	}
	signupLimit := limiter()
	loginLimit := limiter()
	resetLimit := limiter()
	submitLimit := limiter()
	uploadLimit := limiter()

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/media/{name}", listingsHandler.ServeMedia)

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(d.JWTSecret, d.DB))
		r.Use(ResolveRole(d.DB, d.Auth.AdminEmails))

		// Public.
		r.With(signupLimit).Post("/auth/signup", authHandler.Signup)
		r.With(loginLimit).Post("/auth/login", authHandler.Login)
		r.With(resetLimit).Post("/auth/reset-request", authHandler.RequestReset)
		r.With(resetLimit).Post("/auth/reset", authHandler.ConfirmReset)

		r.Get("/listings", listingsHandler.List)
		r.Get("/listings/{id}", listingsHandler.Get)
		r.Get("/listings/{id}/reviews", listingsHandler.Reviews)
		r.Get("/stats", listingsHandler.Stats)
		r.Get("/leaderboard", usersHandler.Leaderboard)

		// Signed in.
		r.Group(func(r chi.Router) {
			r.Use(RequireUser)

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/session", authHandler.Session)
			r.Put("/auth/password", authHandler.ChangePassword)

			r.With(submitLimit).Post("/listings", listingsHandler.Create)
			r.Patch("/listings/{id}", listingsHandler.Edit)
			r.Delete("/listings/{id}", listingsHandler.Delete)
			r.Post("/listings/{id}/reviews", listingsHandler.AddReview)
			r.With(uploadLimit).Put("/uploads", listingsHandler.Upload)

			r.Get("/me/standing", meHandler.Standing)
			r.Get("/me/notifications", meHandler.Notifications)
			r.Post("/me/notifications/{id}/seen", meHandler.NotificationSeen)
			r.Get("/me/preferences", meHandler.Preferences)
			r.Post("/me/favorites/{id}", meHandler.ToggleFavorite)
			r.Post("/me/onboarding", meHandler.OnboardingSeen)
			r.Put("/me/language", meHandler.SetLanguage)
		})

		// Admin.
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Post("/listings/{id}/approve", listingsHandler.Approve)
			r.Post("/listings/{id}/reject", listingsHandler.Reject)
			r.Post("/listings/{id}/verify", listingsHandler.Verify)

			r.Get("/users", usersHandler.List)
			r.Put("/users/{id}", usersHandler.Update)
		})
	})

	return r
}
