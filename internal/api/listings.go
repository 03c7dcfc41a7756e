package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/dukandaar/internal/imaging"
	"github.com/erazemk/dukandaar/internal/listing"
	"github.com/erazemk/dukandaar/internal/media"
	"github.com/erazemk/dukandaar/internal/metrics"
	"github.com/erazemk/dukandaar/internal/prefs"
)

// ListingsHandler handles listing, review and upload endpoints.
type ListingsHandler struct {
	Listings *listing.Service
	Prefs    *prefs.Store
	Media    *media.Store
}

// List handles GET /api/listings.
//
// Query parameters: view (map, approved, mine, pending, rejected, all),
// category, q, favorites=true, recent=true.
func (h *ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	id := GetIdentity(r.Context())

	q := listing.Query{
		View:          params.Get("view"),
		Category:      params.Get("category"),
		Search:        params.Get("q"),
		OnlyFavorites: params.Get("favorites") == "true",
		Recent:        params.Get("recent") == "true",
	}
	if q.OnlyFavorites && id.Authenticated() {
		p, err := h.Prefs.Get(r.Context(), id.UserID)
		if err != nil {
			slog.Error("loading favorites", "user_id", id.UserID, "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		q.Favorites = p.Favorites
	}

	ls, err := h.Listings.List(r.Context(), id, q)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, ls)
}

// Stats handles GET /api/stats. Only approved listings are counted.
func (h *ListingsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	all, err := h.Listings.All(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, listing.StatsFor(listing.Approved(all)))
}

// Create handles POST /api/listings.
func (h *ListingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in listing.Input
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Listings.Submit(r.Context(), GetIdentity(r.Context()), in)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

// Get handles GET /api/listings/{id}.
func (h *ListingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.Listings.Get(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Edit handles PATCH /api/listings/{id}.
func (h *ListingsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var c listing.Changes
	if err := decodeJSON(w, r, &c); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.Listings.Edit(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "id"), c)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Delete handles DELETE /api/listings/{id}.
func (h *ListingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := GetIdentity(r.Context())
	listingID := chi.URLParam(r, "id")

	if err := h.Listings.Remove(r.Context(), id, listingID); err != nil {
		serviceError(w, r, err)
		return
	}
	if err := h.Prefs.RemoveFavorite(r.Context(), id.UserID, listingID); err != nil {
		slog.Warn("removing favorite", "user_id", id.UserID, "listing_id", listingID, "error", err)
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "listing removed"})
}

// Approve handles POST /api/listings/{id}/approve.
func (h *ListingsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	l, err := h.Listings.Approve(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Reject handles POST /api/listings/{id}/reject.
func (h *ListingsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	l, err := h.Listings.Reject(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Verify handles POST /api/listings/{id}/verify.
func (h *ListingsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	l, err := h.Listings.Verify(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Reviews handles GET /api/listings/{id}/reviews.
func (h *ListingsHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.Listings.Reviews(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, reviews)
}

// AddReview handles POST /api/listings/{id}/reviews.
func (h *ListingsHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	var in listing.ReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Listings.AddReview(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

// Upload handles PUT /api/uploads. The multipart field "image" is resized,
// re-encoded and stored; the response carries its URL for use in a
// submission.
func (h *ListingsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxInputBytes+1<<20)

	if err := r.ParseMultipartForm(imaging.MaxInputBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read image")
		return
	}

	url, err := h.Media.Upload(r.Context(), GetIdentity(r.Context()).UserID, data)
	if err != nil {
		metrics.ImageUploadFailures.Inc()
		slog.Warn("image upload rejected", "error", err)
		if errors.Is(err, imaging.ErrTooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		jsonError(w, http.StatusBadRequest, "image must be JPEG, PNG, or WebP")
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]string{"url": url})
}

// ServeMedia handles GET /media/{name}.
func (h *ListingsHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	obj, err := h.Media.Get(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, media.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}
	if err != nil {
		slog.Error("reading media", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}

	w.Header().Set("Content-Type", obj.MIME)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.Write(obj.Data)
}
