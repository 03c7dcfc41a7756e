package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/erazemk/dukandaar/internal/listing"
	"github.com/erazemk/dukandaar/internal/validation"
)

// maxBodyBytes caps JSON request bodies. Submissions may carry up to five
// inline images.
const maxBodyBytes = 64 << 20

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

type validationResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields"`
}

// serviceError maps a listing service error onto a response. Unexpected
// errors are logged and reported without detail.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		jsonResponse(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, listing.ErrUnauthorized):
		jsonError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, listing.ErrNotFound):
		jsonError(w, http.StatusNotFound, "listing not found")
	case errors.Is(err, listing.ErrInvalidState):
		jsonError(w, http.StatusConflict, "listing is not in a state that allows this")
	case errors.Is(err, listing.ErrConflict):
		jsonError(w, http.StatusConflict, "listing was changed by someone else")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// validationError writes a 400 for a struct that failed validation.
func validationError(w http.ResponseWriter, ve *validation.Error) {
	jsonResponse(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: ve.Fields})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target)
}
