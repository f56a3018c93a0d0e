package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cutagent/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

// writeError renders err with the status its classification implies.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), services.Unexpected(err))
}

// statusFor maps problems the caller can fix to 422 and everything else,
// including encoder failures, to 500.
func statusFor(err error) int {
	if _, ok := services.AsError(err); !ok {
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrTransient):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
