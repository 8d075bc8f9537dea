package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boardhub/tokenauth"
)

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeError maps err to a status code and writes only its reason, never
// the error text.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": tokenauth.Reason(err)})
}

func statusFor(err error) int {
	switch {
	case tokenauth.IsTokenError(err):
		return http.StatusBadRequest
	case errors.Is(err, tokenauth.ErrInvalidCredentials), errors.Is(err, tokenauth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, tokenauth.ErrLoginRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, tokenauth.ErrStoreUnavailable), errors.Is(err, tokenauth.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, tokenauth.ErrInvalidIdentity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
