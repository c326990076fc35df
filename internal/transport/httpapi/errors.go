package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/recallion/recallion/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFromError maps the domain sentinels onto HTTP status codes. Rate limit
// and billing exhaustion keep their upstream codes so clients can tell them
// apart.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrBillingRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, core.ErrUpstream),
		errors.Is(err, core.ErrMalformedResponse),
		errors.Is(err, core.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
