package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/services"
)

// errBadRequest marks malformed input that never reached the services.
var errBadRequest = errors.New("bad request")

// validationErrors are the domain errors a client can fix by changing the
// request.
var validationErrors = []error{
	errBadRequest,
	core.ErrEmptyName,
	core.ErrNameTooLong,
	core.ErrInvalidCategory,
	core.ErrInvalidAmount,
	core.ErrInvalidCurrency,
	core.ErrInvalidBillingCycle,
	core.ErrInvalidBillingDay,
	core.ErrInvalidBillingMonth,
	core.ErrInvalidPromoAmount,
	core.ErrInvalidMethodType,
	core.ErrInvalidLast4,
	core.ErrInvalidSettings,
	services.ErrUnknownPaymentMethod,
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status. Server errors are logged and their
// details are not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Method+" "+r.URL.Path, nil)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
