package http

import (
	"net/http"

	"subtrack/internal/format"
	"subtrack/internal/fx"
	"subtrack/internal/services"
)

type ratesResponse struct {
	fx.Rates
	Display           string `json:"display"`
	UpdatedAgo        string `json:"updatedAgo"`
	CanManualRefresh  bool   `json:"canManualRefresh"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

func (s *Server) ratesResponse(rates fx.Rates) ratesResponse {
	remaining := s.deps.Rates.ManualRefreshRemaining()
	resp := ratesResponse{
		Rates:            rates,
		Display:          format.Rate(rates.UsdToKrw),
		UpdatedAgo:       format.Since(rates.LastUpdated, s.now()),
		CanManualRefresh: remaining == 0,
	}
	if remaining > 0 {
		resp.RetryAfterSeconds = int(remaining.Seconds()) + 1
	}
	return resp
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ratesResponse(s.deps.Rates.Rates(r.Context())))
}

// handleRefreshRates forces an upstream fetch, subject to the provider's
// manual refresh cooldown.
func (s *Server) handleRefreshRates(w http.ResponseWriter, r *http.Request) {
	rates, ok := s.deps.Rates.ManualRefresh(r.Context())
	if !ok {
		w.Header().Set("Retry-After", retryAfter(s.deps.Rates.ManualRefreshRemaining()))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "exchange rate was refreshed recently, try again shortly"})
		return
	}
	s.deps.Dashboard.Reset()
	writeJSON(w, http.StatusOK, s.ratesResponse(rates))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch services.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	settings, err := s.deps.Settings.Update(r.Context(), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
