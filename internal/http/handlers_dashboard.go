package http

import (
	"net/http"

	"subtrack/internal/calendar"
	"subtrack/internal/core"
	"subtrack/internal/format"
	"subtrack/internal/services"
)

// maxScheduleDays bounds the ?days= window of the schedule and calendar feed.
const maxScheduleDays = 3 * 366

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	cur, err := queryCurrency(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dash, err := s.deps.Dashboard.Build(r.Context(), cur)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	cur, err := queryCurrency(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := queryInt(r, "days", 0, maxScheduleDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := s.deps.Dashboard.Schedule(r.Context(), cur, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// totalsResponse is a Totals with its amount formatted for display.
type totalsResponse struct {
	services.Totals
	Formatted string `json:"formatted"`
}

func (s *Server) handleYearToDate(w http.ResponseWriter, r *http.Request) {
	cur, err := queryCurrency(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Dashboard.YearToDate(r.Context(), cur)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsResponse{Totals: t, Formatted: format.Currency(t.Total, t.Currency)})
}

func (s *Server) handleCurrentMonth(w http.ResponseWriter, r *http.Request) {
	cur, err := queryCurrency(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Dashboard.CurrentMonth(r.Context(), cur)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsResponse{Totals: t, Formatted: format.Currency(t.Total, t.Currency)})
}

type breakdownResponse struct {
	Year     int                         `json:"year"`
	Currency core.Currency               `json:"currency"`
	Total    float64                     `json:"total"`
	Months   []core.MonthlyBreakdownItem `json:"months"`
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	cur, err := queryCurrency(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	year, err := queryInt(r, "year", s.now().Year(), 9999)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, cur, err := s.deps.Dashboard.Breakdown(r.Context(), cur, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := breakdownResponse{Year: year, Currency: cur, Months: items}
	for _, item := range items {
		resp.Total += item.Total
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCalendar serves upcoming charges as an iCalendar feed that calendar
// apps can subscribe to.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0, maxScheduleDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := s.deps.Dashboard.Schedule(r.Context(), "", days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	events := make([]core.PaymentEvent, 0, len(payments))
	for _, p := range payments {
		events = append(events, p.PaymentEvent)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="subtrack.ics"`)
	if err := calendar.Write(w, events, s.now()); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to encode calendar", "error", err)
	}
}
