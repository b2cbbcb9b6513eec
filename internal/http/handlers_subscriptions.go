package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"subtrack/internal/billing"
	"subtrack/internal/calc"
	"subtrack/internal/core"
	"subtrack/internal/services"
	"subtrack/internal/storage"
)

// subscriptionView adds the figures a list row shows next to each
// subscription. Ended subscriptions have no next payment.
type subscriptionView struct {
	core.Subscription
	NextPaymentDate  string  `json:"nextPaymentDate,omitempty"`
	DaysUntilPayment *int    `json:"daysUntilPayment,omitempty"`
	MonthlyAmount    float64 `json:"monthlyAmount"`
}

func (s *Server) view(sub core.Subscription) subscriptionView {
	v := subscriptionView{
		Subscription:  sub,
		MonthlyAmount: calc.MonthlyEquivalentAmount(sub),
	}
	if sub.IsActive && !sub.HasEnded() {
		today := s.now()
		days := billing.DaysUntilPayment(sub, today)
		v.NextPaymentDate = billing.NextPaymentDate(sub, today).Format(storage.DateLayout)
		v.DaysUntilPayment = &days
	}
	return v
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var subs []core.Subscription
	if activeOnly {
		subs, err = s.deps.Subscriptions.ListActive(r.Context())
	} else {
		subs, err = s.deps.Subscriptions.List(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		out = append(out, s.view(sub))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.deps.Subscriptions.Add(r.Context(), req.subscription())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/subscriptions/"+sub.ID)
	writeJSON(w, http.StatusCreated, s.view(sub))
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.deps.Subscriptions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(sub))
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.deps.Subscriptions.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(sub))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Subscriptions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEndSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.deps.Subscriptions.End(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(sub))
}

func (s *Server) handleReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.deps.Subscriptions.Reactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(sub))
}

func (s *Server) handleListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := s.deps.Subscriptions.ListPaymentMethods(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if methods == nil {
		methods = []core.PaymentMethod{}
	}
	writeJSON(w, http.StatusOK, methods)
}

func (s *Server) handleCreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req paymentMethodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.deps.Subscriptions.AddPaymentMethod(r.Context(), core.PaymentMethod{
		Name:  req.Name,
		Type:  req.Type,
		Last4: req.Last4,
		Color: req.Color,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleUpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var patch services.PaymentMethodPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.deps.Subscriptions.UpdatePaymentMethod(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Subscriptions.DeletePaymentMethod(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
