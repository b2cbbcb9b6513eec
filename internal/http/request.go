package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/services"
)

const maxBodyBytes = 1 << 20

// apiDate accepts a calendar day ("2006-01-02") or a full RFC 3339 instant.
type apiDate time.Time

func (d *apiDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	*d = apiDate(t)
	return nil
}

func (d *apiDate) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := time.Time(*d)
	return &t
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

// decodeJSON reads a single JSON object from the body, rejecting unknown
// fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

type subscriptionRequest struct {
	Name            string            `json:"name"`
	Category        core.Category     `json:"category"`
	Amount          float64           `json:"amount"`
	Currency        core.Currency     `json:"currency"`
	BillingCycle    core.BillingCycle `json:"billingCycle"`
	BillingDay      int               `json:"billingDay"`
	BillingMonth    int               `json:"billingMonth"`
	FreeUntil       *apiDate          `json:"freeUntil"`
	StartedAt       *apiDate          `json:"startedAt"`
	PromoAmount     *float64          `json:"promoAmount"`
	PromoUntil      *apiDate          `json:"promoUntil"`
	PaymentMethodID *string           `json:"paymentMethodId"`
	ServiceURL      string            `json:"serviceUrl"`
	Notes           string            `json:"notes"`
	IsPaid          bool              `json:"isPaid"`
}

func (req subscriptionRequest) subscription() core.Subscription {
	return core.Subscription{
		Name:            req.Name,
		Category:        req.Category,
		Amount:          req.Amount,
		Currency:        req.Currency,
		BillingCycle:    req.BillingCycle,
		BillingDay:      req.BillingDay,
		BillingMonth:    req.BillingMonth,
		FreeUntil:       req.FreeUntil.timePtr(),
		StartedAt:       req.StartedAt.timePtr(),
		PromoAmount:     req.PromoAmount,
		PromoUntil:      req.PromoUntil.timePtr(),
		PaymentMethodID: req.PaymentMethodID,
		ServiceURL:      req.ServiceURL,
		Notes:           req.Notes,
		IsPaid:          req.IsPaid,
	}
}

// subscriptionPatchRequest mirrors services.SubscriptionPatch with dates in
// the API's accepted formats.
type subscriptionPatchRequest struct {
	Name            *string                    `json:"name"`
	Category        *core.Category             `json:"category"`
	Amount          *float64                   `json:"amount"`
	Currency        *core.Currency             `json:"currency"`
	BillingCycle    *core.BillingCycle         `json:"billingCycle"`
	BillingDay      *int                       `json:"billingDay"`
	BillingMonth    *int                       `json:"billingMonth"`
	FreeUntil       services.Nullable[apiDate] `json:"freeUntil"`
	StartedAt       services.Nullable[apiDate] `json:"startedAt"`
	PromoAmount     services.Nullable[float64] `json:"promoAmount"`
	PromoUntil      services.Nullable[apiDate] `json:"promoUntil"`
	PaymentMethodID services.Nullable[string]  `json:"paymentMethodId"`
	ServiceURL      *string                    `json:"serviceUrl"`
	Notes           *string                    `json:"notes"`
	IsPaid          *bool                      `json:"isPaid"`
}

func (req subscriptionPatchRequest) patch() services.SubscriptionPatch {
	return services.SubscriptionPatch{
		Name:            req.Name,
		Category:        req.Category,
		Amount:          req.Amount,
		Currency:        req.Currency,
		BillingCycle:    req.BillingCycle,
		BillingDay:      req.BillingDay,
		BillingMonth:    req.BillingMonth,
		FreeUntil:       nullableTime(req.FreeUntil),
		StartedAt:       nullableTime(req.StartedAt),
		PromoAmount:     req.PromoAmount,
		PromoUntil:      nullableTime(req.PromoUntil),
		PaymentMethodID: req.PaymentMethodID,
		ServiceURL:      req.ServiceURL,
		Notes:           req.Notes,
		IsPaid:          req.IsPaid,
	}
}

func nullableTime(n services.Nullable[apiDate]) services.Nullable[time.Time] {
	if !n.Set || n.Value == nil {
		return services.Nullable[time.Time]{Set: n.Set}
	}
	return services.Some(time.Time(*n.Value))
}

type paymentMethodRequest struct {
	Name  string                 `json:"name"`
	Type  core.PaymentMethodType `json:"type"`
	Last4 string                 `json:"last4"`
	Color string                 `json:"color"`
}

// queryCurrency returns the requested display currency, or "" to let the
// settings decide.
func queryCurrency(r *http.Request) (core.Currency, error) {
	v := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if v == "" {
		return "", nil
	}
	cur := core.Currency(v)
	if !cur.IsValid() {
		return "", fmt.Errorf("%w: currency %q", core.ErrInvalidCurrency, v)
	}
	return cur, nil
}

// queryInt parses a positive integer parameter, returning def when absent.
func queryInt(r *http.Request, name string, def, max int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("%w: %s must be an integer between 1 and %d", errBadRequest, name, max)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errBadRequest, name)
	}
	return b, nil
}
