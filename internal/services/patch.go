package services

import (
	"bytes"
	"encoding/json"
	"time"

	"subtrack/internal/core"
)

// Nullable distinguishes an absent JSON key (Set=false) from an explicit
// null (Set=true, Value=nil), so a patch can clear optional fields.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Null returns a Nullable that clears the field.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

// Some returns a Nullable that sets the field to v.
func Some[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) apply(dst **T) {
	if !n.Set {
		return
	}
	if n.Value == nil {
		*dst = nil
		return
	}
	v := *n.Value
	*dst = &v
}

// SubscriptionPatch is a partial update. Nil pointers leave the field as is.
// id, createdAt and the lifecycle fields are not patchable; use End and
// Reactivate for those.
type SubscriptionPatch struct {
	Name            *string             `json:"name"`
	Category        *core.Category      `json:"category"`
	Amount          *float64            `json:"amount"`
	Currency        *core.Currency      `json:"currency"`
	BillingCycle    *core.BillingCycle  `json:"billingCycle"`
	BillingDay      *int                `json:"billingDay"`
	BillingMonth    *int                `json:"billingMonth"`
	FreeUntil       Nullable[time.Time] `json:"freeUntil"`
	StartedAt       Nullable[time.Time] `json:"startedAt"`
	PromoAmount     Nullable[float64]   `json:"promoAmount"`
	PromoUntil      Nullable[time.Time] `json:"promoUntil"`
	PaymentMethodID Nullable[string]    `json:"paymentMethodId"`
	ServiceURL      *string             `json:"serviceUrl"`
	Notes           *string             `json:"notes"`
	IsPaid          *bool               `json:"isPaid"`
}

// Apply merges the patch into s and returns the result. s is not modified.
func (p SubscriptionPatch) Apply(s core.Subscription) core.Subscription {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.Amount != nil {
		s.Amount = *p.Amount
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.BillingCycle != nil {
		s.BillingCycle = *p.BillingCycle
	}
	if p.BillingDay != nil {
		s.BillingDay = *p.BillingDay
	}
	if p.BillingMonth != nil {
		s.BillingMonth = *p.BillingMonth
	}
	p.FreeUntil.apply(&s.FreeUntil)
	p.StartedAt.apply(&s.StartedAt)
	p.PromoAmount.apply(&s.PromoAmount)
	p.PromoUntil.apply(&s.PromoUntil)
	p.PaymentMethodID.apply(&s.PaymentMethodID)
	if p.ServiceURL != nil {
		s.ServiceURL = *p.ServiceURL
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	if p.IsPaid != nil {
		s.IsPaid = *p.IsPaid
	}
	if s.BillingCycle == core.Monthly {
		s.BillingMonth = 0
	}
	return s
}

// IsEmpty reports whether the patch changes nothing.
func (p SubscriptionPatch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.Amount == nil && p.Currency == nil &&
		p.BillingCycle == nil && p.BillingDay == nil && p.BillingMonth == nil &&
		!p.FreeUntil.Set && !p.StartedAt.Set && !p.PromoAmount.Set && !p.PromoUntil.Set &&
		!p.PaymentMethodID.Set && p.ServiceURL == nil && p.Notes == nil && p.IsPaid == nil
}

// PaymentMethodPatch is a partial update of a payment method.
type PaymentMethodPatch struct {
	Name  *string                 `json:"name"`
	Type  *core.PaymentMethodType `json:"type"`
	Last4 *string                 `json:"last4"`
	Color *string                 `json:"color"`
}

func (p PaymentMethodPatch) Apply(m core.PaymentMethod) core.PaymentMethod {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Last4 != nil {
		m.Last4 = *p.Last4
	}
	if p.Color != nil {
		m.Color = *p.Color
	}
	return m
}
