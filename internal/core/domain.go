package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	CategoryAI         Category = "AI"
	CategoryEntertain  Category = "ENTERTAIN"
	CategoryMembership Category = "MEMBERSHIP"
	CategoryOther      Category = "OTHER"
)

const (
	Monthly BillingCycle = "MONTHLY"
	Yearly  BillingCycle = "YEARLY"
)

const (
	CreditCard  PaymentMethodType = "credit_card"
	DebitCard   PaymentMethodType = "debit_card"
	BankAccount PaymentMethodType = "bank_account"
	OtherMethod PaymentMethodType = "other"
)

type (
	Category          string
	BillingCycle      string
	PaymentMethodType string

	// Subscription is a recurring payment tracked by the user. Optional instants
	// are nil when absent.
	Subscription struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		Category     Category     `json:"category"`
		Amount       float64      `json:"amount"`
		Currency     Currency     `json:"currency"`
		BillingCycle BillingCycle `json:"billingCycle"`
		BillingDay   int          `json:"billingDay"`             // 1-31
		BillingMonth int          `json:"billingMonth,omitempty"` // 1-12, YEARLY only
		IsActive     bool         `json:"isActive"`
		CreatedAt    time.Time    `json:"createdAt"`
		UpdatedAt    time.Time    `json:"updatedAt"`
		EndedAt      *time.Time   `json:"endedAt"`
		FreeUntil    *time.Time   `json:"freeUntil"`
		StartedAt    *time.Time   `json:"startedAt"`

		// Promo pricing is stored but no aggregate reads it.
		PromoAmount *float64   `json:"promoAmount"`
		PromoUntil  *time.Time `json:"promoUntil"`

		PaymentMethodID *string `json:"paymentMethodId"`
		ServiceURL      string  `json:"serviceUrl,omitempty"`
		Notes           string  `json:"notes,omitempty"`
		IsPaid          bool    `json:"isPaid"`
	}

	PaymentMethod struct {
		ID        string            `json:"id"`
		Name      string            `json:"name"`
		Type      PaymentMethodType `json:"type"`
		Last4     string            `json:"last4,omitempty"`
		Color     string            `json:"color,omitempty"`
		CreatedAt time.Time         `json:"createdAt"`
	}
)

var (
	ErrNotFound            = errors.New("not found")
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long (max 200 characters)")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInvalidBillingCycle = errors.New("invalid billing cycle")
	ErrInvalidBillingDay   = errors.New("invalid billing day")
	ErrInvalidBillingMonth = errors.New("invalid billing month")
	ErrInvalidPromoAmount  = errors.New("invalid promo amount")
	ErrInvalidMethodType   = errors.New("invalid payment method type")
	ErrInvalidLast4        = errors.New("last4 must be exactly 4 digits")
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{CategoryAI, CategoryEntertain, CategoryMembership, CategoryOther}
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryAI, CategoryEntertain, CategoryMembership, CategoryOther:
		return true
	}
	return false
}

func (b BillingCycle) IsValid() bool {
	return b == Monthly || b == Yearly
}

func (t PaymentMethodType) IsValid() bool {
	switch t {
	case CreditCard, DebitCard, BankAccount, OtherMethod:
		return true
	}
	return false
}

// Validate checks the structural invariants every other package relies on.
// The recurrence engine assumes a subscription has passed this check.
func (s Subscription) Validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	if !s.Category.IsValid() {
		return ErrInvalidCategory
	}
	if !validAmount(s.Amount) {
		return ErrInvalidAmount
	}
	if !s.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	if !s.BillingCycle.IsValid() {
		return ErrInvalidBillingCycle
	}
	if s.BillingDay < 1 || s.BillingDay > 31 {
		return ErrInvalidBillingDay
	}
	if s.BillingCycle == Yearly && (s.BillingMonth < 1 || s.BillingMonth > 12) {
		return ErrInvalidBillingMonth
	}
	if s.PromoAmount != nil && !validAmount(*s.PromoAmount) {
		return ErrInvalidPromoAmount
	}
	return nil
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// EffectiveStart is the first day occurrences may be counted from.
func (s Subscription) EffectiveStart() time.Time {
	if s.StartedAt != nil {
		return StartOfDay(*s.StartedAt)
	}
	return StartOfDay(s.CreatedAt)
}

// IsFreeOn reports whether an occurrence on date falls inside the free-trial
// window. The freeUntil day itself is the first paid day.
func (s Subscription) IsFreeOn(date time.Time) bool {
	if s.FreeUntil == nil {
		return false
	}
	day := StartOfDay(date)
	return day.Before(DayIn(*s.FreeUntil, day.Location()))
}

// InFreeTrial reports whether the subscription is still in its trial as of now.
func (s Subscription) InFreeTrial(now time.Time) bool {
	return s.IsFreeOn(now)
}

// HasEnded reports whether the subscription carries an end date.
func (s Subscription) HasEnded() bool {
	return s.EndedAt != nil
}

func (m PaymentMethod) Validate() error {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	if !m.Type.IsValid() {
		return ErrInvalidMethodType
	}
	if m.Last4 != "" {
		if len(m.Last4) != 4 {
			return ErrInvalidLast4
		}
		for _, r := range m.Last4 {
			if r < '0' || r > '9' {
				return ErrInvalidLast4
			}
		}
	}
	return nil
}
