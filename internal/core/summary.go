package core

import "time"

// CategoryTotals maps every category to an amount in the display currency.
type CategoryTotals map[Category]float64

// NewCategoryTotals returns totals with all four categories present.
func NewCategoryTotals() CategoryTotals {
	t := make(CategoryTotals, 4)
	for _, c := range AllCategories() {
		t[c] = 0
	}
	return t
}

func (t CategoryTotals) Add(c Category, v float64) {
	t[c] += v
}

// Sum adds the categories in a fixed order so repeated calls agree bit for bit.
func (t CategoryTotals) Sum() float64 {
	var total float64
	for _, c := range AllCategories() {
		total += t[c]
	}
	return total
}

// MonthlyBreakdownItem is the paid total of one calendar month.
type MonthlyBreakdownItem struct {
	Year       int            `json:"year"`
	Month      int            `json:"month"` // 1-12
	Total      float64        `json:"total"`
	ByCategory CategoryTotals `json:"byCategory"`
}

// PaymentEvent is one scheduled charge of a subscription.
type PaymentEvent struct {
	SubscriptionID string       `json:"subscriptionId"`
	Name           string       `json:"name"`
	Category       Category     `json:"category"`
	Date           time.Time    `json:"date"`
	Amount         float64      `json:"amount"`
	Currency       Currency     `json:"currency"`
	BillingCycle   BillingCycle `json:"billingCycle"`
}
