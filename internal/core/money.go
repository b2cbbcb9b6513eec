// Package core provides the domain model shared by every other package.
//
// This file contains currency definitions and amount parsing for user input.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	USD Currency = "USD"
	KRW Currency = "KRW"
)

type Currency string

func (c Currency) IsValid() bool {
	return c == USD || c == KRW
}

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	if c == KRW {
		return "₩"
	}
	return "$"
}

// FxRateCache is the persisted copy of the last successfully fetched rate.
type FxRateCache struct {
	UsdToKrw    float64   `json:"usdToKrw"`
	KrwToUsd    float64   `json:"krwToUsd"`
	LastUpdated time.Time `json:"lastUpdated"`
	Source      string    `json:"source"`
}

// ParseAmount converts a user supplied decimal string to an amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Signs,
// thousands separators and zero are rejected.
//
// Examples:
//
//	ParseAmount("15.99")  -> 15.99, nil
//	ParseAmount("10990")  -> 10990, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	v, _ := d.Float64()
	return v, nil
}
