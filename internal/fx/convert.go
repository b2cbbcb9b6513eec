// Package fx converts amounts between the supported currencies and supplies
// the rate snapshot the aggregation layer converts with.
package fx

import (
	"time"

	"subtrack/internal/core"
)

// Rates is a complete rate snapshot. Callers always receive one, even when
// the upstream source is down.
type Rates struct {
	UsdToKrw    float64   `json:"usdToKrw"`
	KrwToUsd    float64   `json:"krwToUsd"`
	LastUpdated time.Time `json:"lastUpdated"`
	Source      string    `json:"source"`
	IsStale     bool      `json:"isStale"`
	IsFallback  bool      `json:"isFallback"`
}

// Convert converts amount from one currency to another. Identical currencies
// return amount untouched and unknown pairs fall back to identity.
func Convert(amount float64, from, to core.Currency, rates Rates) float64 {
	if from == to {
		return amount
	}
	switch {
	case from == core.USD && to == core.KRW:
		return amount * rates.UsdToKrw
	case from == core.KRW && to == core.USD:
		return amount * rates.KrwToUsd
	}
	return amount
}

// NewRates builds a snapshot from a USD->KRW rate, deriving the reciprocal.
func NewRates(usdToKrw float64, lastUpdated time.Time, source string) Rates {
	return Rates{
		UsdToKrw:    usdToKrw,
		KrwToUsd:    1 / usdToKrw,
		LastUpdated: lastUpdated,
		Source:      source,
	}
}
