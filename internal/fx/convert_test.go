package fx

import (
	"math"
	"testing"
	"time"

	"subtrack/internal/core"
)

func TestConvert(t *testing.T) {
	rates := NewRates(1300, time.Now(), "test")

	cases := []struct {
		name     string
		amount   float64
		from, to core.Currency
		want     float64
	}{
		{"identity usd", 15.99, core.USD, core.USD, 15.99},
		{"identity krw", 10990, core.KRW, core.KRW, 10990},
		{"usd to krw", 10, core.USD, core.KRW, 13000},
		{"krw to usd", 13000, core.KRW, core.USD, 10},
		{"unknown pair", 7, "EUR", core.USD, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Convert(tc.amount, tc.from, tc.to, rates)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Convert(%v, %s, %s) = %v, want %v", tc.amount, tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	rates := NewRates(1387.25, time.Now(), "test")
	for _, amt := range []float64{0.99, 15.99, 250, 12345.67} {
		back := Convert(Convert(amt, core.USD, core.KRW, rates), core.KRW, core.USD, rates)
		if math.Abs(back-amt)/amt > 1e-9 {
			t.Fatalf("round trip of %v gave %v", amt, back)
		}
	}
}
