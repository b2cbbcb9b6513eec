// Package format renders amounts and dates for display. Rounding happens
// only here; the aggregation layer keeps full precision.
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"subtrack/internal/core"
)

// Currency formats amount with its symbol: KRW as whole won, USD with two
// decimals, both with thousands separators.
//
//	Currency(1234567.4, core.KRW) -> "₩1,234,567"
//	Currency(1234.5, core.USD)    -> "$1,234.50"
func Currency(amount float64, cur core.Currency) string {
	if cur == core.KRW {
		return withSymbol(decimal.NewFromFloat(amount).Round(0), cur, 0)
	}
	return withSymbol(decimal.NewFromFloat(amount).Round(2), cur, 2)
}

// Compact drops the decimals for both currencies.
func Compact(amount float64, cur core.Currency) string {
	return withSymbol(decimal.NewFromFloat(amount).Round(0), cur, 0)
}

// KRWCompact shows amounts from 10,000 won up in units of 만 (ten thousand).
func KRWCompact(amount float64) string {
	if amount >= 10000 {
		man := decimal.NewFromFloat(amount).Div(decimal.NewFromInt(10000)).Round(0)
		return "₩" + humanize.Comma(man.IntPart()) + "만"
	}
	return Compact(amount, core.KRW)
}

func withSymbol(d decimal.Decimal, cur core.Currency, places int32) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole := d.Truncate(0)
	out := sign + cur.Symbol() + humanize.Comma(whole.IntPart())
	if places > 0 {
		// StringFixed of the fraction is "0.xx"; keep ".xx".
		out += d.Sub(whole).StringFixed(places)[1:]
	}
	return out
}

// Rate renders a USD->KRW rate the way the FX panel shows it.
func Rate(usdToKrw float64) string {
	return fmt.Sprintf("1 USD = %s KRW", humanize.CommafWithDigits(decimal.NewFromFloat(usdToKrw).Round(2).InexactFloat64(), 2))
}

// Since describes how long ago t was, e.g. "3 hours ago".
func Since(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// DateShort is "Mar 5" in English and "3월 5일" in Korean.
func DateShort(t time.Time, lang core.Language) string {
	if lang == core.LanguageKO {
		return fmt.Sprintf("%d월 %d일", int(t.Month()), t.Day())
	}
	return t.Format("Jan 2")
}

// DateMedium is "Mar 5, 2024" in English and "2024년 3월 5일" in Korean.
func DateMedium(t time.Time, lang core.Language) string {
	if lang == core.LanguageKO {
		return fmt.Sprintf("%d년 %d월 %d일", t.Year(), int(t.Month()), t.Day())
	}
	return t.Format("Jan 2, 2006")
}

// MonthName is "March" in English and "3월" in Korean.
func MonthName(month int, lang core.Language) string {
	if lang == core.LanguageKO {
		return fmt.Sprintf("%d월", month)
	}
	return time.Month(month).String()
}

// FxUpdateTime is "Mar 5, 14:03" in English and "3월 5일 14:03" in Korean.
func FxUpdateTime(t time.Time, lang core.Language) string {
	if lang == core.LanguageKO {
		return fmt.Sprintf("%d월 %d일 %s", int(t.Month()), t.Day(), t.Format("15:04"))
	}
	return t.Format("Jan 2, 15:04")
}
