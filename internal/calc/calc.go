// Package calc aggregates subscription charges into the figures shown on the
// dashboard and in reports.
//
// Every entry point takes the instant or year it computes for, so repeated
// calls during one view agree with each other. Amounts are never rounded here.
package calc

import (
	"time"

	"subtrack/internal/billing"
	"subtrack/internal/core"
	"subtrack/internal/fx"
)

// MonthlyEquivalentAmount spreads a yearly charge over twelve months.
func MonthlyEquivalentAmount(sub core.Subscription) float64 {
	if sub.BillingCycle == core.Yearly {
		return sub.Amount / 12
	}
	return sub.Amount
}

func MonthlyEquivalentAmountConverted(sub core.Subscription, cur core.Currency, rates fx.Rates) float64 {
	return fx.Convert(MonthlyEquivalentAmount(sub), sub.Currency, cur, rates)
}

// countsTowardMonthly reports whether sub contributes to the current monthly
// outflow: active and not in a free trial as of now.
func countsTowardMonthly(sub core.Subscription, now time.Time) bool {
	return sub.IsActive && !sub.InFreeTrial(now)
}

// TotalMonthlyAmount is the monthly outflow of active subscriptions, leaving
// out those still in a free trial.
func TotalMonthlyAmount(subs []core.Subscription, cur core.Currency, rates fx.Rates, now time.Time) float64 {
	return CategoryMonthlyTotals(subs, cur, rates, now).Sum()
}

func CategoryMonthlyTotals(subs []core.Subscription, cur core.Currency, rates fx.Rates, now time.Time) core.CategoryTotals {
	totals := core.NewCategoryTotals()
	for _, s := range subs {
		if countsTowardMonthly(s, now) {
			totals.Add(s.Category, MonthlyEquivalentAmountConverted(s, cur, rates))
		}
	}
	return totals
}

func YearlyEquivalentAmount(sub core.Subscription) float64 {
	if sub.BillingCycle == core.Monthly {
		return sub.Amount * 12
	}
	return sub.Amount
}

func YearlyEquivalentAmountConverted(sub core.Subscription, cur core.Currency, rates fx.Rates) float64 {
	return fx.Convert(YearlyEquivalentAmount(sub), sub.Currency, cur, rates)
}

// TotalYearlyAmount is the annual run-rate of active subscriptions. Unlike
// TotalMonthlyAmount it counts subscriptions that are in a free trial.
func TotalYearlyAmount(subs []core.Subscription, cur core.Currency, rates fx.Rates) float64 {
	var total float64
	for _, s := range subs {
		if s.IsActive {
			total += YearlyEquivalentAmountConverted(s, cur, rates)
		}
	}
	return total
}

// ComputeOccurrences lists the charge dates of sub in [start, end].
func ComputeOccurrences(sub core.Subscription, start, end time.Time) []time.Time {
	return billing.OccurrencesInRange(sub, start, end)
}

// paidTotals adds the converted charge of every paid occurrence in
// [start, end] to totals.
func paidTotals(totals core.CategoryTotals, subs []core.Subscription, start, end time.Time, cur core.Currency, rates fx.Rates) {
	for _, s := range subs {
		paid := 0
		for _, d := range billing.OccurrencesInRange(s, start, end) {
			if !s.IsFreeOn(d) {
				paid++
			}
		}
		if paid > 0 {
			totals.Add(s.Category, float64(paid)*fx.Convert(s.Amount, s.Currency, cur, rates))
		}
	}
}

// CalculateYTD is what was actually charged from January 1 of now's year up
// to now, over every subscription including ended ones.
func CalculateYTD(subs []core.Subscription, cur core.Currency, rates fx.Rates, now time.Time) float64 {
	return CalculateYTDBreakdown(subs, cur, rates, now).Sum()
}

func CalculateYTDBreakdown(subs []core.Subscription, cur core.Currency, rates fx.Rates, now time.Time) core.CategoryTotals {
	totals := core.NewCategoryTotals()
	paidTotals(totals, subs, core.StartOfYear(now), now, cur, rates)
	return totals
}

// CalculateCurrentMonthTotal covers past and upcoming charges of now's month.
func CalculateCurrentMonthTotal(subs []core.Subscription, cur core.Currency, rates fx.Rates, now time.Time) float64 {
	return CalculateCurrentMonthCategoryTotals(subs, cur, rates, now).Sum()
}

func CalculateCurrentMonthCategoryTotals(subs []core.Subscription, cur core.Currency, rates fx.Rates, now time.Time) core.CategoryTotals {
	totals := core.NewCategoryTotals()
	paidTotals(totals, subs, core.StartOfMonth(now), core.EndOfMonth(now), cur, rates)
	return totals
}

// CalculateMonthlyBreakdown returns twelve items for year, January first.
// Subscriptions that are inactive without an end date are left out.
func CalculateMonthlyBreakdown(subs []core.Subscription, year int, cur core.Currency, rates fx.Rates) []core.MonthlyBreakdownItem {
	var relevant []core.Subscription
	for _, s := range subs {
		if s.IsActive || s.HasEnded() {
			relevant = append(relevant, s)
		}
	}

	items := make([]core.MonthlyBreakdownItem, 0, 12)
	for m := time.January; m <= time.December; m++ {
		first := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
		byCat := core.NewCategoryTotals()
		paidTotals(byCat, relevant, first, core.EndOfMonth(first), cur, rates)
		items = append(items, core.MonthlyBreakdownItem{
			Year:       year,
			Month:      int(m),
			Total:      byCat.Sum(),
			ByCategory: byCat,
		})
	}
	return items
}

// GroupByCategory buckets subscriptions by category; every key is present.
func GroupByCategory(subs []core.Subscription) map[core.Category][]core.Subscription {
	groups := make(map[core.Category][]core.Subscription, 4)
	for _, c := range core.AllCategories() {
		groups[c] = nil
	}
	for _, s := range subs {
		groups[s.Category] = append(groups[s.Category], s)
	}
	return groups
}

func CountActiveSubscriptions(subs []core.Subscription) int {
	n := 0
	for _, s := range subs {
		if s.IsActive {
			n++
		}
	}
	return n
}

// CategoryPercentages is each category's share of the monthly outflow, in
// percent. All zero when nothing is due.
func CategoryPercentages(subs []core.Subscription, cur core.Currency, rates fx.Rates, now time.Time) core.CategoryTotals {
	totals := CategoryMonthlyTotals(subs, cur, rates, now)
	sum := totals.Sum()
	out := core.NewCategoryTotals()
	if sum == 0 {
		return out
	}
	for c, v := range totals {
		out[c] = v / sum * 100
	}
	return out
}
