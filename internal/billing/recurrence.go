package billing

import (
	"sort"
	"time"

	"subtrack/internal/core"
)

// NextPaymentDate returns the first charge date strictly after ref's day.
// The subscription is assumed to have passed core.Subscription.Validate.
func NextPaymentDate(sub core.Subscription, ref time.Time) time.Time {
	return stepperOrMonthly(sub.BillingCycle).Next(sub, ref)
}

// OccurrencesInRange lists every charge date in [start, end], ascending.
//
// The window is narrowed to the subscription's effective start and, when the
// subscription has ended, to its end day (inclusive). An empty window yields
// nil.
func OccurrencesInRange(sub core.Subscription, start, end time.Time) []time.Time {
	lower := core.StartOfDay(start)
	upper := core.StartOfDay(end)

	if eff := core.DayIn(sub.EffectiveStart(), lower.Location()); eff.After(lower) {
		lower = eff
	}
	if sub.EndedAt != nil {
		if ended := core.DayIn(*sub.EndedAt, upper.Location()); ended.Before(upper) {
			upper = ended
		}
	}
	if lower.After(upper) {
		return nil
	}

	step := stepperOrMonthly(sub.BillingCycle)
	var out []time.Time
	for d := step.Next(sub, core.AddDays(lower, -1)); !d.After(upper); d = step.Next(sub, d) {
		out = append(out, d)
	}
	return out
}

// PaymentEvents maps the occurrences in [start, end] to events, dropping
// those that fall inside the free trial.
func PaymentEvents(sub core.Subscription, start, end time.Time) []core.PaymentEvent {
	dates := OccurrencesInRange(sub, start, end)
	events := make([]core.PaymentEvent, 0, len(dates))
	for _, d := range dates {
		if sub.IsFreeOn(d) {
			continue
		}
		events = append(events, core.PaymentEvent{
			SubscriptionID: sub.ID,
			Name:           sub.Name,
			Category:       sub.Category,
			Date:           d,
			Amount:         sub.Amount,
			Currency:       sub.Currency,
			BillingCycle:   sub.BillingCycle,
		})
	}
	return events
}

// GenerateUpcomingEvents returns the paid charges of active subscriptions in
// [today, today+horizonDays], sorted by date, then name, then id.
func GenerateUpcomingEvents(subs []core.Subscription, horizonDays int, today time.Time) []core.PaymentEvent {
	if horizonDays < 0 {
		return nil
	}
	start := core.StartOfDay(today)
	end := core.AddDays(start, horizonDays)

	var events []core.PaymentEvent
	for _, s := range subs {
		if !s.IsActive {
			continue
		}
		events = append(events, PaymentEvents(s, start, end)...)
	}
	SortEvents(events)
	return events
}

// SortEvents orders events deterministically.
func SortEvents(events []core.PaymentEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.SubscriptionID < b.SubscriptionID
	})
}

// DaysUntilPayment is the number of calendar days from today to the next
// charge. It is never zero: a charge due today counts as the next cycle's.
func DaysUntilPayment(sub core.Subscription, today time.Time) int {
	from := core.StartOfDay(today)
	return core.DaysBetween(from, NextPaymentDate(sub, from))
}
