package billing

import (
	"testing"
	"time"

	"subtrack/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func monthly(billingDay int) core.Subscription {
	return core.Subscription{
		ID:           "sub-m",
		Name:         "Monthly",
		Category:     core.CategoryAI,
		Amount:       10,
		Currency:     core.USD,
		BillingCycle: core.Monthly,
		BillingDay:   billingDay,
		IsActive:     true,
		CreatedAt:    day(2020, 1, 1),
	}
}

func yearly(month, billingDay int) core.Subscription {
	s := monthly(billingDay)
	s.ID = "sub-y"
	s.Name = "Yearly"
	s.BillingCycle = core.Yearly
	s.BillingMonth = month
	return s
}

func TestNextPaymentDate(t *testing.T) {
	tests := []struct {
		name string
		sub  core.Subscription
		ref  time.Time
		want time.Time
	}{
		{"monthly later this month", monthly(15), day(2024, 3, 10), day(2024, 3, 15)},
		{"monthly same day rolls over", monthly(15), day(2024, 3, 15), day(2024, 4, 15)},
		{"monthly day 31 in leap feb", monthly(31), day(2024, 2, 1), day(2024, 2, 29)},
		{"monthly day 31 in common feb", monthly(31), day(2023, 2, 1), day(2023, 2, 28)},
		{"monthly day 31 after clamp", monthly(31), day(2023, 2, 28), day(2023, 3, 31)},
		{"monthly december to january", monthly(5), day(2024, 12, 20), day(2025, 1, 5)},
		{"monthly ref time of day ignored", monthly(10), time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), day(2024, 4, 10)},
		{"yearly later this year", yearly(6, 1), day(2024, 3, 1), day(2024, 6, 1)},
		{"yearly passed this year", yearly(2, 1), day(2024, 3, 1), day(2025, 2, 1)},
		{"yearly feb 29 in common year", yearly(2, 29), day(2024, 3, 1), day(2025, 2, 28)},
		{"yearly unset month is january", yearly(0, 20), day(2024, 1, 5), day(2024, 1, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextPaymentDate(tt.sub, tt.ref)
			if !got.Equal(tt.want) {
				t.Errorf("NextPaymentDate() = %s, want %s", got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
			if !got.After(core.StartOfDay(tt.ref)) {
				t.Errorf("NextPaymentDate() = %s not strictly after ref", got.Format("2006-01-02"))
			}
		})
	}
}

func TestNextPaymentDateMonotonic(t *testing.T) {
	subs := []core.Subscription{monthly(31), monthly(1), yearly(2, 29), yearly(12, 31)}
	for _, s := range subs {
		prev := NextPaymentDate(s, day(2023, 1, 1))
		for ref := day(2023, 1, 1); ref.Before(day(2026, 1, 1)); ref = core.AddDays(ref, 1) {
			got := NextPaymentDate(s, ref)
			if got.Before(prev) {
				t.Fatalf("%s: next date went backwards at %s", s.Name, ref.Format("2006-01-02"))
			}
			prev = got
		}
	}
}

func TestOccurrencesInRangeThreeMonths(t *testing.T) {
	got := OccurrencesInRange(monthly(15), day(2024, 1, 1), day(2024, 3, 31))
	want := []time.Time{day(2024, 1, 15), day(2024, 2, 15), day(2024, 3, 15)}
	assertDates(t, got, want)
}

func TestOccurrencesInRangeInclusiveBounds(t *testing.T) {
	got := OccurrencesInRange(monthly(15), day(2024, 1, 15), day(2024, 2, 15))
	assertDates(t, got, []time.Time{day(2024, 1, 15), day(2024, 2, 15)})
}

func TestOccurrencesInRangeClampsDay31(t *testing.T) {
	got := OccurrencesInRange(monthly(31), day(2023, 1, 1), day(2023, 4, 30))
	want := []time.Time{day(2023, 1, 31), day(2023, 2, 28), day(2023, 3, 31), day(2023, 4, 30)}
	assertDates(t, got, want)
}

func TestOccurrencesInRangeEndedTruncates(t *testing.T) {
	s := monthly(10)
	s.EndedAt = ptr(time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC))
	s.IsActive = false

	got := OccurrencesInRange(s, day(2024, 1, 1), day(2024, 12, 31))
	want := []time.Time{day(2024, 1, 10), day(2024, 2, 10), day(2024, 3, 10)}
	assertDates(t, got, want)
}

func TestOccurrencesInRangeStartFloor(t *testing.T) {
	s := monthly(5)
	s.CreatedAt = day(2024, 6, 20)
	got := OccurrencesInRange(s, day(2024, 1, 1), day(2024, 8, 31))
	assertDates(t, got, []time.Time{day(2024, 7, 5), day(2024, 8, 5)})

	s.StartedAt = ptr(day(2024, 4, 1))
	got = OccurrencesInRange(s, day(2024, 1, 1), day(2024, 8, 31))
	assertDates(t, got, []time.Time{day(2024, 4, 5), day(2024, 5, 5), day(2024, 6, 5), day(2024, 7, 5), day(2024, 8, 5)})
}

func TestOccurrencesInRangeEmpty(t *testing.T) {
	if got := OccurrencesInRange(monthly(5), day(2024, 5, 1), day(2024, 4, 1)); len(got) != 0 {
		t.Fatalf("expected no occurrences for inverted range, got %v", got)
	}
	s := monthly(5)
	s.EndedAt = ptr(day(2023, 12, 31))
	if got := OccurrencesInRange(s, day(2024, 1, 1), day(2024, 12, 31)); len(got) != 0 {
		t.Fatalf("expected no occurrences after end, got %v", got)
	}
}

func TestOccurrencesInRangeYearlyLeapDay(t *testing.T) {
	s := yearly(2, 29)
	got := OccurrencesInRange(s, day(2023, 1, 1), day(2025, 12, 31))
	want := []time.Time{day(2023, 2, 28), day(2024, 2, 29), day(2025, 2, 28)}
	assertDates(t, got, want)
}

func TestOccurrencesInRangeSortedAndInside(t *testing.T) {
	start, end := day(2022, 3, 17), day(2026, 9, 2)
	for _, s := range []core.Subscription{monthly(1), monthly(29), monthly(31), yearly(2, 29), yearly(11, 30)} {
		got := OccurrencesInRange(s, start, end)
		for i, d := range got {
			if d.Before(start) || d.After(end) {
				t.Fatalf("%s: %s outside range", s.Name, d.Format("2006-01-02"))
			}
			if i > 0 && !d.After(got[i-1]) {
				t.Fatalf("%s: dates not strictly ascending at %d", s.Name, i)
			}
		}
	}
}

func TestPaymentEventsDropFreeTrial(t *testing.T) {
	s := monthly(15)
	s.FreeUntil = ptr(day(2024, 2, 15))

	events := PaymentEvents(s, day(2024, 1, 1), day(2024, 3, 31))
	if len(events) != 2 {
		t.Fatalf("expected 2 paid events, got %d", len(events))
	}
	// The freeUntil day is the first paid day.
	if !events[0].Date.Equal(day(2024, 2, 15)) {
		t.Fatalf("expected first paid charge on 2024-02-15, got %s", events[0].Date.Format("2006-01-02"))
	}
}

func TestGenerateUpcomingEvents(t *testing.T) {
	a := monthly(10)
	a.ID, a.Name = "a", "Beta"
	b := monthly(10)
	b.ID, b.Name = "b", "Alpha"
	inactive := monthly(12)
	inactive.ID, inactive.IsActive = "c", false
	trial := monthly(20)
	trial.ID, trial.Name = "d", "Trial"
	trial.FreeUntil = ptr(day(2024, 3, 1))

	events := GenerateUpcomingEvents([]core.Subscription{a, inactive, b, trial}, 30, day(2024, 2, 5))

	var got []string
	for _, e := range events {
		got = append(got, e.Date.Format("01-02")+" "+e.Name)
	}
	// Trial's Feb 20 charge is still free and its next one is past the horizon.
	want := []string{"02-10 Alpha", "02-10 Beta"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDaysUntilPayment(t *testing.T) {
	tests := []struct {
		name  string
		sub   core.Subscription
		today time.Time
		want  int
	}{
		{"five days", monthly(10), day(2024, 3, 5), 5},
		{"due today counts next cycle", monthly(10), day(2024, 3, 10), 31},
		{"month end to first", monthly(1), day(2024, 3, 31), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysUntilPayment(tt.sub, tt.today); got != tt.want {
				t.Errorf("DaysUntilPayment() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStepperFor(t *testing.T) {
	if _, err := StepperFor(core.Monthly); err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if _, err := StepperFor(core.Yearly); err != nil {
		t.Fatalf("yearly: %v", err)
	}
	if _, err := StepperFor("WEEKLY"); err == nil {
		t.Fatalf("expected error for unknown cycle")
	}
}

func assertDates(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d dates %v, want %d %v", len(got), fmtDates(got), len(want), fmtDates(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("date %d = %s, want %s", i, got[i].Format("2006-01-02"), want[i].Format("2006-01-02"))
		}
	}
}

func fmtDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Format("2006-01-02")
	}
	return out
}
