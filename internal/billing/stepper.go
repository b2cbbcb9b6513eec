// Package billing computes when subscriptions charge.
//
// Each billing cycle has its own Stepper that knows how to find the next
// charge date after a reference day. Every function here is a pure function
// of a subscription snapshot and the dates it is given; nothing is cached.
package billing

import (
	"fmt"
	"time"

	"subtrack/internal/core"
)

// Stepper is the strategy interface for one billing cycle.
type Stepper interface {
	// Next returns the first charge date strictly after ref's day.
	Next(sub core.Subscription, ref time.Time) time.Time
}

// MonthlyStepper charges on the billing day of every month, clamped to the
// month's last day.
type MonthlyStepper struct{}

func (MonthlyStepper) Next(sub core.Subscription, ref time.Time) time.Time {
	ref = core.StartOfDay(ref)
	loc := ref.Location()
	candidate := core.ClampedDate(ref.Year(), ref.Month(), sub.BillingDay, loc)
	if !candidate.After(ref) {
		next := core.AddMonths(ref, 1)
		candidate = core.ClampedDate(next.Year(), next.Month(), sub.BillingDay, loc)
	}
	return candidate
}

// YearlyStepper charges once a year on billing month/day. An unset billing
// month means January.
type YearlyStepper struct{}

func (YearlyStepper) Next(sub core.Subscription, ref time.Time) time.Time {
	ref = core.StartOfDay(ref)
	loc := ref.Location()
	month := time.Month(sub.BillingMonth)
	if month < time.January || month > time.December {
		month = time.January
	}
	candidate := core.ClampedDate(ref.Year(), month, sub.BillingDay, loc)
	if !candidate.After(ref) {
		candidate = core.ClampedDate(ref.Year()+1, month, sub.BillingDay, loc)
	}
	return candidate
}

// steppers maps billing cycles to their strategy.
var steppers = map[core.BillingCycle]Stepper{
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// StepperFor returns the stepper registered for cycle.
func StepperFor(cycle core.BillingCycle) (Stepper, error) {
	s, ok := steppers[cycle]
	if !ok {
		return nil, fmt.Errorf("unknown billing cycle: %s", cycle)
	}
	return s, nil
}

func stepperOrMonthly(cycle core.BillingCycle) Stepper {
	if s, err := StepperFor(cycle); err == nil {
		return s
	}
	return MonthlyStepper{}
}
