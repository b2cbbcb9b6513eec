// Package calendar exports scheduled charges as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"subtrack/internal/core"
	"subtrack/internal/format"
	"subtrack/internal/storage"
)

const productID = "-//subtrack//Payment Schedule//EN"

// Build turns payment events into an all-day VEVENT per charge.
func Build(events []core.PaymentEvent, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText("X-WR-CALNAME", "Subscription payments")

	for _, e := range events {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, uid(e))
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		ev.Props.SetDate(ical.PropDateTimeStart, e.Date)
		ev.Props.SetDate(ical.PropDateTimeEnd, core.AddDays(e.Date, 1))
		ev.Props.SetText(ical.PropSummary, fmt.Sprintf("%s %s", e.Name, format.Currency(e.Amount, e.Currency)))
		ev.Props.SetText(ical.PropDescription, fmt.Sprintf("%s charge (%s)", e.BillingCycle, e.Category))
		ev.Props.SetText(ical.PropCategories, string(e.Category))
		ev.Props.SetText(ical.PropTransparency, "TRANSPARENT")
		cal.Children = append(cal.Children, ev.Component)
	}
	return cal
}

// Write encodes the calendar for events to w.
func Write(w io.Writer, events []core.PaymentEvent, stamp time.Time) error {
	if err := ical.NewEncoder(w).Encode(Build(events, stamp)); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func uid(e core.PaymentEvent) string {
	return e.SubscriptionID + "-" + e.Date.Format(storage.DateLayout) + "@subtrack"
}
