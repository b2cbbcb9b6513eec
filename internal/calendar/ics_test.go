package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"subtrack/internal/core"
)

func TestWrite(t *testing.T) {
	events := []core.PaymentEvent{
		{SubscriptionID: "nf", Name: "Netflix", Category: core.CategoryEntertain,
			Date: time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), Amount: 17000, Currency: core.KRW, BillingCycle: core.Monthly},
		{SubscriptionID: "gpt", Name: "ChatGPT", Category: core.CategoryAI,
			Date: time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), Amount: 20, Currency: core.USD, BillingCycle: core.Monthly},
	}

	var buf bytes.Buffer
	if err := Write(&buf, events, time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"PRODID:" + productID,
		"UID:nf-2024-03-25@subtrack",
		"DTSTART;VALUE=DATE:20240325",
		"DTEND;VALUE=DATE:20240326",
		"SUMMARY:ChatGPT $20.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("calendar missing %q:\n%s", want, out)
		}
	}

	cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := len(cal.Events()); got != 2 {
		t.Errorf("decoded %d events, want 2", got)
	}
}

func TestBuildEmpty(t *testing.T) {
	cal := Build(nil, time.Now())
	if len(cal.Children) != 0 {
		t.Errorf("expected no events, got %d", len(cal.Children))
	}
	if v, err := cal.Props.Text(ical.PropVersion); err != nil || v != "2.0" {
		t.Errorf("VERSION = %q, %v", v, err)
	}
}
