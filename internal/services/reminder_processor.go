package services

import (
	"context"
	"fmt"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/billing"
	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/storage"
)

// ReminderPublisher hands payment reminders to the broker.
type ReminderPublisher interface {
	PublishPaymentDue(ctx context.Context, m amqp.PaymentDueMessage) error
}

// ReminderObserver counts reminder outcomes.
type ReminderObserver interface {
	ObserveReminder(outcome string)
}

// Reminder outcomes.
const (
	ReminderPublished = "published"
	ReminderDuplicate = "duplicate"
	ReminderFailed    = "failed"
)

// ReminderProcessor publishes one PaymentDueMessage per paid charge of an
// active subscription due within LeadDays. The reminder log makes repeated
// runs on the same day idempotent.
type ReminderProcessor struct {
	subs      storage.SubscriptionStore
	sent      storage.ReminderLog
	publisher ReminderPublisher
	observer  ReminderObserver
	logger    *log.Logger
	leadDays  int
	now       func() time.Time
}

func NewReminderProcessor(subs storage.SubscriptionStore, sent storage.ReminderLog, publisher ReminderPublisher, leadDays int, logger *log.Logger) *ReminderProcessor {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReminderProcessor{
		subs:      subs,
		sent:      sent,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentReminder),
		leadDays:  leadDays,
		now:       time.Now,
	}
}

// SetObserver attaches a metrics observer.
func (p *ReminderProcessor) SetObserver(o ReminderObserver) { p.observer = o }

// SetClock replaces time.Now, for tests.
func (p *ReminderProcessor) SetClock(now func() time.Time) { p.now = now }

// Process publishes the reminders due today and returns how many went out.
// A reminder is recorded before it is published, so a failed publish is not
// retried: delivery is at most once.
func (p *ReminderProcessor) Process(ctx context.Context) (int, error) {
	if p.subs == nil || p.sent == nil || p.publisher == nil {
		return 0, fmt.Errorf("reminder processor not properly initialized")
	}

	subs, err := p.subs.ListSubscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	now := p.now()
	today := core.StartOfDay(now)
	events := billing.GenerateUpcomingEvents(subs, p.leadDays, today)

	p.logger.InfoContext(ctx, "Processing payment reminders",
		"candidates", len(events),
		"lead_days", p.leadDays,
		"processing_date", today.Format(storage.DateLayout))

	published := 0
	for _, e := range events {
		fresh, err := p.sent.MarkReminderSent(ctx, e.SubscriptionID, e.Date)
		if err != nil {
			return published, fmt.Errorf("record reminder for %s: %w", e.SubscriptionID, err)
		}
		if !fresh {
			p.observe(ReminderDuplicate)
			continue
		}

		msg := amqp.PaymentDueMessage{
			SubscriptionID: e.SubscriptionID,
			Name:           e.Name,
			Category:       string(e.Category),
			DueDate:        e.Date.Format(storage.DateLayout),
			Amount:         e.Amount,
			Currency:       string(e.Currency),
			DaysUntil:      core.DaysBetween(today, e.Date),
			Timestamp:      now,
		}
		if err := p.publisher.PublishPaymentDue(ctx, msg); err != nil {
			p.observe(ReminderFailed)
			p.logger.ErrorContext(ctx, "Failed to publish payment reminder",
				"subscription_id", e.SubscriptionID,
				"due_date", msg.DueDate,
				"error", err)
			continue
		}

		published++
		p.observe(ReminderPublished)
	}

	p.logger.InfoContext(ctx, "Payment reminder processing complete",
		"published", published,
		"total_checked", len(events))

	return published, nil
}

func (p *ReminderProcessor) observe(outcome string) {
	if p.observer != nil {
		p.observer.ObserveReminder(outcome)
	}
}

// LogReminder is the payment-due consumer used by the worker: delivery to a
// user is out of scope, so the reminder is only logged.
func LogReminder(logger *log.Logger) func(context.Context, *amqp.PaymentDueMessage) error {
	logger = logger.WithComponent(log.ComponentReminder)
	return func(ctx context.Context, m *amqp.PaymentDueMessage) error {
		logger.InfoContext(ctx, "Payment due",
			"subscription_id", m.SubscriptionID,
			"name", m.Name,
			"due_date", m.DueDate,
			"days_until", m.DaysUntil,
			"amount", m.Amount,
			"currency", m.Currency)
		return nil
	}
}
