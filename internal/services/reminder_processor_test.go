package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/storage/memory"
)

type outcomeCounter map[string]int

func (o outcomeCounter) ObserveReminder(outcome string) { o[outcome]++ }

func reminderFixture() []core.Subscription {
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	base := func(id string, day int) core.Subscription {
		return core.Subscription{ID: id, Name: id, Category: core.CategoryOther, Amount: 5, Currency: core.USD,
			BillingCycle: core.Monthly, BillingDay: day, IsActive: true, CreatedAt: created}
	}
	trial := base("trial", 13)
	trial.FreeUntil = ptr(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	paused := base("paused", 13)
	paused.IsActive = false

	return []core.Subscription{
		base("today", 12),
		base("soon", 14),
		base("later", 20),
		trial,
		paused,
	}
}

func newTestProcessor(pub ReminderPublisher) (*ReminderProcessor, outcomeCounter) {
	store := memory.New(reminderFixture()...)
	p := NewReminderProcessor(store, store, pub, 3, nil)
	p.SetClock(func() time.Time { return time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC) })
	counter := outcomeCounter{}
	p.SetObserver(counter)
	return p, counter
}

func TestReminderProcessor_Process(t *testing.T) {
	pub := &recordingPublisher{}
	p, counter := newTestProcessor(pub)
	ctx := context.Background()

	n, err := p.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, pub.due, 2)
	assert.Equal(t, "today", pub.due[0].SubscriptionID)
	assert.Equal(t, "2024-03-12", pub.due[0].DueDate)
	assert.Equal(t, 0, pub.due[0].DaysUntil)
	assert.Equal(t, "soon", pub.due[1].SubscriptionID)
	assert.Equal(t, 2, pub.due[1].DaysUntil)

	// same day again: everything already recorded
	n, err = p.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, pub.due, 2)
	assert.Equal(t, outcomeCounter{ReminderPublished: 2, ReminderDuplicate: 2}, counter)
}

func TestReminderProcessor_PublishFailureIsAtMostOnce(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	p, counter := newTestProcessor(pub)

	n, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, counter[ReminderFailed])

	pub.err = nil
	n, err = p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReminderProcessor_NotInitialized(t *testing.T) {
	p := NewReminderProcessor(nil, nil, nil, 3, nil)
	_, err := p.Process(context.Background())
	assert.Error(t, err)
}

func TestLogReminder(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: log.NewHandler(&buf, "text", slog.LevelInfo)})

	err := LogReminder(logger)(context.Background(), &amqp.PaymentDueMessage{
		SubscriptionID: "nf", Name: "Netflix", DueDate: "2024-03-15", DaysUntil: 3,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Payment due")
	assert.Contains(t, buf.String(), "due_date=2024-03-15")
	assert.Contains(t, buf.String(), "component=reminder")
}
