package storage

import (
	"context"
	"time"

	"subtrack/internal/core"
)

// Ports implemented by every persistence backend.
type (
	SubscriptionStore interface {
		ListSubscriptions(ctx context.Context) ([]core.Subscription, error)
		// GetSubscription returns core.ErrNotFound for unknown ids.
		GetSubscription(ctx context.Context, id string) (core.Subscription, error)
		CreateSubscription(ctx context.Context, s core.Subscription) error
		UpdateSubscription(ctx context.Context, s core.Subscription) error
		DeleteSubscription(ctx context.Context, id string) error
	}

	PaymentMethodStore interface {
		ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error)
		GetPaymentMethod(ctx context.Context, id string) (core.PaymentMethod, error)
		CreatePaymentMethod(ctx context.Context, m core.PaymentMethod) error
		UpdatePaymentMethod(ctx context.Context, m core.PaymentMethod) error
		// DeletePaymentMethod removes the method and clears it from every
		// subscription that referenced it, atomically.
		DeletePaymentMethod(ctx context.Context, id string) error
	}

	SettingsStore interface {
		// LoadSettings returns normalised settings, defaults when none were saved.
		LoadSettings(ctx context.Context) (core.Settings, error)
		SaveSettings(ctx context.Context, s core.Settings) error
	}

	RateStore interface {
		LoadRates(ctx context.Context) (core.FxRateCache, bool, error)
		SaveRates(ctx context.Context, c core.FxRateCache) error
	}

	ReminderLog interface {
		// MarkReminderSent records a reminder for the charge of subID on due.
		// It returns false when that reminder was already recorded.
		MarkReminderSent(ctx context.Context, subID string, due time.Time) (bool, error)
	}
)

// DateLayout is how calendar days are keyed in storage.
const DateLayout = "2006-01-02"
