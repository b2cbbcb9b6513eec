package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"subtrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "subtrack.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleSubscription(id string) core.Subscription {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	free := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	promo := 4.99
	return core.Subscription{
		ID:           id,
		Name:         "Spotify",
		Category:     core.CategoryEntertain,
		Amount:       10990,
		Currency:     core.KRW,
		BillingCycle: core.Monthly,
		BillingDay:   31,
		IsActive:     true,
		CreatedAt:    created,
		UpdatedAt:    created,
		FreeUntil:    &free,
		PromoAmount:  &promo,
		Notes:        "family plan",
	}
}

func TestSubscriptionCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s := sampleSubscription("s1")
	if err := repo.CreateSubscription(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetSubscription(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != s.Name || got.Amount != s.Amount || got.Currency != core.KRW || got.BillingDay != 31 {
		t.Fatalf("unexpected row %+v", got)
	}
	if !got.CreatedAt.Equal(s.CreatedAt) || got.FreeUntil == nil || !got.FreeUntil.Equal(*s.FreeUntil) {
		t.Fatalf("times not preserved: %+v", got)
	}
	if got.EndedAt != nil || got.PaymentMethodID != nil {
		t.Fatalf("expected nil optionals, got %+v", got)
	}
	if got.PromoAmount == nil || *got.PromoAmount != 4.99 {
		t.Fatalf("promo not preserved")
	}

	ended := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	got.EndedAt = &ended
	got.IsActive = false
	if err := repo.UpdateSubscription(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := repo.ListSubscriptions(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %d", err, len(list))
	}
	if list[0].IsActive || list[0].EndedAt == nil {
		t.Fatalf("update not applied: %+v", list[0])
	}

	if err := repo.DeleteSubscription(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetSubscription(ctx, "s1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteSubscription(ctx, "s1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := repo.UpdateSubscription(ctx, sampleSubscription("missing")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestDeletePaymentMethodClearsReferences(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	pm := core.PaymentMethod{ID: "pm1", Name: "Visa", Type: core.CreditCard, Last4: "4242", CreatedAt: time.Now().UTC()}
	if err := repo.CreatePaymentMethod(ctx, pm); err != nil {
		t.Fatalf("create pm: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		s := sampleSubscription(id)
		s.PaymentMethodID = &pm.ID
		if err := repo.CreateSubscription(ctx, s); err != nil {
			t.Fatalf("create sub: %v", err)
		}
	}

	if err := repo.DeletePaymentMethod(ctx, "pm1"); err != nil {
		t.Fatalf("delete pm: %v", err)
	}
	subs, err := repo.ListSubscriptions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, s := range subs {
		if s.PaymentMethodID != nil {
			t.Fatalf("subscription %s still references deleted method", s.ID)
		}
	}
	if err := repo.DeletePaymentMethod(ctx, "pm1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s, err := repo.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if s != core.DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", s)
	}

	s.Language = core.LanguageKO
	s.DefaultCurrency = core.KRW
	s.HorizonDays = 30
	if err := repo.SaveSettings(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Language != core.LanguageKO || got.DefaultCurrency != core.KRW {
		t.Fatalf("settings not saved: %+v", got)
	}
	if got.HorizonDays != core.MinHorizonDays {
		t.Fatalf("expected horizon raised to %d, got %d", core.MinHorizonDays, got.HorizonDays)
	}
}

func TestRatesAndReminders(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, ok, err := repo.LoadRates(ctx); err != nil || ok {
		t.Fatalf("expected empty cache, ok=%v err=%v", ok, err)
	}
	c := core.FxRateCache{UsdToKrw: 1380, KrwToUsd: 1 / 1380.0, LastUpdated: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), Source: "Frankfurter"}
	if err := repo.SaveRates(ctx, c); err != nil {
		t.Fatalf("save rates: %v", err)
	}
	got, ok, err := repo.LoadRates(ctx)
	if err != nil || !ok || got.UsdToKrw != 1380 || !got.LastUpdated.Equal(c.LastUpdated) {
		t.Fatalf("unexpected cache %+v ok=%v err=%v", got, ok, err)
	}

	due := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	first, err := repo.MarkReminderSent(ctx, "s1", due)
	if err != nil || !first {
		t.Fatalf("first mark: %v %v", first, err)
	}
	again, err := repo.MarkReminderSent(ctx, "s1", due)
	if err != nil || again {
		t.Fatalf("second mark should be a no-op: %v %v", again, err)
	}
}
