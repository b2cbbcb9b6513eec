package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/storage"
)

// Both backends must satisfy every port.
var (
	_ storage.SubscriptionStore  = (*Store)(nil)
	_ storage.PaymentMethodStore = (*Store)(nil)
	_ storage.SettingsStore      = (*Store)(nil)
	_ storage.RateStore          = (*Store)(nil)
	_ storage.ReminderLog        = (*Store)(nil)
	_ storage.SubscriptionStore  = (*storage.SQLiteRepository)(nil)
	_ storage.PaymentMethodStore = (*storage.SQLiteRepository)(nil)
	_ storage.SettingsStore      = (*storage.SQLiteRepository)(nil)
	_ storage.RateStore          = (*storage.SQLiteRepository)(nil)
	_ storage.ReminderLog        = (*storage.SQLiteRepository)(nil)
)

func TestStoreSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := New()

	sub := core.Subscription{ID: "a", Name: "A", CreatedAt: time.Now()}
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateSubscription(ctx, sub); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	sub.Name = "A2"
	if err := s.UpdateSubscription(ctx, sub); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetSubscription(ctx, "a")
	if err != nil || got.Name != "A2" {
		t.Fatalf("get: %+v %v", got, err)
	}
	if err := s.DeleteSubscription(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetSubscription(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletePaymentMethodNullsReferences(t *testing.T) {
	ctx := context.Background()
	pm := "pm"
	other := "other"
	s := New(
		core.Subscription{ID: "a", PaymentMethodID: &pm},
		core.Subscription{ID: "b", PaymentMethodID: &other},
	)
	_ = s.CreatePaymentMethod(ctx, core.PaymentMethod{ID: "pm", Name: "Visa", Type: core.CreditCard})
	_ = s.CreatePaymentMethod(ctx, core.PaymentMethod{ID: "other", Name: "Bank", Type: core.BankAccount})

	if err := s.DeletePaymentMethod(ctx, "pm"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	a, _ := s.GetSubscription(ctx, "a")
	b, _ := s.GetSubscription(ctx, "b")
	if a.PaymentMethodID != nil {
		t.Fatalf("expected reference cleared")
	}
	if b.PaymentMethodID == nil || *b.PaymentMethodID != "other" {
		t.Fatalf("unrelated reference touched")
	}
}

func TestReminderDedup(t *testing.T) {
	s := New()
	due := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	if ok, _ := s.MarkReminderSent(context.Background(), "a", due); !ok {
		t.Fatalf("first mark should be new")
	}
	if ok, _ := s.MarkReminderSent(context.Background(), "a", due.Add(3*time.Hour)); ok {
		t.Fatalf("same day should be deduplicated")
	}
}

func TestDeleteSubscriptionDropsReminders(t *testing.T) {
	ctx := context.Background()
	s := New(core.Subscription{ID: "a", Name: "A"})
	due := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	if _, err := s.MarkReminderSent(ctx, "a", due); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MarkReminderSent(ctx, "b", due); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteSubscription(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.MarkReminderSent(ctx, "a", due); !ok {
		t.Errorf("reminder log for a deleted subscription should be purged")
	}
	if ok, _ := s.MarkReminderSent(ctx, "b", due); ok {
		t.Errorf("other subscriptions keep their reminder log")
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file should be empty store: %v", err)
	}
	if subs, _ := s.ListSubscriptions(context.Background()); len(subs) != 0 {
		t.Fatalf("expected empty store")
	}

	path := filepath.Join(dir, "seed.json")
	content := `[{"id":"n","name":"Netflix","category":"ENTERTAIN","amount":17000,"currency":"KRW",
		"billingCycle":"MONTHLY","billingDay":5,"isActive":true,"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	subs, _ := s.ListSubscriptions(context.Background())
	if len(subs) != 1 || subs[0].Currency != core.KRW {
		t.Fatalf("unexpected seed %+v", subs)
	}

	if err := os.WriteFile(path, []byte(`[{"id":"x","name":""}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatalf("expected validation error for invalid seed entry")
	}
}
