// Package memory is an in-process backend used by tests and DATA_BACKEND=memory.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/storage"
)

type reminderKey struct {
	subID string
	due   string
}

type Store struct {
	mu        sync.Mutex
	subs      map[string]core.Subscription
	methods   map[string]core.PaymentMethod
	settings  *core.Settings
	rates     *core.FxRateCache
	reminders map[reminderKey]struct{}
}

func New(subs ...core.Subscription) *Store {
	s := &Store{
		subs:      make(map[string]core.Subscription, len(subs)),
		methods:   make(map[string]core.PaymentMethod),
		reminders: make(map[reminderKey]struct{}),
	}
	for _, sub := range subs {
		s.subs[sub.ID] = sub
	}
	return s
}

// NewFromFile seeds the store from a JSON array of subscriptions. A missing
// file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var subs []core.Subscription
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	for i, sub := range subs {
		if err := sub.Validate(); err != nil {
			return nil, fmt.Errorf("seed entry %d (%s): %w", i, sub.Name, err)
		}
	}
	return New(subs...), nil
}

func (s *Store) ListSubscriptions(_ context.Context) ([]core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetSubscription(_ context.Context, id string) (core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return core.Subscription{}, fmt.Errorf("subscription %s: %w", id, core.ErrNotFound)
	}
	return sub, nil
}

func (s *Store) CreateSubscription(_ context.Context, sub core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subs[sub.ID]; exists {
		return fmt.Errorf("subscription %s already exists", sub.ID)
	}
	s.subs[sub.ID] = sub
	return nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; !ok {
		return fmt.Errorf("subscription %s: %w", sub.ID, core.ErrNotFound)
	}
	s.subs[sub.ID] = sub
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return fmt.Errorf("subscription %s: %w", id, core.ErrNotFound)
	}
	delete(s.subs, id)
	for k := range s.reminders {
		if k.subID == id {
			delete(s.reminders, k)
		}
	}
	return nil
}

func (s *Store) ListPaymentMethods(_ context.Context) ([]core.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PaymentMethod, 0, len(s.methods))
	for _, m := range s.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetPaymentMethod(_ context.Context, id string) (core.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.methods[id]
	if !ok {
		return core.PaymentMethod{}, fmt.Errorf("payment method %s: %w", id, core.ErrNotFound)
	}
	return m, nil
}

func (s *Store) CreatePaymentMethod(_ context.Context, m core.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[m.ID] = m
	return nil
}

func (s *Store) UpdatePaymentMethod(_ context.Context, m core.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.methods[m.ID]; !ok {
		return fmt.Errorf("payment method %s: %w", m.ID, core.ErrNotFound)
	}
	s.methods[m.ID] = m
	return nil
}

// DeletePaymentMethod holds the lock across both steps, which gives the same
// all-or-nothing result as the SQLite transaction.
func (s *Store) DeletePaymentMethod(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.methods[id]; !ok {
		return fmt.Errorf("payment method %s: %w", id, core.ErrNotFound)
	}
	for subID, sub := range s.subs {
		if sub.PaymentMethodID != nil && *sub.PaymentMethodID == id {
			sub.PaymentMethodID = nil
			s.subs[subID] = sub
		}
	}
	delete(s.methods, id)
	return nil
}

func (s *Store) LoadSettings(_ context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return core.DefaultSettings(), nil
	}
	return s.settings.Normalize(), nil
}

func (s *Store) SaveSettings(_ context.Context, settings core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return nil
}

func (s *Store) LoadRates(_ context.Context) (core.FxRateCache, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rates == nil {
		return core.FxRateCache{}, false, nil
	}
	return *s.rates, true, nil
}

func (s *Store) SaveRates(_ context.Context, c core.FxRateCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = &c
	return nil
}

func (s *Store) MarkReminderSent(_ context.Context, subID string, due time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reminderKey{subID: subID, due: due.Format(storage.DateLayout)}
	if _, seen := s.reminders[k]; seen {
		return false, nil
	}
	s.reminders[k] = struct{}{}
	return true, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
