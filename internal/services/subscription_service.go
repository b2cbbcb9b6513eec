package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/storage"
)

// ErrUnknownPaymentMethod is returned when a subscription references a
// payment method that does not exist.
var ErrUnknownPaymentMethod = errors.New("unknown payment method")

// Repository is the persistence the lifecycle service needs.
type Repository interface {
	storage.SubscriptionStore
	storage.PaymentMethodStore
}

// EventPublisher announces lifecycle changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishSubscriptionEvent(ctx context.Context, e amqp.SubscriptionEvent) error
}

// ChangeListener is called synchronously after every successful mutation.
type ChangeListener func(ctx context.Context, e amqp.SubscriptionEvent)

// SubscriptionService owns the subscription lifecycle. Storage is the
// source of truth; publishing is best effort and never fails a call.
type SubscriptionService struct {
	repo      Repository
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time
	newID     func() string

	mu        sync.RWMutex
	listeners []ChangeListener
}

type ServiceOption func(*SubscriptionService)

func WithPublisher(p EventPublisher) ServiceOption {
	return func(s *SubscriptionService) { s.publisher = p }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *SubscriptionService) { s.now = now }
}

func WithIDGenerator(gen func() string) ServiceOption {
	return func(s *SubscriptionService) { s.newID = gen }
}

func WithLogger(l *log.Logger) ServiceOption {
	return func(s *SubscriptionService) { s.logger = l }
}

func NewSubscriptionService(repo Repository, opts ...ServiceOption) *SubscriptionService {
	s := &SubscriptionService{
		repo:   repo,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		logger: log.New(log.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentSubscription)
	return s
}

// OnChange registers a listener for lifecycle changes.
func (s *SubscriptionService) OnChange(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Add stores a new active subscription with a fresh id.
func (s *SubscriptionService) Add(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	now := s.now()
	sub.ID = s.newID()
	sub.Name = strings.TrimSpace(sub.Name)
	sub.IsActive = true
	sub.CreatedAt = now
	sub.UpdatedAt = now
	sub.EndedAt = nil
	if sub.BillingCycle == core.Monthly {
		sub.BillingMonth = 0
	}

	if err := sub.Validate(); err != nil {
		return core.Subscription{}, fmt.Errorf("validate subscription: %w", err)
	}
	if err := s.checkPaymentMethod(ctx, sub.PaymentMethodID); err != nil {
		return core.Subscription{}, err
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}

	s.changed(ctx, amqp.EventCreated, sub)
	return sub, nil
}

// Update merges patch into the stored subscription and re-validates it.
func (s *SubscriptionService) Update(ctx context.Context, id string, patch SubscriptionPatch) (core.Subscription, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return core.Subscription{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	next := patch.Apply(current)
	next.Name = strings.TrimSpace(next.Name)
	next.UpdatedAt = s.now()
	if err := next.Validate(); err != nil {
		return core.Subscription{}, fmt.Errorf("validate subscription: %w", err)
	}
	if patch.PaymentMethodID.Set {
		if err := s.checkPaymentMethod(ctx, next.PaymentMethodID); err != nil {
			return core.Subscription{}, err
		}
	}
	if err := s.repo.UpdateSubscription(ctx, next); err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}

	s.changed(ctx, amqp.EventUpdated, next)
	return next, nil
}

// End stops billing as of today. Ending an ended subscription moves its end
// date to now.
func (s *SubscriptionService) End(ctx context.Context, id string) (core.Subscription, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return core.Subscription{}, err
	}
	now := s.now()
	sub.EndedAt = &now
	sub.IsActive = false
	sub.UpdatedAt = now
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, fmt.Errorf("end subscription: %w", err)
	}
	s.changed(ctx, amqp.EventEnded, sub)
	return sub, nil
}

func (s *SubscriptionService) Reactivate(ctx context.Context, id string) (core.Subscription, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return core.Subscription{}, err
	}
	sub.EndedAt = nil
	sub.IsActive = true
	sub.UpdatedAt = s.now()
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, fmt.Errorf("reactivate subscription: %w", err)
	}
	s.changed(ctx, amqp.EventReactivated, sub)
	return sub, nil
}

// Delete removes the subscription permanently.
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSubscription(ctx, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	s.changed(ctx, amqp.EventDeleted, sub)
	return nil
}

func (s *SubscriptionService) Get(ctx context.Context, id string) (core.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

func (s *SubscriptionService) List(ctx context.Context) ([]core.Subscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// ListActive returns the subscriptions currently billed.
func (s *SubscriptionService) ListActive(ctx context.Context) ([]core.Subscription, error) {
	subs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	active := subs[:0:0]
	for _, sub := range subs {
		if sub.IsActive {
			active = append(active, sub)
		}
	}
	return active, nil
}

func (s *SubscriptionService) AddPaymentMethod(ctx context.Context, m core.PaymentMethod) (core.PaymentMethod, error) {
	m.ID = s.newID()
	m.Name = strings.TrimSpace(m.Name)
	m.CreatedAt = s.now()
	if err := m.Validate(); err != nil {
		return core.PaymentMethod{}, fmt.Errorf("validate payment method: %w", err)
	}
	if err := s.repo.CreatePaymentMethod(ctx, m); err != nil {
		return core.PaymentMethod{}, fmt.Errorf("save payment method: %w", err)
	}
	s.logger.InfoContext(ctx, "Payment method added", "payment_method_id", m.ID, "type", m.Type)
	return m, nil
}

func (s *SubscriptionService) UpdatePaymentMethod(ctx context.Context, id string, patch PaymentMethodPatch) (core.PaymentMethod, error) {
	m, err := s.repo.GetPaymentMethod(ctx, id)
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("get payment method: %w", err)
	}
	m = patch.Apply(m)
	m.Name = strings.TrimSpace(m.Name)
	if err := m.Validate(); err != nil {
		return core.PaymentMethod{}, fmt.Errorf("validate payment method: %w", err)
	}
	if err := s.repo.UpdatePaymentMethod(ctx, m); err != nil {
		return core.PaymentMethod{}, fmt.Errorf("update payment method: %w", err)
	}
	return m, nil
}

// DeletePaymentMethod removes the method and detaches it from every
// subscription in one storage operation. Each detached subscription is
// announced as updated.
func (s *SubscriptionService) DeletePaymentMethod(ctx context.Context, id string) error {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if err := s.repo.DeletePaymentMethod(ctx, id); err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}
	s.logger.InfoContext(ctx, "Payment method deleted", "payment_method_id", id)

	for _, sub := range subs {
		if sub.PaymentMethodID == nil || *sub.PaymentMethodID != id {
			continue
		}
		sub.PaymentMethodID = nil
		s.changed(ctx, amqp.EventUpdated, sub)
	}
	return nil
}

func (s *SubscriptionService) ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	methods, err := s.repo.ListPaymentMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}

func (s *SubscriptionService) checkPaymentMethod(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	if _, err := s.repo.GetPaymentMethod(ctx, *id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownPaymentMethod, *id)
		}
		return fmt.Errorf("check payment method: %w", err)
	}
	return nil
}

func (s *SubscriptionService) changed(ctx context.Context, t amqp.EventType, sub core.Subscription) {
	e := amqp.SubscriptionEvent{
		Type:           t,
		SubscriptionID: sub.ID,
		Name:           sub.Name,
		Amount:         sub.Amount,
		Currency:       string(sub.Currency),
		OccurredAt:     s.now(),
	}

	log.NewStructuredLogger(s.logger).LogSubscriptionChange(ctx, string(t), sub.ID, sub.Name,
		sub.Amount, string(sub.Currency), string(sub.BillingCycle))

	if s.publisher != nil {
		if err := s.publisher.PublishSubscriptionEvent(ctx, e); err != nil {
			// The change is stored; only the notification is lost.
			s.logger.WarnContext(ctx, "Failed to publish subscription event",
				"type", t, "subscription_id", sub.ID, "error", err)
		}
	}

	s.mu.RLock()
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ctx, e)
	}
}
