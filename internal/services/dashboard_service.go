package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/amqp"
	"subtrack/internal/billing"
	"subtrack/internal/cache"
	"subtrack/internal/calc"
	"subtrack/internal/core"
	"subtrack/internal/fx"
	"subtrack/internal/log"
	"subtrack/internal/storage"
)

// RateSource supplies rate snapshots. *fx.Provider implements it.
type RateSource interface {
	Rates(ctx context.Context) fx.Rates
}

// CacheObserver is told about dashboard cache hits and misses.
type CacheObserver interface {
	ObserveCache(hit bool)
}

// UpcomingPayment is a scheduled charge with its amount in the display currency.
type UpcomingPayment struct {
	core.PaymentEvent
	DisplayAmount float64 `json:"displayAmount"`
	DaysUntil     int     `json:"daysUntil"`
}

// Dashboard is every figure the home view shows, computed for one day in one
// currency.
type Dashboard struct {
	AsOf        time.Time     `json:"asOf"`
	Currency    core.Currency `json:"currency"`
	Rates       fx.Rates      `json:"rates"`
	Settings    core.Settings `json:"settings"`
	ActiveCount int           `json:"activeCount"`

	MonthlyTotal      float64             `json:"monthlyTotal"`
	MonthlyByCategory core.CategoryTotals `json:"monthlyByCategory"`
	Percentages       core.CategoryTotals `json:"percentages"`
	YearlyTotal       float64             `json:"yearlyTotal"`

	YTDTotal               float64             `json:"ytdTotal"`
	YTDByCategory          core.CategoryTotals `json:"ytdByCategory"`
	CurrentMonthTotal      float64             `json:"currentMonthTotal"`
	CurrentMonthByCategory core.CategoryTotals `json:"currentMonthByCategory"`

	Upcoming  []UpcomingPayment           `json:"upcoming"`
	Breakdown []core.MonthlyBreakdownItem `json:"breakdown"`
}

// DashboardService composes the aggregates of the calc package into one
// view and caches it per currency and day.
type DashboardService struct {
	subs     storage.SubscriptionStore
	settings storage.SettingsStore
	rates    RateSource
	cache    cache.Cache[Dashboard]
	observer CacheObserver
	logger   *log.Logger
	now      func() time.Time

	// mu orders cache writes against invalidation. gen is bumped on every
	// invalidation so a build that loaded before it does not cache its result.
	mu  sync.Mutex
	gen uint64

	// UpcomingDays bounds the upcoming list on the dashboard.
	UpcomingDays int
}

type DashboardOption func(*DashboardService)

func WithDashboardClock(now func() time.Time) DashboardOption {
	return func(d *DashboardService) { d.now = now }
}

func WithDashboardCache(c cache.Cache[Dashboard]) DashboardOption {
	return func(d *DashboardService) { d.cache = c }
}

func WithCacheObserver(o CacheObserver) DashboardOption {
	return func(d *DashboardService) { d.observer = o }
}

func WithDashboardLogger(l *log.Logger) DashboardOption {
	return func(d *DashboardService) { d.logger = l }
}

func NewDashboardService(subs storage.SubscriptionStore, settings storage.SettingsStore, rates RateSource, opts ...DashboardOption) *DashboardService {
	d := &DashboardService{
		subs:         subs,
		settings:     settings,
		rates:        rates,
		now:          time.Now,
		logger:       log.New(log.DefaultConfig()),
		UpcomingDays: 30,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cache == nil {
		d.cache = cache.NewLRUCache[Dashboard](16, 5*time.Minute, cache.WithClock(d.now))
	}
	d.logger = d.logger.WithComponent(log.ComponentDashboard)
	return d
}

// Invalidate drops every cached view. Its signature matches ChangeListener.
func (d *DashboardService) Invalidate(ctx context.Context, e amqp.SubscriptionEvent) {
	d.Reset()
	d.logger.DebugContext(ctx, "Dashboard cache invalidated", "event", e.Type, "subscription_id", e.SubscriptionID)
}

// Reset drops every cached view, for changes that are not subscription events.
func (d *DashboardService) Reset() {
	d.mu.Lock()
	d.gen++
	d.cache.Purge()
	d.mu.Unlock()
}

// store caches dash unless an invalidation happened since gen was read.
func (d *DashboardService) store(key string, gen uint64, dash Dashboard) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		d.logger.Debug("Dashboard changed during build, not caching", "key", key)
		return
	}
	d.cache.Set(key, dash)
}

func (d *DashboardService) generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// snapshot is the input every view is computed from.
type snapshot struct {
	subs     []core.Subscription
	settings core.Settings
	rates    fx.Rates
}

// load reads subscriptions, settings and rates concurrently.
func (d *DashboardService) load(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		subs, err := d.subs.ListSubscriptions(gctx)
		if err != nil {
			return fmt.Errorf("list subscriptions: %w", err)
		}
		snap.subs = subs
		return nil
	})
	g.Go(func() error {
		s, err := d.settings.LoadSettings(gctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		snap.settings = s
		return nil
	})
	g.Go(func() error {
		snap.rates = d.rates.Rates(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (d *DashboardService) currency(requested core.Currency, s core.Settings) core.Currency {
	if requested.IsValid() {
		return requested
	}
	return s.DisplayCurrency()
}

// Build returns the dashboard for today. An empty or unknown currency uses
// the display currency from settings.
func (d *DashboardService) Build(ctx context.Context, cur core.Currency) (Dashboard, error) {
	now := d.now()
	key := string(cur) + "|" + now.Format(storage.DateLayout)
	if cached, ok := d.cache.Get(key); ok {
		d.observe(true)
		return cached, nil
	}
	d.observe(false)

	gen := d.generation()
	snap, err := d.load(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	cur = d.currency(cur, snap.settings)

	dash := Dashboard{
		AsOf:        core.StartOfDay(now),
		Currency:    cur,
		Rates:       snap.rates,
		Settings:    snap.settings,
		ActiveCount: calc.CountActiveSubscriptions(snap.subs),

		MonthlyByCategory: calc.CategoryMonthlyTotals(snap.subs, cur, snap.rates, now),
		Percentages:       calc.CategoryPercentages(snap.subs, cur, snap.rates, now),
		YearlyTotal:       calc.TotalYearlyAmount(snap.subs, cur, snap.rates),

		YTDByCategory:          calc.CalculateYTDBreakdown(snap.subs, cur, snap.rates, now),
		CurrentMonthByCategory: calc.CalculateCurrentMonthCategoryTotals(snap.subs, cur, snap.rates, now),

		Upcoming:  upcoming(snap.subs, d.UpcomingDays, now, cur, snap.rates),
		Breakdown: calc.CalculateMonthlyBreakdown(snap.subs, now.Year(), cur, snap.rates),
	}
	dash.MonthlyTotal = dash.MonthlyByCategory.Sum()
	dash.YTDTotal = dash.YTDByCategory.Sum()
	dash.CurrentMonthTotal = dash.CurrentMonthByCategory.Sum()

	// Stale or fallback rates are not cached so the next request retries.
	if !snap.rates.IsStale && !snap.rates.IsFallback {
		d.store(key, gen, dash)
	}
	return dash, nil
}

// Schedule lists the paid charges of active subscriptions over the next days
// days, converted to cur. days <= 0 uses the horizon from settings.
func (d *DashboardService) Schedule(ctx context.Context, cur core.Currency, days int) ([]UpcomingPayment, error) {
	snap, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = snap.settings.HorizonDays
	}
	return upcoming(snap.subs, days, d.now(), d.currency(cur, snap.settings), snap.rates), nil
}

// Breakdown returns the twelve monthly totals of year.
func (d *DashboardService) Breakdown(ctx context.Context, cur core.Currency, year int) ([]core.MonthlyBreakdownItem, core.Currency, error) {
	snap, err := d.load(ctx)
	if err != nil {
		return nil, "", err
	}
	cur = d.currency(cur, snap.settings)
	return calc.CalculateMonthlyBreakdown(snap.subs, year, cur, snap.rates), cur, nil
}

// Totals is a grand total with its per-category split.
type Totals struct {
	Currency   core.Currency       `json:"currency"`
	Total      float64             `json:"total"`
	ByCategory core.CategoryTotals `json:"byCategory"`
	From       time.Time           `json:"from"`
	To         time.Time           `json:"to"`
}

// YearToDate totals the paid charges from January 1 through today.
func (d *DashboardService) YearToDate(ctx context.Context, cur core.Currency) (Totals, error) {
	snap, err := d.load(ctx)
	if err != nil {
		return Totals{}, err
	}
	now := d.now()
	cur = d.currency(cur, snap.settings)
	by := calc.CalculateYTDBreakdown(snap.subs, cur, snap.rates, now)
	return Totals{Currency: cur, Total: by.Sum(), ByCategory: by, From: core.StartOfYear(now), To: core.StartOfDay(now)}, nil
}

// CurrentMonth totals the paid charges of the whole current month.
func (d *DashboardService) CurrentMonth(ctx context.Context, cur core.Currency) (Totals, error) {
	snap, err := d.load(ctx)
	if err != nil {
		return Totals{}, err
	}
	now := d.now()
	cur = d.currency(cur, snap.settings)
	by := calc.CalculateCurrentMonthCategoryTotals(snap.subs, cur, snap.rates, now)
	return Totals{Currency: cur, Total: by.Sum(), ByCategory: by, From: core.StartOfMonth(now), To: core.EndOfMonth(now)}, nil
}

func (d *DashboardService) observe(hit bool) {
	if d.observer != nil {
		d.observer.ObserveCache(hit)
	}
}

func upcoming(subs []core.Subscription, days int, now time.Time, cur core.Currency, rates fx.Rates) []UpcomingPayment {
	today := core.StartOfDay(now)
	events := billing.GenerateUpcomingEvents(subs, days, today)
	out := make([]UpcomingPayment, 0, len(events))
	for _, e := range events {
		out = append(out, UpcomingPayment{
			PaymentEvent:  e,
			DisplayAmount: fx.Convert(e.Amount, e.Currency, cur, rates),
			DaysUntil:     core.DaysBetween(today, e.Date),
		})
	}
	return out
}
