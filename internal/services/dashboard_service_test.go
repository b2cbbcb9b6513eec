package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/fx"
	"subtrack/internal/storage/memory"
)

type staticRates struct {
	rates fx.Rates
	calls int
}

func (s *staticRates) Rates(context.Context) fx.Rates {
	s.calls++
	return s.rates
}

type cacheCounter struct{ hits, misses int }

func (c *cacheCounter) ObserveCache(hit bool) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func dashboardFixture() []core.Subscription {
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return []core.Subscription{
		{ID: "gpt", Name: "ChatGPT", Category: core.CategoryAI, Amount: 20, Currency: core.USD,
			BillingCycle: core.Monthly, BillingDay: 10, IsActive: true, CreatedAt: created},
		{ID: "nf", Name: "Netflix", Category: core.CategoryEntertain, Amount: 13000, Currency: core.KRW,
			BillingCycle: core.Monthly, BillingDay: 25, IsActive: true, CreatedAt: created},
	}
}

func newTestDashboard(t *testing.T, rates fx.Rates) (*DashboardService, *staticRates, *cacheCounter, *memory.Store) {
	t.Helper()
	store := memory.New(dashboardFixture()...)
	src := &staticRates{rates: rates}
	counter := &cacheCounter{}
	clk := &testClock{t: time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC)}
	d := NewDashboardService(store, store, src,
		WithDashboardClock(clk.Now),
		WithCacheObserver(counter),
	)
	return d, src, counter, store
}

func freshRates() fx.Rates {
	return fx.NewRates(1300, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), "test")
}

func TestDashboardService_Build(t *testing.T) {
	d, _, _, _ := newTestDashboard(t, freshRates())

	dash, err := d.Build(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, core.USD, dash.Currency, "english settings display USD")
	assert.Equal(t, 2, dash.ActiveCount)
	assert.InDelta(t, 30, dash.MonthlyTotal, 1e-9)
	assert.InDelta(t, 20, dash.MonthlyByCategory[core.CategoryAI], 1e-9)
	assert.InDelta(t, 360, dash.YearlyTotal, 1e-9)
	assert.InDelta(t, 80, dash.YTDTotal, 1e-9)
	assert.InDelta(t, 30, dash.CurrentMonthTotal, 1e-9)
	assert.InDelta(t, 100, dash.Percentages.Sum(), 1e-9)
	assert.Len(t, dash.Breakdown, 12)

	require.Len(t, dash.Upcoming, 2)
	assert.Equal(t, "nf", dash.Upcoming[0].SubscriptionID)
	assert.Equal(t, 13, dash.Upcoming[0].DaysUntil)
	assert.InDelta(t, 10, dash.Upcoming[0].DisplayAmount, 1e-9)
	assert.Equal(t, "gpt", dash.Upcoming[1].SubscriptionID)
	assert.Equal(t, 29, dash.Upcoming[1].DaysUntil)
}

func TestDashboardService_BuildInKRW(t *testing.T) {
	d, _, _, _ := newTestDashboard(t, freshRates())

	dash, err := d.Build(context.Background(), core.KRW)
	require.NoError(t, err)
	assert.Equal(t, core.KRW, dash.Currency)
	assert.InDelta(t, 39000, dash.MonthlyTotal, 1e-6)
}

func TestDashboardService_CachesUntilInvalidated(t *testing.T) {
	d, src, counter, _ := newTestDashboard(t, freshRates())
	ctx := context.Background()

	_, err := d.Build(ctx, core.USD)
	require.NoError(t, err)
	_, err = d.Build(ctx, core.USD)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, counter.hits)

	d.Invalidate(ctx, amqp.SubscriptionEvent{Type: amqp.EventUpdated})
	_, err = d.Build(ctx, core.USD)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 2, counter.misses)
}

func TestDashboardService_StaleRatesNotCached(t *testing.T) {
	stale := freshRates()
	stale.IsStale = true
	d, src, _, _ := newTestDashboard(t, stale)

	for i := 0; i < 2; i++ {
		dash, err := d.Build(context.Background(), core.USD)
		require.NoError(t, err)
		assert.True(t, dash.Rates.IsStale)
	}
	assert.Equal(t, 2, src.calls)
}

func TestDashboardService_InvalidatedByLifecycleChange(t *testing.T) {
	d, _, _, store := newTestDashboard(t, freshRates())
	svc := NewSubscriptionService(store, WithClock(d.now), WithIDGenerator(sequentialIDs()))
	svc.OnChange(d.Invalidate)
	ctx := context.Background()

	before, err := d.Build(ctx, core.USD)
	require.NoError(t, err)

	_, err = svc.End(ctx, "gpt")
	require.NoError(t, err)

	after, err := d.Build(ctx, core.USD)
	require.NoError(t, err)
	assert.Equal(t, before.ActiveCount-1, after.ActiveCount)
	assert.InDelta(t, 10, after.MonthlyTotal, 1e-9)
}

func TestDashboardService_Views(t *testing.T) {
	d, _, _, _ := newTestDashboard(t, freshRates())
	ctx := context.Background()

	ytd, err := d.YearToDate(ctx, core.USD)
	require.NoError(t, err)
	assert.InDelta(t, 80, ytd.Total, 1e-9)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ytd.From)

	month, err := d.CurrentMonth(ctx, core.USD)
	require.NoError(t, err)
	assert.InDelta(t, 30, month.Total, 1e-9)
	assert.Equal(t, 31, month.To.Day())

	items, cur, err := d.Breakdown(ctx, "", 2023)
	require.NoError(t, err)
	assert.Equal(t, core.USD, cur)
	require.Len(t, items, 12)
	assert.InDelta(t, 30, items[6].Total, 1e-9)

	// horizon defaults to the settings value
	schedule, err := d.Schedule(ctx, core.USD, 0)
	require.NoError(t, err)
	assert.Len(t, schedule, 24)
}

type failingSubs struct{ *memory.Store }

func (failingSubs) ListSubscriptions(context.Context) ([]core.Subscription, error) {
	return nil, errors.New("disk gone")
}

func TestDashboardService_LoadError(t *testing.T) {
	store := memory.New()
	d := NewDashboardService(failingSubs{store}, store, &staticRates{rates: freshRates()})

	_, err := d.Build(context.Background(), core.USD)
	assert.ErrorContains(t, err, "disk gone")
}

// pausingSubs reads the subscriptions, then holds the first call until
// release is closed.
type pausingSubs struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *pausingSubs) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	subs, err := p.Store.ListSubscriptions(ctx)
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	return subs, err
}

func TestDashboardService_InvalidateDuringBuild(t *testing.T) {
	store := memory.New(dashboardFixture()...)
	subs := &pausingSubs{Store: store, entered: make(chan struct{}), release: make(chan struct{})}
	clk := &testClock{t: time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC)}
	d := NewDashboardService(subs, store, &staticRates{rates: freshRates()}, WithDashboardClock(clk.Now))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		dash, err := d.Build(ctx, core.USD)
		if err == nil && dash.ActiveCount != 2 {
			err = fmt.Errorf("in-flight build saw %d active", dash.ActiveCount)
		}
		done <- err
	}()
	<-subs.entered

	require.NoError(t, store.DeleteSubscription(ctx, "gpt"))
	d.Invalidate(ctx, amqp.SubscriptionEvent{Type: amqp.EventDeleted, SubscriptionID: "gpt"})
	close(subs.release)
	require.NoError(t, <-done)

	dash, err := d.Build(ctx, core.USD)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.ActiveCount)
	assert.InDelta(t, 10, dash.MonthlyTotal, 1e-9)
}

func TestSettingsService_Update(t *testing.T) {
	store := memory.New()
	reset := 0
	svc := NewSettingsService(store, func() { reset++ })
	ctx := context.Background()

	ko := core.LanguageKO
	got, err := svc.Update(ctx, SettingsPatch{Language: &ko, HorizonDays: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, core.KRW, got.DisplayCurrency())
	assert.Equal(t, core.MinHorizonDays, got.HorizonDays)
	assert.Equal(t, 1, reset)

	bad := core.Currency("EUR")
	_, err = svc.Update(ctx, SettingsPatch{DefaultCurrency: &bad})
	assert.ErrorIs(t, err, core.ErrInvalidSettings)
	assert.Equal(t, 1, reset)
}
