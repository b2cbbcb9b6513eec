package fx

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"subtrack/internal/core"
	"subtrack/internal/log"
)

const (
	// FallbackUsdToKrw is the approximate rate used when no rate was ever fetched.
	FallbackUsdToKrw = 1300.0
	FallbackSource   = "Fallback"

	DefaultMinRefreshInterval = 12 * time.Hour
	DefaultManualCooldown     = 30 * time.Second
)

// Store persists the last successfully fetched rate.
type Store interface {
	// LoadRates returns ok=false when nothing was cached yet.
	LoadRates(ctx context.Context) (core.FxRateCache, bool, error)
	SaveRates(ctx context.Context, c core.FxRateCache) error
}

// Fetcher retrieves the current USD->KRW rate from an upstream source.
type Fetcher interface {
	FetchUsdToKrw(ctx context.Context) (float64, error)
	Source() string
}

// Observer receives fetch outcomes. The metrics package implements it.
type Observer interface {
	ObserveFetch(outcome string, d time.Duration)
	ObserveRate(usdToKrw float64)
}

// Fetch outcomes reported to the Observer.
const (
	OutcomeFresh    = "fresh"
	OutcomeCached   = "cached"
	OutcomeStale    = "stale"
	OutcomeFallback = "fallback"
)

type Options struct {
	MinRefreshInterval time.Duration
	ManualCooldown     time.Duration
	Now                func() time.Time
	Observer           Observer
	Logger             *log.Logger
	// BreakerFailures is the number of consecutive upstream failures that
	// opens the circuit.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Provider hands out rate snapshots. It never returns an error: on upstream
// failure callers get the cached rate marked stale or the fallback rate.
type Provider struct {
	store   Store
	fetcher Fetcher
	opts    Options
	breaker *gobreaker.CircuitBreaker[float64]
	group   singleflight.Group
	logger  *log.Logger

	mu         sync.Mutex
	lastManual time.Time
}

func NewProvider(store Store, fetcher Fetcher, opts Options) *Provider {
	if opts.MinRefreshInterval <= 0 {
		opts.MinRefreshInterval = DefaultMinRefreshInterval
	}
	if opts.ManualCooldown <= 0 {
		opts.ManualCooldown = DefaultManualCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 3
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentFX)

	p := &Provider{
		store:   store,
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:    "fx-" + fetcher.Source(),
		Timeout: opts.BreakerTimeout,
		// Cancellation says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return p
}

// Rates returns the cached rate while it is younger than the minimum refresh
// interval, otherwise it refreshes from upstream.
func (p *Provider) Rates(ctx context.Context) Rates {
	cached, ok := p.loadCache(ctx)
	if ok && p.opts.Now().Sub(cached.LastUpdated) < p.opts.MinRefreshInterval {
		p.observe(OutcomeCached, 0)
		return ratesFromCache(cached)
	}
	return p.refresh(ctx, cached, ok)
}

// ManualRefresh forces an upstream fetch unless the cooldown since the last
// allowed manual refresh has not yet elapsed, in which case it returns the
// current snapshot and false.
func (p *Provider) ManualRefresh(ctx context.Context) (Rates, bool) {
	p.mu.Lock()
	now := p.opts.Now()
	if !p.lastManual.IsZero() && now.Sub(p.lastManual) < p.opts.ManualCooldown {
		p.mu.Unlock()
		return p.current(ctx), false
	}
	p.lastManual = now
	p.mu.Unlock()

	cached, ok := p.loadCache(ctx)
	return p.refresh(ctx, cached, ok), true
}

// CanManualRefresh reports whether ManualRefresh would fetch right now.
func (p *Provider) CanManualRefresh() bool {
	return p.ManualRefreshRemaining() == 0
}

// ManualRefreshRemaining is the time left before the next manual refresh is
// allowed.
func (p *Provider) ManualRefreshRemaining() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastManual.IsZero() {
		return 0
	}
	left := p.opts.ManualCooldown - p.opts.Now().Sub(p.lastManual)
	if left < 0 {
		return 0
	}
	return left
}

func (p *Provider) refresh(ctx context.Context, cached core.FxRateCache, hasCache bool) Rates {
	start := p.opts.Now()
	// The flight is detached from caller cancellation. The fetcher bounds it
	// with its own timeout.
	flightCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan("usd-krw", func() (any, error) {
		return p.fetchAndStore(flightCtx)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}
	if res.Err == nil {
		p.observe(OutcomeFresh, p.opts.Now().Sub(start))
		return ratesFromCache(res.Val.(core.FxRateCache))
	}

	switch err := res.Err; {
	case errors.Is(err, gobreaker.ErrOpenState):
		p.logger.DebugContext(ctx, "FX upstream circuit open, skipping fetch")
	case ctx.Err() != nil:
		p.logger.DebugContext(ctx, "FX caller gone before fetch finished", "error", err)
	default:
		p.logger.WarnContext(ctx, "FX fetch failed", "error", err, "source", p.fetcher.Source())
	}

	if hasCache {
		r := ratesFromCache(cached)
		r.IsStale = true
		p.observe(OutcomeStale, p.opts.Now().Sub(start))
		return r
	}
	p.observe(OutcomeFallback, p.opts.Now().Sub(start))
	return Fallback(p.opts.Now())
}

// fetchAndStore runs one upstream fetch through the breaker and persists the
// result.
func (p *Provider) fetchAndStore(ctx context.Context) (core.FxRateCache, error) {
	rate, err := p.breaker.Execute(func() (float64, error) {
		return p.fetcher.FetchUsdToKrw(ctx)
	})
	if err != nil {
		return core.FxRateCache{}, err
	}
	fresh := core.FxRateCache{
		UsdToKrw:    rate,
		KrwToUsd:    1 / rate,
		LastUpdated: p.opts.Now(),
		Source:      p.fetcher.Source(),
	}
	if err := p.store.SaveRates(ctx, fresh); err != nil {
		p.logger.WarnContext(ctx, "Failed to persist fx rate", "error", err)
	}
	if p.opts.Observer != nil {
		p.opts.Observer.ObserveRate(rate)
	}
	return fresh, nil
}

// current returns what is cached without contacting upstream.
func (p *Provider) current(ctx context.Context) Rates {
	cached, ok := p.loadCache(ctx)
	if !ok {
		return Fallback(p.opts.Now())
	}
	r := ratesFromCache(cached)
	r.IsStale = p.opts.Now().Sub(cached.LastUpdated) >= p.opts.MinRefreshInterval
	return r
}

func (p *Provider) loadCache(ctx context.Context) (core.FxRateCache, bool) {
	c, ok, err := p.store.LoadRates(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to load cached fx rate", "error", err)
		return core.FxRateCache{}, false
	}
	if ok && c.UsdToKrw <= 0 {
		return core.FxRateCache{}, false
	}
	return c, ok
}

func (p *Provider) observe(outcome string, d time.Duration) {
	if p.opts.Observer != nil {
		p.opts.Observer.ObserveFetch(outcome, d)
	}
}

// Fallback is the snapshot used when no rate has ever been fetched.
func Fallback(now time.Time) Rates {
	r := NewRates(FallbackUsdToKrw, now, FallbackSource)
	r.IsFallback = true
	return r
}

func ratesFromCache(c core.FxRateCache) Rates {
	krw := c.KrwToUsd
	if krw <= 0 {
		krw = 1 / c.UsdToKrw
	}
	return Rates{
		UsdToKrw:    c.UsdToKrw,
		KrwToUsd:    krw,
		LastUpdated: c.LastUpdated,
		Source:      c.Source,
	}
}

// ErrBadRate is returned by fetchers when upstream sent a non-positive rate.
var ErrBadRate = errors.New("fx: upstream returned an invalid rate")
