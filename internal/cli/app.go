package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/backend"
	"subtrack/internal/cache"
	"subtrack/internal/config"
	"subtrack/internal/fx"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
	"subtrack/internal/services"
)

// Dashboard cache sizing. One entry per display currency and day is enough
// for a single user.
const (
	dashboardCacheSize = 16
	dashboardCacheTTL  = 5 * time.Minute
)

// App is the wired object graph both binaries run on.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Metrics *metrics.Collector
	Backend backend.Backend
	Rates   *fx.Provider
	// Broker is nil when AMQP_URL is not set.
	Broker *amqp.Client

	Subscriptions *services.SubscriptionService
	Dashboard     *services.DashboardService
	Settings      *services.SettingsService
	Caches        *cache.Manager

	cleanup func() error
}

// NewApp opens the backend and builds the services on top of it. The caller
// owns the returned App and must Close it.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	appLogger := logger.WithComponent(log.ComponentApp)
	collector := metrics.New()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	appLogger.Info("Backend ready", "type", cfg.DataBackend, "fx_cache", cfg.FXCache)

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: collector,
		Backend: result.Backend,
		cleanup: result.Cleanup,
	}

	a.Rates = fx.NewProvider(result.Rates, fx.NewFrankfurterFetcher(cfg.FXBaseURL, cfg.FXTimeout), fx.Options{
		MinRefreshInterval: cfg.FXMinRefreshInterval,
		ManualCooldown:     cfg.FXManualCooldown,
		Observer:           collector,
		Logger:             logger,
	})

	opts := []services.ServiceOption{services.WithLogger(logger)}
	if cfg.AMQPURL != "" {
		broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPEventsQueue)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
		a.Broker = broker
		opts = append(opts, services.WithPublisher(broker))
		appLogger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange)
	} else {
		appLogger.Info("AMQP disabled - no AMQP_URL provided")
	}

	dashCache := cache.NewLRUCache[services.Dashboard](dashboardCacheSize, dashboardCacheTTL)
	a.Caches = cache.NewManager(logger)
	a.Caches.Register(dashCache)

	a.Subscriptions = services.NewSubscriptionService(result.Backend, opts...)
	a.Dashboard = services.NewDashboardService(result.Backend, result.Backend, a.Rates,
		services.WithDashboardCache(dashCache),
		services.WithCacheObserver(collector),
		services.WithDashboardLogger(logger),
	)
	a.Settings = services.NewSettingsService(result.Backend, a.Dashboard.Reset)

	a.Subscriptions.OnChange(a.Dashboard.Invalidate)
	a.Subscriptions.OnChange(func(_ context.Context, e amqp.SubscriptionEvent) {
		collector.ObserveSubscriptionEvent(string(e.Type))
	})

	return a, nil
}

// ReminderProcessor returns a processor publishing through the broker, or
// nil when no broker is configured.
func (a *App) ReminderProcessor() *services.ReminderProcessor {
	if a.Broker == nil {
		return nil
	}
	p := services.NewReminderProcessor(a.Backend, a.Backend, a.Broker, a.Config.ReminderLeadDays, a.Logger)
	p.SetObserver(a.Metrics)
	return p
}

// Close releases the broker and the backend.
func (a *App) Close() error {
	var errs []error
	if a.Broker != nil {
		if err := a.Broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close broker: %w", err))
		}
	}
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("close backend: %w", err))
		}
	}
	return errors.Join(errs...)
}
