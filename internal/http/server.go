// Package http serves the JSON API, the payment calendar feed and the
// Prometheus endpoint.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"subtrack/internal/fx"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
	"subtrack/internal/services"
)

// RateProvider is the part of *fx.Provider the API uses.
type RateProvider interface {
	Rates(ctx context.Context) fx.Rates
	ManualRefresh(ctx context.Context) (fx.Rates, bool)
	ManualRefreshRemaining() time.Duration
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Subscriptions *services.SubscriptionService
	Dashboard     *services.DashboardService
	Settings      *services.SettingsService
	Rates         RateProvider
	Metrics       *metrics.Collector
	Logger        *log.Logger

	// Ready reports whether the backing store answers; nil means always ready.
	Ready func(ctx context.Context) error

	AllowedOrigins     []string
	RateLimitPerMinute int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type Server struct {
	http.Server
	deps        Deps
	logger      *log.Logger
	rateLimiter *rateLimiter
	started     time.Time
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer wires the router and returns a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		deps:        deps,
		logger:      deps.Logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(deps.RateLimitPerMinute),
		now:         deps.Now,
	}
	s.started = s.now()
	s.rateLimiter.now = s.now

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(s.trace)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(s.limitMutations)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}
	r.Get("/calendar.ics", s.handleCalendar)

	r.Route("/api", func(r chi.Router) {
		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", s.handleListSubscriptions)
			r.Post("/", s.handleCreateSubscription)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSubscription)
				r.Patch("/", s.handleUpdateSubscription)
				r.Delete("/", s.handleDeleteSubscription)
				r.Post("/end", s.handleEndSubscription)
				r.Post("/reactivate", s.handleReactivateSubscription)
			})
		})

		r.Route("/payment-methods", func(r chi.Router) {
			r.Get("/", s.handleListPaymentMethods)
			r.Post("/", s.handleCreatePaymentMethod)
			r.Patch("/{id}", s.handleUpdatePaymentMethod)
			r.Delete("/{id}", s.handleDeletePaymentMethod)
		})

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/schedule", s.handleSchedule)
		r.Get("/ytd", s.handleYearToDate)
		r.Get("/month", s.handleCurrentMonth)
		r.Get("/breakdown", s.handleBreakdown)

		r.Get("/fx", s.handleRates)
		r.Post("/fx/refresh", s.handleRefreshRates)

		r.Get("/settings", s.handleGetSettings)
		r.Patch("/settings", s.handleUpdateSettings)
	})

	return r
}

// Start runs the limiter cleanup and serves until Shutdown.
func (s *Server) Start() error {
	go s.rateLimiter.startCleanup(5 * time.Minute)
	s.logger.Info("HTTP server listening", "addr", s.Addr)
	return s.ListenAndServe()
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
