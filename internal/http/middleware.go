package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"subtrack/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// requestID returns the caller's X-Request-ID when it is reasonable, or a
// fresh one.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" && len(id) <= 64 {
		return id
	}
	return generateRequestID()
}

// RequestIDFromContext returns the id assigned to the current request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// trace assigns the request id, logs the outcome and records metrics under
// the matched route pattern.
func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		id := requestID(r)

		logger := log.FromContext(r.Context()).With(log.NewFields().WithRequestID(id).ToSlice()...)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = log.NewContext(ctx, logger)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", id)

		if reason := suspiciousReason(r); reason != "" {
			s.logger.WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				"reason", reason, "client_ip", clientIP, "method", r.Method, "path", r.URL.Path)
		}

		if s.deps.Metrics != nil {
			s.deps.Metrics.RequestsInFlight.Inc()
			defer s.deps.Metrics.RequestsInFlight.Dec()
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		log.NewStructuredLogger(logger).LogHTTPEnd(ctx, r, status, duration.Milliseconds(), clientIP)
		if s.deps.Metrics != nil {
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			s.deps.Metrics.ObserveRequest(r.Method, route, status, duration)
		}
	})
}

// limitMutations applies the per-IP limit to requests that change state.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		clientIP := extractClientIP(r)
		if ok, retry := s.rateLimiter.allow(clientIP); !ok {
			s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "path", r.URL.Path)
			if s.deps.Metrics != nil {
				s.deps.Metrics.ObserveRateLimited()
			}
			w.Header().Set("Retry-After", retryAfter(retry))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retryAfter renders d as whole seconds, rounded up and at least one.
func retryAfter(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
