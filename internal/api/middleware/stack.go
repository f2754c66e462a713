// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP ingress stack shared by every bridge route.
package middleware

import (
	"time"

	"github.com/go-chi/chi/v5"
	bridgelog "github.com/modikodi/bridge/internal/log"
)

// StackConfig configures the canonical HTTP ingress middleware stack.
type StackConfig struct {
	// CORS; "*" allows every origin.
	AllowedOrigins []string

	// Observability
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// Rate limiting, keyed by client identity.
	EnableRateLimit bool
	RateLimit       int
	RateWindow      time.Duration
}

// NewRouter constructs a chi router with the canonical middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// 1. Recoverer (outermost safety net)
	r.Use(Recoverer)
	// 2. RequestID and client identity (correlation early)
	r.Use(RequestID)
	r.Use(ClientIdentity)
	// 3. CORS, before anything can reject a preflight
	r.Use(CORS(cfg.AllowedOrigins))
	// 4. Metrics
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	// 5. Tracing
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	// 6. Logging (captures full latency, including rate limit rejections)
	if cfg.EnableLogging {
		r.Use(bridgelog.Middleware())
	}
	// 7. Rate limit
	if cfg.EnableRateLimit {
		r.Use(RateLimit(RateLimitConfig{RequestLimit: cfg.RateLimit, WindowSize: cfg.RateWindow}))
	}
}
