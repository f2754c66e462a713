// SPDX-License-Identifier: MIT

// Package api exposes the bridge over HTTP: the addon protocol endpoints for
// the discovery client and the identify/resume endpoints for the player.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modikodi/bridge/internal/api/middleware"
	"github.com/modikodi/bridge/internal/bridge"
	"github.com/modikodi/bridge/internal/health"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config selects the optional parts of the HTTP surface.
type Config struct {
	AllowedOrigins  []string
	EnableMetrics   bool
	TracingService  string
	EnableRateLimit bool
	RateLimit       int
	RateWindow      time.Duration
}

// Server holds the handler dependencies.
type Server struct {
	svc    *bridge.Service
	health *health.Manager
	cfg    Config
}

// NewServer builds a Server. A nil health manager serves probes with no checkers.
func NewServer(cfg Config, svc *bridge.Service, hm *health.Manager) *Server {
	if hm == nil {
		hm = health.NewManager(svc.Version().Version)
	}
	return &Server{svc: svc, health: hm, cfg: cfg}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins:  s.cfg.AllowedOrigins,
		EnableMetrics:   s.cfg.EnableMetrics,
		TracingService:  s.cfg.TracingService,
		EnableLogging:   true,
		EnableRateLimit: s.cfg.EnableRateLimit,
		RateLimit:       s.cfg.RateLimit,
		RateWindow:      s.cfg.RateWindow,
	})
	s.routes(r)
	return r
}

func (s *Server) routes(r chi.Router) {
	r.Get("/", http.RedirectHandler("/manifest.json", http.StatusFound).ServeHTTP)
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	if s.cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Zero-config addon
	r.Get("/manifest.json", s.handleManifest)
	r.Get("/catalog/{type}/"+bridge.CatalogID+".json", s.handleCatalog)
	r.Get("/stream/{type}/{id}.json", s.handleStream)

	// Player side-channel
	r.Get("/version", s.handleVersion)
	r.Get("/identify", s.handleIdentify)
	r.Post("/resume", s.handleResume)

	// Wrapper addon; the first segment is the encoded upstream origin.
	r.Get("/{upstream}/manifest.json", s.handleWrappedManifest)
	r.Get("/{upstream}/stream/{type}/{id}.json", s.handleWrappedStream)
}
