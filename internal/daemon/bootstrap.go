// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/modikodi/bridge/internal/api"
	"github.com/modikodi/bridge/internal/bridge"
	"github.com/modikodi/bridge/internal/cache"
	"github.com/modikodi/bridge/internal/config"
	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/health"
	"github.com/modikodi/bridge/internal/log"
	"github.com/modikodi/bridge/internal/metadata"
	"github.com/modikodi/bridge/internal/resume"
	"github.com/modikodi/bridge/internal/telemetry"
	"github.com/modikodi/bridge/internal/upstream"
)

// Store sizes above which readiness reports degraded.
const (
	contentStoreSoftLimit  = 100_000
	resumeStoreSoftLimit   = 100_000
	metadataStoreSoftLimit = 50_000

	redisPingTimeout = 2 * time.Second
)

// Container holds the wired component graph.
type Container struct {
	Config  config.AppConfig
	Service *bridge.Service
	Health  *health.Manager
	Server  *ServerManager
	App     *App
}

// Bootstrap builds every bridge component from cfg. Resources opened here are
// released by the server manager's close hooks.
func Bootstrap(ctx context.Context, cfg config.AppConfig) (*Container, error) {
	logger := log.WithComponent("daemon")

	var (
		hooks    []CloseHook
		janitors []Janitor
		checkers []health.Checker
	)

	tracker := content.NewTracker(cfg.Stores.ContentTTL)
	resumes := resume.NewStore(cfg.Stores.ResumeTTL)
	janitors = append(janitors, tracker.Store(), resumes.Store())
	checkers = append(checkers,
		health.NewStoreChecker("content_store", tracker.Len, contentStoreSoftLimit),
		health.NewStoreChecker("resume_store", resumes.Len, resumeStoreSoftLimit),
	)

	var backend metadata.Backend
	switch cfg.Metadata.Backend {
	case config.BackendRedis:
		rs, err := cache.NewRedisStore[metadata.Record](cache.RedisConfig{
			Name:     "metadata",
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   "mkbridge:meta:",
		}, cfg.Stores.MetadataTTL, log.WithComponent("metadata"))
		if err != nil {
			return nil, fmt.Errorf("metadata backend: %w", err)
		}
		backend = rs
		hooks = append(hooks, CloseHook{Name: "redis", Close: func(context.Context) error { return rs.Close() }})
		checkers = append(checkers, health.NewPingChecker("redis", redisPingTimeout, rs.HealthCheck))
	default:
		ms := cache.New[metadata.Record](cfg.Stores.MetadataTTL, cache.WithName("metadata"))
		backend = ms
		janitors = append(janitors, ms)
		checkers = append(checkers, health.NewStoreChecker("metadata_store", ms.Len, metadataStoreSoftLimit))
	}

	var provider metadata.Provider = metadata.Disabled{}
	if cfg.TMDB.APIKey != "" {
		provider = metadata.NewTMDB(metadata.TMDBConfig{
			APIKey:            cfg.TMDB.APIKey,
			BaseURL:           cfg.TMDB.BaseURL,
			Timeout:           cfg.Timeouts.Metadata,
			RequestsPerSecond: cfg.TMDB.RPS,
			Logger:            log.WithComponent("tmdb"),
		})
	} else {
		logger.Warn().
			Str(log.FieldEvent, "metadata.provider.disabled").
			Msg("no TMDB API key configured, catalog uses fallback posters")
	}

	svc, err := bridge.New(bridge.Deps{
		Tracker:  tracker,
		Resume:   resumes,
		Metadata: metadata.NewCache(backend, provider, cfg.Timeouts.Metadata, log.WithComponent("metadata")),
		Upstream: upstream.NewClient(cfg.Timeouts.Upstream, nil, log.WithComponent("upstream")),
		Logger:   log.WithComponent("bridge"),
		Version:  cfg.Version,
	})
	if err != nil {
		return nil, err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    "mkbridge",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	hooks = append(hooks, CloseHook{Name: "telemetry", Close: tp.Shutdown})

	hm := health.NewManager(cfg.Version)
	for _, c := range checkers {
		hm.RegisterChecker(c)
	}

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = "mkbridge"
	}
	srv := api.NewServer(api.Config{
		AllowedOrigins:  cfg.CORS.Origins,
		EnableMetrics:   cfg.Metrics.Enabled,
		TracingService:  tracingService,
		EnableRateLimit: cfg.RateLimit.Enabled,
		RateLimit:       cfg.RateLimit.Requests,
		RateWindow:      cfg.RateLimit.Window,
	}, svc, hm)

	mgr, err := NewManager(ServerConfig{
		ListenAddr:      cfg.ListenAddr,
		ShutdownTimeout: cfg.Timeouts.Shutdown,
	}, srv.Handler(), log.WithComponent("api"), hooks...)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:  cfg,
		Service: svc,
		Health:  hm,
		Server:  mgr,
		App:     NewApp(logger, mgr, cfg.Stores.SweepInterval, janitors...),
	}, nil
}
