// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath skips the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load resolves defaults, then the YAML file (strict), then the environment, and validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFile(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr: ":7515",
		LogLevel:   "info",
		Stores: StoresConfig{
			ContentTTL:    2 * time.Minute,
			ResumeTTL:     7 * 24 * time.Hour,
			MetadataTTL:   24 * time.Hour,
			SweepInterval: 30 * time.Second,
		},
		Timeouts: TimeoutsConfig{
			Metadata: 5 * time.Second,
			Upstream: 15 * time.Second,
			Shutdown: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{Enabled: true, Requests: 100, Window: time.Minute},
		CORS:      CORSConfig{Origins: []string{"*"}},
		TMDB:      TMDBConfig{BaseURL: "https://api.themoviedb.org", RPS: 20},
		Metadata:  MetadataConfig{Backend: BackendMemory},
		Redis:     RedisConfig{Addr: "localhost:6379"},
		Metrics:   MetricsConfig{Enabled: true},
		Tracing:   TracingConfig{Exporter: "grpc", Endpoint: "localhost:4317", SampleRate: 1},
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string, field string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func mergeFile(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.ListenAddr, f.ListenAddr)
	setString(&cfg.LogLevel, f.LogLevel)

	errs := []error{
		setDuration(&cfg.Stores.ContentTTL, f.Stores.ContentTTL, "stores.contentTTL"),
		setDuration(&cfg.Stores.ResumeTTL, f.Stores.ResumeTTL, "stores.resumeTTL"),
		setDuration(&cfg.Stores.MetadataTTL, f.Stores.MetadataTTL, "stores.metadataTTL"),
		setDuration(&cfg.Stores.SweepInterval, f.Stores.SweepInterval, "stores.sweepInterval"),
		setDuration(&cfg.Timeouts.Metadata, f.Timeouts.Metadata, "timeouts.metadata"),
		setDuration(&cfg.Timeouts.Upstream, f.Timeouts.Upstream, "timeouts.upstream"),
		setDuration(&cfg.Timeouts.Shutdown, f.Timeouts.Shutdown, "timeouts.shutdown"),
		setDuration(&cfg.RateLimit.Window, f.RateLimit.Window, "rateLimit.window"),
	}

	setValue(&cfg.RateLimit.Enabled, f.RateLimit.Enabled)
	setValue(&cfg.RateLimit.Requests, f.RateLimit.Requests)
	if f.CORS.Origins != nil {
		cfg.CORS.Origins = f.CORS.Origins
	}
	setString(&cfg.TMDB.APIKey, f.TMDB.APIKey)
	setString(&cfg.TMDB.BaseURL, f.TMDB.BaseURL)
	setValue(&cfg.TMDB.RPS, f.TMDB.RPS)
	setString(&cfg.Metadata.Backend, f.Metadata.Backend)
	setString(&cfg.Redis.Addr, f.Redis.Addr)
	setString(&cfg.Redis.Password, f.Redis.Password)
	setValue(&cfg.Redis.DB, f.Redis.DB)
	setValue(&cfg.Metrics.Enabled, f.Metrics.Enabled)
	setValue(&cfg.Tracing.Enabled, f.Tracing.Enabled)
	setString(&cfg.Tracing.Exporter, f.Tracing.Exporter)
	setString(&cfg.Tracing.Endpoint, f.Tracing.Endpoint)
	setValue(&cfg.Tracing.SampleRate, f.Tracing.SampleRate)

	return errors.Join(errs...)
}

func (l *Loader) consume(key string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	// PORT is honored for platform compatibility; BRIDGE_LISTEN wins.
	if port := ParseString(l.consume("PORT"), ""); port != "" {
		cfg.ListenAddr = ":" + port
	}
	cfg.ListenAddr = ParseString(l.consume("BRIDGE_LISTEN"), cfg.ListenAddr)
	cfg.LogLevel = ParseString(l.consume("BRIDGE_LOG_LEVEL"), cfg.LogLevel)

	cfg.Stores.ContentTTL = ParseDuration(l.consume("BRIDGE_CONTENT_TTL"), cfg.Stores.ContentTTL)
	cfg.Stores.ResumeTTL = ParseDuration(l.consume("BRIDGE_RESUME_TTL"), cfg.Stores.ResumeTTL)
	cfg.Stores.MetadataTTL = ParseDuration(l.consume("BRIDGE_METADATA_TTL"), cfg.Stores.MetadataTTL)
	cfg.Stores.SweepInterval = ParseDuration(l.consume("BRIDGE_SWEEP_INTERVAL"), cfg.Stores.SweepInterval)

	cfg.Timeouts.Metadata = ParseDuration(l.consume("BRIDGE_METADATA_TIMEOUT"), cfg.Timeouts.Metadata)
	cfg.Timeouts.Upstream = ParseDuration(l.consume("BRIDGE_UPSTREAM_TIMEOUT"), cfg.Timeouts.Upstream)
	cfg.Timeouts.Shutdown = ParseDuration(l.consume("BRIDGE_SHUTDOWN_TIMEOUT"), cfg.Timeouts.Shutdown)

	cfg.RateLimit.Enabled = ParseBool(l.consume("BRIDGE_RATELIMIT_ENABLED"), cfg.RateLimit.Enabled)
	cfg.RateLimit.Requests = ParseInt(l.consume("BRIDGE_RATELIMIT_REQUESTS"), cfg.RateLimit.Requests)
	cfg.RateLimit.Window = ParseDuration(l.consume("BRIDGE_RATELIMIT_WINDOW"), cfg.RateLimit.Window)

	cfg.CORS.Origins = ParseStringSlice(l.consume("BRIDGE_CORS_ORIGINS"), cfg.CORS.Origins)

	cfg.TMDB.APIKey = ParseString(l.consume("BRIDGE_TMDB_API_KEY"), cfg.TMDB.APIKey)
	cfg.TMDB.BaseURL = ParseString(l.consume("BRIDGE_TMDB_BASE_URL"), cfg.TMDB.BaseURL)
	cfg.TMDB.RPS = ParseFloat(l.consume("BRIDGE_TMDB_RPS"), cfg.TMDB.RPS)

	cfg.Metadata.Backend = ParseString(l.consume("BRIDGE_METADATA_BACKEND"), cfg.Metadata.Backend)
	cfg.Redis.Addr = ParseString(l.consume("BRIDGE_REDIS_ADDR"), cfg.Redis.Addr)
	cfg.Redis.Password = ParseString(l.consume("BRIDGE_REDIS_PASSWORD"), cfg.Redis.Password)
	cfg.Redis.DB = ParseInt(l.consume("BRIDGE_REDIS_DB"), cfg.Redis.DB)

	cfg.Metrics.Enabled = ParseBool(l.consume("BRIDGE_METRICS_ENABLED"), cfg.Metrics.Enabled)

	cfg.Tracing.Enabled = ParseBool(l.consume("BRIDGE_TRACING_ENABLED"), cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = ParseString(l.consume("BRIDGE_TRACING_EXPORTER"), cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = ParseString(l.consume("BRIDGE_TRACING_ENDPOINT"), cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRate = ParseFloat(l.consume("BRIDGE_TRACING_SAMPLE_RATE"), cfg.Tracing.SampleRate)
}
