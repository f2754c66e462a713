// SPDX-License-Identifier: MIT

// Package config loads the bridge configuration with precedence
// ENV > YAML file > defaults.
package config

import "time"

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version    string
	ListenAddr string
	LogLevel   string

	Stores   StoresConfig
	Timeouts TimeoutsConfig

	RateLimit RateLimitConfig
	CORS      CORSConfig
	TMDB      TMDBConfig
	Metadata  MetadataConfig
	Redis     RedisConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig
}

// StoresConfig sets the TTL of each store and the janitor interval.
type StoresConfig struct {
	ContentTTL    time.Duration
	ResumeTTL     time.Duration
	MetadataTTL   time.Duration
	SweepInterval time.Duration
}

// TimeoutsConfig bounds outbound calls and shutdown.
type TimeoutsConfig struct {
	Metadata time.Duration
	Upstream time.Duration
	Shutdown time.Duration
}

// RateLimitConfig is the edge limit per client identity.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// CORSConfig lists allowed origins; "*" allows all.
type CORSConfig struct {
	Origins []string
}

// TMDBConfig configures the metadata provider. An empty APIKey disables it.
type TMDBConfig struct {
	APIKey  string
	BaseURL string
	RPS     float64
}

// Metadata cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// MetadataConfig selects where resolved metadata is cached.
type MetadataConfig struct {
	Backend string
}

// RedisConfig is used when the metadata backend is redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MetricsConfig toggles the Prometheus endpoint and HTTP metrics.
type MetricsConfig struct {
	Enabled bool
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled    bool
	Exporter   string
	Endpoint   string
	SampleRate float64
}

// FileConfig mirrors AppConfig for YAML. Pointers distinguish "unset" from zero values.
type FileConfig struct {
	ListenAddr *string `yaml:"listenAddr"`
	LogLevel   *string `yaml:"logLevel"`

	Stores struct {
		ContentTTL    *string `yaml:"contentTTL"`
		ResumeTTL     *string `yaml:"resumeTTL"`
		MetadataTTL   *string `yaml:"metadataTTL"`
		SweepInterval *string `yaml:"sweepInterval"`
	} `yaml:"stores"`

	Timeouts struct {
		Metadata *string `yaml:"metadata"`
		Upstream *string `yaml:"upstream"`
		Shutdown *string `yaml:"shutdown"`
	} `yaml:"timeouts"`

	RateLimit struct {
		Enabled  *bool   `yaml:"enabled"`
		Requests *int    `yaml:"requests"`
		Window   *string `yaml:"window"`
	} `yaml:"rateLimit"`

	CORS struct {
		Origins []string `yaml:"origins"`
	} `yaml:"cors"`

	TMDB struct {
		APIKey  *string  `yaml:"apiKey"`
		BaseURL *string  `yaml:"baseURL"`
		RPS     *float64 `yaml:"rps"`
	} `yaml:"tmdb"`

	Metadata struct {
		Backend *string `yaml:"backend"`
	} `yaml:"metadata"`

	Redis struct {
		Addr     *string `yaml:"addr"`
		Password *string `yaml:"password"`
		DB       *int    `yaml:"db"`
	} `yaml:"redis"`

	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Tracing struct {
		Enabled    *bool    `yaml:"enabled"`
		Exporter   *string  `yaml:"exporter"`
		Endpoint   *string  `yaml:"endpoint"`
		SampleRate *float64 `yaml:"sampleRate"`
	} `yaml:"tracing"`
}
