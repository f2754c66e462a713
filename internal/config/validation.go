// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks a resolved configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.ListenAddr == "" {
		fail("listen address is empty")
	}
	for name, d := range map[string]time.Duration{
		"stores.contentTTL":    cfg.Stores.ContentTTL,
		"stores.resumeTTL":     cfg.Stores.ResumeTTL,
		"stores.metadataTTL":   cfg.Stores.MetadataTTL,
		"stores.sweepInterval": cfg.Stores.SweepInterval,
		"timeouts.metadata":    cfg.Timeouts.Metadata,
		"timeouts.upstream":    cfg.Timeouts.Upstream,
		"timeouts.shutdown":    cfg.Timeouts.Shutdown,
	} {
		if d <= 0 {
			fail("%s must be positive, got %s", name, d)
		}
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Requests <= 0 {
			fail("rateLimit.requests must be positive, got %d", cfg.RateLimit.Requests)
		}
		if cfg.RateLimit.Window <= 0 {
			fail("rateLimit.window must be positive, got %s", cfg.RateLimit.Window)
		}
	}
	if cfg.TMDB.RPS < 0 {
		fail("tmdb.rps must not be negative")
	}
	switch cfg.Metadata.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			fail("redis.addr is required for the redis metadata backend")
		}
	default:
		fail("metadata.backend %q is not one of memory, redis", cfg.Metadata.Backend)
	}
	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "grpc", "http":
		default:
			fail("tracing.exporter %q is not one of grpc, http", cfg.Tracing.Exporter)
		}
		if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
			fail("tracing.sampleRate must be within [0, 1]")
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
