// SPDX-License-Identifier: MIT

package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/modikodi/bridge/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultLookupTimeout bounds a single provider call.
const DefaultLookupTimeout = 5 * time.Second

// Backend stores resolved records with its own TTL.
// Both the in-memory cache.Store and cache.RedisStore satisfy it.
type Backend interface {
	Get(key string) (Record, bool)
	Set(key string, rec Record)
}

// Cache is a cache-aside front for a Provider.
type Cache struct {
	backend  Backend
	provider Provider
	timeout  time.Duration
	now      func() time.Time
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewCache wires a backend and a provider. A non-positive timeout uses DefaultLookupTimeout.
func NewCache(backend Backend, provider Provider, timeout time.Duration, logger zerolog.Logger) *Cache {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	if provider == nil {
		provider = Disabled{}
	}
	return &Cache{
		backend:  backend,
		provider: provider,
		timeout:  timeout,
		now:      time.Now,
		logger:   logger,
	}
}

// Resolve returns the cached record for imdbID, fetching it on a miss.
// Provider failures yield Fallback(imdbID), which is never cached.
func (c *Cache) Resolve(ctx context.Context, imdbID string) Record {
	if rec, ok := c.backend.Get(imdbID); ok {
		metrics.RecordMetadataLookup("hit")
		return rec
	}

	v, err, _ := c.group.Do(imdbID, func() (any, error) {
		// Shared by every waiter, so only the timeout bounds it.
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		info, err := c.provider.Lookup(lookupCtx, imdbID)
		if err != nil {
			return nil, err
		}
		rec := Record{DisplayName: info.DisplayName, PosterURL: info.PosterURL, CachedAt: c.now()}
		if rec.DisplayName == "" {
			rec.DisplayName = imdbID
		}
		if rec.PosterURL == "" {
			rec.PosterURL = FallbackPosterURL(imdbID)
		}
		c.backend.Set(imdbID, rec)
		return rec, nil
	})
	if err != nil {
		event := c.logger.Warn()
		if errors.Is(err, ErrNotFound) {
			event = c.logger.Debug()
		}
		event.Err(err).
			Str("event", "metadata.fallback").
			Str("imdb", imdbID).
			Msg("metadata lookup failed, using fallback")
		metrics.RecordMetadataLookup("fallback")
		return Fallback(imdbID)
	}

	metrics.RecordMetadataLookup("fetched")
	return v.(Record)
}
