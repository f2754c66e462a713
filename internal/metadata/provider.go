// SPDX-License-Identifier: MIT

// Package metadata resolves IMDb ids to display names and posters through a
// pluggable Provider, memoizing successful lookups only.
package metadata

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that the provider has no entry for an id.
var ErrNotFound = errors.New("metadata not found")

// DefaultTTL is how long a successful lookup is reused.
const DefaultTTL = 24 * time.Hour

// Info is what a provider knows about a title.
type Info struct {
	DisplayName string
	PosterURL   string
}

// Provider looks titles up in an external catalogue.
// Any error, including timeouts, is treated like ErrNotFound by the cache.
type Provider interface {
	Lookup(ctx context.Context, imdbID string) (Info, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, imdbID string) (Info, error)

// Lookup calls f.
func (f ProviderFunc) Lookup(ctx context.Context, imdbID string) (Info, error) {
	return f(ctx, imdbID)
}

// Disabled is a provider that knows nothing; every title resolves to its fallback.
type Disabled struct{}

// Lookup always returns ErrNotFound.
func (Disabled) Lookup(context.Context, string) (Info, error) { return Info{}, ErrNotFound }

// Record is a resolved title as cached and served.
type Record struct {
	DisplayName string    `json:"name"`
	PosterURL   string    `json:"poster"`
	CachedAt    time.Time `json:"cachedAt"`
}

// FallbackPosterURL is the best-effort poster for ids the provider cannot resolve.
func FallbackPosterURL(imdbID string) string {
	return "https://images.metahub.space/poster/small/" + imdbID + "/img"
}

// Fallback synthesizes a record from the raw id.
func Fallback(imdbID string) Record {
	return Record{DisplayName: imdbID, PosterURL: FallbackPosterURL(imdbID)}
}
