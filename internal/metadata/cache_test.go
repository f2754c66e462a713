// SPDX-License-Identifier: MIT

package metadata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modikodi/bridge/internal/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls atomic.Int32
	fn    func(ctx context.Context, id string) (Info, error)
}

func (p *fakeProvider) Lookup(ctx context.Context, id string) (Info, error) {
	p.calls.Add(1)
	return p.fn(ctx, id)
}

func newMemoryCache(p Provider, timeout time.Duration) *Cache {
	return NewCache(cache.New[Record](DefaultTTL), p, timeout, zerolog.Nop())
}

func TestCache_MemoizesSuccess(t *testing.T) {
	p := &fakeProvider{fn: func(context.Context, string) (Info, error) {
		return Info{DisplayName: "The Shawshank Redemption", PosterURL: "https://img/p.jpg"}, nil
	}}
	c := newMemoryCache(p, time.Second)

	first := c.Resolve(context.Background(), "tt0111161")
	second := c.Resolve(context.Background(), "tt0111161")

	assert.Equal(t, "The Shawshank Redemption", first.DisplayName)
	assert.Equal(t, "https://img/p.jpg", first.PosterURL)
	assert.False(t, first.CachedAt.IsZero())
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCache_FallbackIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	p := &fakeProvider{fn: func(context.Context, string) (Info, error) {
		if fail.Load() {
			return Info{}, errors.New("provider down")
		}
		return Info{DisplayName: "Recovered", PosterURL: "https://img/r.jpg"}, nil
	}}
	c := newMemoryCache(p, time.Second)

	rec := c.Resolve(context.Background(), "tt0111161")
	assert.Equal(t, Fallback("tt0111161"), rec)
	assert.Equal(t, "https://images.metahub.space/poster/small/tt0111161/img", rec.PosterURL)

	fail.Store(false)
	rec = c.Resolve(context.Background(), "tt0111161")
	assert.Equal(t, "Recovered", rec.DisplayName, "outage must self-heal on the next request")
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestCache_NotFoundFallsBack(t *testing.T) {
	c := newMemoryCache(Disabled{}, time.Second)
	assert.Equal(t, Fallback("tt1"), c.Resolve(context.Background(), "tt1"))
}

func TestCache_TimeoutFallsBack(t *testing.T) {
	p := &fakeProvider{fn: func(ctx context.Context, _ string) (Info, error) {
		<-ctx.Done()
		return Info{}, ctx.Err()
	}}
	c := newMemoryCache(p, 20*time.Millisecond)

	start := time.Now()
	rec := c.Resolve(context.Background(), "tt0111161")
	assert.Equal(t, Fallback("tt0111161"), rec)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCache_EmptyFieldsAreFilled(t *testing.T) {
	p := &fakeProvider{fn: func(context.Context, string) (Info, error) { return Info{}, nil }}
	c := newMemoryCache(p, time.Second)

	rec := c.Resolve(context.Background(), "tt9")
	assert.Equal(t, "tt9", rec.DisplayName)
	assert.Equal(t, FallbackPosterURL("tt9"), rec.PosterURL)
}

func TestCache_CollapsesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	p := &fakeProvider{fn: func(context.Context, string) (Info, error) {
		<-release
		return Info{DisplayName: "Shared"}, nil
	}}
	c := newMemoryCache(p, time.Second)

	var wg sync.WaitGroup
	results := make([]Record, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Resolve(context.Background(), "tt0111161")
		}(i)
	}

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "Shared", r.DisplayName)
	}
	assert.LessOrEqual(t, p.calls.Load(), int32(2))
}
