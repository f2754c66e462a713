// SPDX-License-Identifier: MIT

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/log"
	"github.com/modikodi/bridge/internal/metrics"
	"github.com/modikodi/bridge/internal/platform/httpx"
	"github.com/modikodi/bridge/internal/resilience"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a whole upstream stream fetch.
	DefaultTimeout = 15 * time.Second

	maxStreamsBody = 8 << 20

	// maxBreakers caps per-origin breaker state; tokens are caller-controlled.
	maxBreakers = 1024
)

// ErrBadStatus reports a non-2xx upstream response.
var ErrBadStatus = errors.New("upstream returned non-success status")

// Client fetches stream lists from delegate addons.
type Client struct {
	http    *http.Client
	timeout time.Duration
	logger  zerolog.Logger

	mu         sync.Mutex
	breakers   map[string]*resilience.CircuitBreaker
	breakerCap int
}

// NewClient creates an upstream client. A nil httpClient gets a hardened default
// whose response header timeout matches the fetch timeout.
func NewClient(timeout time.Duration, httpClient *http.Client, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = httpx.NewClient(timeout, httpx.WithResponseHeaderTimeout(timeout))
	}
	return &Client{
		http:     httpClient,
		timeout:  timeout,
		logger:     logger,
		breakers:   make(map[string]*resilience.CircuitBreaker),
		breakerCap: maxBreakers,
	}
}

type streamsResponse struct {
	Streams []Stream `json:"streams"`
}

// Streams fetches <base>/stream/<type>/<id>.json.
func (c *Client) Streams(ctx context.Context, base string, typ content.Type, rawID string) ([]Stream, error) {
	start := time.Now()
	endpoint := base + "/stream/" + url.PathEscape(string(typ)) + "/" + url.PathEscape(rawID) + ".json"

	var streams []Stream
	err := c.breaker(base).Execute(func() error {
		var err error
		streams, err = c.fetch(ctx, endpoint)
		return err
	})

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = "circuit_open"
	case errors.Is(err, ErrBadStatus):
		outcome = "bad_status"
	default:
		outcome = "error"
	}
	elapsed := time.Since(start)
	metrics.RecordUpstreamFetch(outcome, elapsed.Seconds())

	if err != nil {
		ev := c.logger.Debug()
		if outcome == "circuit_open" {
			ev = c.logger.Warn()
		}
		ev.Err(err).
			Str(log.FieldEvent, "upstream."+outcome).
			Str(log.FieldUpstream, base).
			Float64(log.FieldDuration, float64(elapsed.Microseconds())/1000).
			Msg("upstream stream fetch did not complete")
		return nil, err
	}
	return streams, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream fetch: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxStreamsBody))
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, res.StatusCode)
	}

	var payload streamsResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxStreamsBody)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("upstream decode: %w", err)
	}
	return payload.Streams, nil
}

// breaker returns the circuit breaker for one upstream origin. All origins share
// the "upstream" metrics component, so the breaker gauge counts origins per state.
func (c *Client) breaker(base string) *resilience.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[base]
	if !ok {
		if len(c.breakers) >= c.breakerCap {
			for _, old := range c.breakers {
				old.Release()
			}
			c.breakers = make(map[string]*resilience.CircuitBreaker)
			c.logger.Info().Str(log.FieldEvent, "upstream.breakers_reset").Int("cap", c.breakerCap).Msg("per-origin breaker table full, reset")
		}
		cb = resilience.NewCircuitBreaker("upstream", 5, 30*time.Second)
		c.breakers[base] = cb
	}
	return cb
}
