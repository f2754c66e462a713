// SPDX-License-Identifier: MIT

package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modikodi/bridge/internal/log"
	"github.com/modikodi/bridge/internal/platform/httpx"
	"github.com/modikodi/bridge/internal/resilience"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultTMDBBaseURL is the public TMDB v3 API origin.
	DefaultTMDBBaseURL = "https://api.themoviedb.org"
	// DefaultTMDBImageBaseURL serves w342 posters.
	DefaultTMDBImageBaseURL = "https://image.tmdb.org/t/p/w342"

	maxTMDBBody = 1 << 20
)

// ErrBadStatus reports a non-2xx provider response.
var ErrBadStatus = errors.New("unexpected provider status")

// TMDBConfig configures the TMDB provider.
type TMDBConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Timeout      time.Duration
	// RequestsPerSecond throttles outbound calls; 0 disables throttling.
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            zerolog.Logger
}

// TMDB resolves IMDb ids through TMDB's /find endpoint.
type TMDB struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	client       *http.Client
	limiter      *rate.Limiter
	breaker      *resilience.CircuitBreaker
	logger       zerolog.Logger
}

// NewTMDB creates a TMDB provider.
func NewTMDB(cfg TMDBConfig) *TMDB {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTMDBBaseURL
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = DefaultTMDBImageBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = httpx.NewClient(cfg.Timeout)
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &TMDB{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		client:       client,
		limiter:      limiter,
		breaker: resilience.NewCircuitBreaker("tmdb", 5, 30*time.Second,
			resilience.WithFailureFilter(func(err error) bool { return !errors.Is(err, ErrNotFound) })),
		logger: cfg.Logger,
	}
}

type findResult struct {
	Title      string `json:"title"`
	Name       string `json:"name"`
	PosterPath string `json:"poster_path"`
}

type findResponse struct {
	MovieResults []findResult `json:"movie_results"`
	TVResults    []findResult `json:"tv_results"`
}

// Lookup implements Provider.
func (t *TMDB) Lookup(ctx context.Context, imdbID string) (Info, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Info{}, fmt.Errorf("tmdb throttle: %w", err)
	}

	var info Info
	err := t.breaker.Execute(func() error {
		var err error
		info, err = t.find(ctx, imdbID)
		return err
	})
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
	case errors.Is(err, resilience.ErrCircuitOpen):
		t.logger.Warn().Err(err).
			Str(log.FieldEvent, "tmdb.circuit_open").
			Str(log.FieldIMDb, imdbID).
			Msg("tmdb lookup rejected by open breaker")
	default:
		t.logger.Debug().Err(err).
			Str(log.FieldEvent, "tmdb.lookup_failed").
			Str(log.FieldIMDb, imdbID).
			Msg("tmdb lookup failed")
	}
	return info, err
}

func (t *TMDB) find(ctx context.Context, imdbID string) (Info, error) {
	q := url.Values{}
	q.Set("api_key", t.apiKey)
	q.Set("external_source", "imdb_id")
	endpoint := t.baseURL + "/3/find/" + url.PathEscape(imdbID) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Info{}, fmt.Errorf("tmdb request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := t.client.Do(req)
	if err != nil {
		// url.Error carries the request URL, which holds the api key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return Info{}, fmt.Errorf("tmdb find %s: %w", imdbID, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxTMDBBody))
		return Info{}, fmt.Errorf("tmdb find %s: %w: %d", imdbID, ErrBadStatus, res.StatusCode)
	}

	var payload findResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxTMDBBody)).Decode(&payload); err != nil {
		return Info{}, fmt.Errorf("tmdb decode %s: %w", imdbID, err)
	}

	var item *findResult
	switch {
	case len(payload.MovieResults) > 0:
		item = &payload.MovieResults[0]
	case len(payload.TVResults) > 0:
		item = &payload.TVResults[0]
	default:
		return Info{}, ErrNotFound
	}

	info := Info{DisplayName: imdbID, PosterURL: FallbackPosterURL(imdbID)}
	switch {
	case item.Title != "":
		info.DisplayName = item.Title
	case item.Name != "":
		info.DisplayName = item.Name
	}
	if item.PosterPath != "" {
		info.PosterURL = t.imageBaseURL + item.PosterPath
	}
	return info, nil
}
