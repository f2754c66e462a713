// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/modikodi/bridge/internal/cache"
	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/metadata"
	"github.com/modikodi/bridge/internal/resume"
	"github.com/modikodi/bridge/internal/upstream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeResolver struct {
	names map[string]string
}

func (f fakeResolver) Resolve(_ context.Context, imdbID string) metadata.Record {
	if name, ok := f.names[imdbID]; ok {
		return metadata.Record{DisplayName: name, PosterURL: "https://img.test/" + imdbID + ".jpg"}
	}
	return metadata.Fallback(imdbID)
}

type fakeFetcher struct {
	mu      sync.Mutex
	streams []upstream.Stream
	err     error
	calls   []string
}

func (f *fakeFetcher) Streams(_ context.Context, base string, typ content.Type, rawID string) ([]upstream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, base+"|"+string(typ)+"|"+rawID)
	return f.streams, f.err
}

type fixture struct {
	svc     *Service
	clock   *fakeClock
	fetcher *fakeFetcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{}
	svc, err := New(Deps{
		Tracker:  content.NewTracker(content.DefaultTTL, cache.WithClock(clock)),
		Resume:   resume.NewStore(resume.DefaultTTL, cache.WithClock(clock)),
		Metadata: fakeResolver{names: map[string]string{"tt0111161": "The Shawshank Redemption", "tt0944947": "Game of Thrones"}},
		Upstream: fetcher,
		Logger:   zerolog.Nop(),
		Version:  "3.0.0",
	})
	require.NoError(t, err)
	return &fixture{svc: svc, clock: clock, fetcher: fetcher}
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestIdentify_NotFound(t *testing.T) {
	f := newFixture(t)

	got := f.svc.Identify("203.0.113.7")
	assert.False(t, got.Found)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"found":false}`, string(raw))
}

func TestIdentify_ExpiresAfterContentTTL(t *testing.T) {
	f := newFixture(t)

	f.svc.RecordStream("203.0.113.7", content.TypeMovie, "tt0111161")

	f.clock.Advance(2 * time.Minute)
	got := f.svc.Identify("203.0.113.7")
	require.True(t, got.Found)
	assert.Equal(t, "tt0111161", got.IMDb)

	f.clock.Advance(time.Second)
	assert.False(t, f.svc.Identify("203.0.113.7").Found)
}

func TestIdentify_MovieWireShape(t *testing.T) {
	f := newFixture(t)
	f.svc.RecordStream("localhost", content.TypeMovie, "tt0111161")

	raw, err := json.Marshal(f.svc.Identify("localhost"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"found":true,"imdb":"tt0111161","type":"movie","season":"","episode":""}`, string(raw))
}

func TestIdentify_EpisodeWithResume(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ReportResume(ResumeReport{IMDb: "tt0944947", Season: "1", Episode: "3", PositionMs: 600000, DurationMs: 3600000})
	require.NoError(t, err)
	f.svc.RecordStream("10.0.0.2", content.TypeSeries, "tt0944947:1:3")

	got := f.svc.Identify("10.0.0.2")
	want := Identification{
		Found:   true,
		IMDb:    "tt0944947",
		Type:    content.TypeSeries,
		Season:  "1",
		Episode: "3",
		Resume:  &ResumePoint{Position: 600000, Duration: 3600000},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Identify mismatch (-want +got):\n%s", diff)
	}
}

func TestIdentify_LatestLookupWins(t *testing.T) {
	f := newFixture(t)
	f.svc.RecordStream("10.0.0.2", content.TypeSeries, "tt0944947:1:3")
	f.svc.RecordStream("10.0.0.2", content.TypeMovie, "tt0111161")

	got := f.svc.Identify("10.0.0.2")
	assert.Equal(t, "tt0111161", got.IMDb)
	assert.Empty(t, got.Season, "no merge with the previous descriptor")
}

func TestReportResume(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ReportResume(ResumeReport{PositionMs: 1, DurationMs: 2})
	assert.ErrorIs(t, err, ErrMissingIMDb)

	outcome, err := f.svc.ReportResume(ResumeReport{IMDb: "tt0111161", PositionMs: 50, DurationMs: 100})
	require.NoError(t, err)
	assert.Equal(t, resume.OutcomeSaved, outcome)
	_, ok := f.svc.Resume().Lookup("tt0111161")
	assert.True(t, ok)

	outcome, err = f.svc.ReportResume(ResumeReport{IMDb: "tt0111161", PositionMs: 95, DurationMs: 100})
	require.NoError(t, err)
	assert.Equal(t, resume.OutcomeCleared, outcome)
	_, ok = f.svc.Resume().Lookup("tt0111161")
	assert.False(t, ok)
}

func TestReportResume_SeasonWithoutEpisodeIsMovieKey(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ReportResume(ResumeReport{IMDb: "tt1", Season: "2", PositionMs: 10, DurationMs: 100})
	require.NoError(t, err)

	_, ok := f.svc.Resume().Lookup("tt1")
	assert.True(t, ok)
}

func TestContinueWatching_Boundaries(t *testing.T) {
	f := newFixture(t)
	store := f.svc.Resume().Store()

	store.Set("tt0000004", resume.Record{PositionMs: 4, DurationMs: 100})
	store.Set("tt0000005", resume.Record{PositionMs: 5, DurationMs: 100})
	store.Set("tt0000090", resume.Record{PositionMs: 90, DurationMs: 100})
	store.Set("tt0000091", resume.Record{PositionMs: 91, DurationMs: 100})
	store.Set("tt0000000", resume.Record{PositionMs: 10, DurationMs: 0})

	metas := f.svc.ContinueWatching(context.Background(), content.TypeMovie)

	require.Len(t, metas, 2)
	assert.Equal(t, "tt0000005", metas[0].ID)
	assert.Equal(t, "5% watched", metas[0].Description)
	assert.Equal(t, "tt0000090", metas[1].ID)
	assert.Equal(t, "90% watched", metas[1].Description)
}

func TestContinueWatching_TypesNamesAndOrder(t *testing.T) {
	f := newFixture(t)

	_, _ = f.svc.ReportResume(ResumeReport{IMDb: "tt0944947", Season: "1", Episode: "3", PositionMs: 30, DurationMs: 100})
	_, _ = f.svc.ReportResume(ResumeReport{IMDb: "tt0111161", PositionMs: 50, DurationMs: 100})
	_, _ = f.svc.ReportResume(ResumeReport{IMDb: "tt7777777", PositionMs: 333, DurationMs: 1000})

	movies := f.svc.ContinueWatching(context.Background(), content.TypeMovie)
	want := []MetaPreview{
		{ID: "tt0111161", Type: content.TypeMovie, Name: "The Shawshank Redemption", Poster: "https://img.test/tt0111161.jpg", Description: "50% watched"},
		{ID: "tt7777777", Type: content.TypeMovie, Name: "tt7777777", Poster: metadata.FallbackPosterURL("tt7777777"), Description: "33% watched"},
	}
	if diff := cmp.Diff(want, movies); diff != "" {
		t.Errorf("movies mismatch (-want +got):\n%s", diff)
	}

	series := f.svc.ContinueWatching(context.Background(), content.TypeSeries)
	require.Len(t, series, 1)
	assert.Equal(t, "tt0944947", series[0].ID)
	assert.Equal(t, "Game of Thrones S1E3", series[0].Name)
	assert.Equal(t, content.TypeSeries, series[0].Type)

	assert.Empty(t, f.svc.ContinueWatching(context.Background(), content.Type("channel")))
}

func TestContinueWatching_SpecialsKeepSeasonZero(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ReportResume(ResumeReport{IMDb: "tt9", Season: "0", Episode: "0", PositionMs: 20, DurationMs: 100})
	require.NoError(t, err)

	_, ok := f.svc.Resume().Lookup("tt9:0:0")
	require.True(t, ok)

	series := f.svc.ContinueWatching(context.Background(), content.TypeSeries)
	require.Len(t, series, 1)
	assert.Equal(t, "tt9 S0E0", series[0].Name)
}

func TestContinueWatching_SkipsExpired(t *testing.T) {
	f := newFixture(t)
	_, _ = f.svc.ReportResume(ResumeReport{IMDb: "tt0111161", PositionMs: 50, DurationMs: 100})

	f.clock.Advance(resume.DefaultTTL + time.Second)
	assert.Empty(t, f.svc.ContinueWatching(context.Background(), content.TypeMovie))
}

func TestRecordStream(t *testing.T) {
	f := newFixture(t)

	d := f.svc.RecordStream("localhost", content.TypeSeries, "tt0944947:2:5")
	assert.Equal(t, content.ID{IMDb: "tt0944947", Season: "2", Episode: "5"}, d.ID)
	assert.Equal(t, f.clock.Now(), d.ObservedAt)
	assert.Empty(t, f.fetcher.calls)
}

func TestWrappedStreams_AugmentsAndRecords(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, json.Unmarshal([]byte(`[{"url":"https://cdn.test/v.mkv?x=1","name":"A"},{"infoHash":"abc"}]`), &f.fetcher.streams))

	token := upstream.EncodeBase("https://addon.test")
	streams := f.svc.WrappedStreams(context.Background(), "localhost", token, content.TypeSeries, "tt0944947:1:2")

	require.Len(t, streams, 2)
	assert.Equal(t, "https://cdn.test/v.mkv?x=1&_mk_imdb=tt0944947&_mk_type=series&_mk_s=1&_mk_e=2", streams[0].URL())
	assert.Equal(t, "", streams[1].URL())
	assert.Equal(t, []string{"https://addon.test|series|tt0944947:1:2"}, f.fetcher.calls)

	got := f.svc.Identify("localhost")
	assert.True(t, got.Found, "wrapper mode also feeds the identify side-channel")
	assert.Equal(t, "2", got.Episode)
}

func TestWrappedStreams_UpstreamFailureIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = errors.New("boom")

	streams := f.svc.WrappedStreams(context.Background(), "localhost", upstream.EncodeBase("https://addon.test"), content.TypeMovie, "tt0111161")

	require.NotNil(t, streams)
	assert.Empty(t, streams)
	assert.True(t, f.svc.Identify("localhost").Found)
}

func TestWrappedStreams_InvalidTokenStillRecords(t *testing.T) {
	f := newFixture(t)

	streams := f.svc.WrappedStreams(context.Background(), "localhost", "***", content.TypeMovie, "tt0111161")

	require.NotNil(t, streams)
	assert.Empty(t, streams)
	assert.Empty(t, f.fetcher.calls)
	assert.True(t, f.svc.Identify("localhost").Found)
}
