// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modikodi/bridge/internal/bridge"
	"github.com/modikodi/bridge/internal/cache"
	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/metadata"
	"github.com/modikodi/bridge/internal/resume"
	"github.com/modikodi/bridge/internal/upstream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testEnv struct {
	handler  http.Handler
	upstream *httptest.Server
}

func newTestEnv(t *testing.T, upstreamHandler http.HandlerFunc) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, Config{EnableMetrics: true}, upstreamHandler)
}

func newTestEnvWithConfig(t *testing.T, cfg Config, upstreamHandler http.HandlerFunc) *testEnv {
	t.Helper()

	up := httptest.NewServer(upstreamHandler)
	t.Cleanup(up.Close)

	svc, err := bridge.New(bridge.Deps{
		Tracker:  content.NewTracker(content.DefaultTTL),
		Resume:   resume.NewStore(resume.DefaultTTL),
		Metadata: metadata.NewCache(cache.New[metadata.Record](metadata.DefaultTTL), metadata.Disabled{}, time.Second, zerolog.Nop()),
		Upstream: upstream.NewClient(2*time.Second, up.Client(), zerolog.Nop()),
		Logger:   zerolog.Nop(),
		Version:  "3.0.0",
	})
	require.NoError(t, err)

	srv := NewServer(cfg, svc, nil)
	return &testEnv{handler: srv.Handler(), upstream: up}
}

func (e *testEnv) do(t *testing.T, method, target, body, remote string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestManifest(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/manifest.json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var m bridge.Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "com.modikodi.bridge", m.ID)
	assert.Equal(t, []string{"stream", "catalog"}, m.Resources)
}

func TestRootRedirectsToManifest(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/manifest.json", rec.Header().Get("Location"))
}

func TestWrappedManifest(t *testing.T) {
	env := newTestEnv(t, nil)
	token := upstream.EncodeBase("https://torrentio.strem.fun")

	rec := env.do(t, http.MethodGet, "/"+token+"/manifest.json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"ModiKodi Bridge (torrentio.strem.fun)"`)
	assert.Contains(t, rec.Body.String(), `"resources":["stream"]`)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/version", "", "")
	assert.JSONEq(t, `{"version":"3.0.0","major":3,"minor":0,"patch":0}`, rec.Body.String())
}

func TestStreamThenIdentify(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/stream/series/tt0944947:1:3.json", "", "127.0.0.1:40000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"streams":[]}`, rec.Body.String())

	// A different loopback spelling is the same client.
	rec = env.do(t, http.MethodGet, "/identify", "", "[::1]:40001")
	assert.JSONEq(t, `{"found":true,"imdb":"tt0944947","type":"series","season":"1","episode":"3"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/identify", "", "198.51.100.9:1")
	assert.JSONEq(t, `{"found":false}`, rec.Body.String())
}

func TestResumeFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/resume", `{"imdb":"tt0944947","season":1,"episode":"3","position":600000,"duration":3600000}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	env.do(t, http.MethodGet, "/stream/series/tt0944947:1:3.json", "", "203.0.113.5:1")
	rec = env.do(t, http.MethodGet, "/identify", "", "203.0.113.5:2")
	assert.JSONEq(t, `{"found":true,"imdb":"tt0944947","type":"series","season":"1","episode":"3","resume":{"position":600000,"duration":3600000}}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/catalog/series/modikodi-continue.json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"metas":[{"id":"tt0944947","type":"series","name":"tt0944947 S1E3","poster":"https://images.metahub.space/poster/small/tt0944947/img","description":"17% watched"}]}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/catalog/movie/modikodi-continue.json", "", "")
	assert.JSONEq(t, `{"metas":[]}`, rec.Body.String())
}

func TestResume_NumericStringOffsets(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/resume", `{"imdb":"tt9","position":"5000","duration":" 10000 "}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.do(t, http.MethodGet, "/stream/movie/tt9.json", "", "203.0.113.77:1")
	rec = env.do(t, http.MethodGet, "/identify", "", "203.0.113.77:2")
	assert.JSONEq(t, `{"found":true,"imdb":"tt9","type":"movie","season":"","episode":"","resume":{"position":5000,"duration":10000}}`, rec.Body.String())

	for _, body := range []string{
		`{"imdb":"tt9","position":"soon","duration":10000}`,
		`{"imdb":"tt9","position":"NaN","duration":10000}`,
		`{"imdb":"tt9","position":true,"duration":10000}`,
	} {
		rec = env.do(t, http.MethodPost, "/resume", body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestResume_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/resume", `{"position":1,"duration":2}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"imdb required"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/resume", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/resume", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"imdb required"}`, rec.Body.String())
}

func TestWrappedStream_Augments(t *testing.T) {
	var gotPath string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"streams":[{"url":"https://x/a?q=1","title":"1080p"},{"infoHash":"abc"}]}`))
	})
	token := upstream.EncodeBase(env.upstream.URL)

	rec := env.do(t, http.MethodGet, "/"+token+"/stream/series/tt0111161:1:2.json", "", "10.1.1.1:1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/stream/series/tt0111161:1:2.json", gotPath)
	assert.Contains(t, rec.Body.String(), `"url":"https://x/a?q=1&_mk_imdb=tt0111161&_mk_type=series&_mk_s=1&_mk_e=2"`)
	assert.Contains(t, rec.Body.String(), `{"infoHash":"abc"}`)

	rec = env.do(t, http.MethodGet, "/identify", "", "10.1.1.1:2")
	assert.Contains(t, rec.Body.String(), `"found":true`)
}

func TestWrappedStream_MixedElementsForwarded(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"streams":[{"url":"https://x/a","name":"A"},"weird",{"infoHash":"h"}]}`))
	})
	token := upstream.EncodeBase(env.upstream.URL)

	rec := env.do(t, http.MethodGet, "/"+token+"/stream/series/tt1:1:2.json", "", "10.1.1.2:1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"streams":[
		{"url":"https://x/a?_mk_imdb=tt1&_mk_type=series&_mk_s=1&_mk_e=2","name":"A"},
		"weird",
		{"infoHash":"h"}
	]}`, rec.Body.String())
}

func TestWrappedStream_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	token := upstream.EncodeBase(env.upstream.URL)

	rec := env.do(t, http.MethodGet, "/"+token+"/stream/movie/tt0111161.json", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"streams":[]}`, rec.Body.String())
}

func TestOptionsPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodOptions, "/resume", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProbesAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/readyz", "", "").Code)

	env.do(t, http.MethodGet, "/manifest.json", "", "")
	rec := env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mkbridge_http_request_duration_seconds_count{method="GET",route="/manifest.json",status="200"}`)
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	out := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestSpansCarryContentAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	env := newTestEnvWithConfig(t, Config{TracingService: "test"}, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"streams":[]}`))
	})

	env.do(t, http.MethodGet, "/stream/series/tt0944947:1:3.json", "", "10.2.2.2:1")
	env.do(t, http.MethodGet, "/identify", "", "10.2.2.2:2")
	env.do(t, http.MethodGet, "/"+upstream.EncodeBase(env.upstream.URL)+"/stream/movie/tt0111161.json", "", "10.2.2.3:1")

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	stream := spanAttributes(spans[0])
	assert.Equal(t, "tt0944947", stream["content.imdb"])
	assert.Equal(t, "series", stream["content.type"])
	assert.Equal(t, "1", stream["content.season"])
	assert.Equal(t, "3", stream["content.episode"])
	assert.Equal(t, "zeroconf", stream["bridge.mode"])

	identify := spanAttributes(spans[1])
	assert.Equal(t, "tt0944947", identify["content.imdb"])
	assert.NotContains(t, identify, attribute.Key("bridge.mode"))

	wrapped := spanAttributes(spans[2])
	assert.Equal(t, "tt0111161", wrapped["content.imdb"])
	assert.Equal(t, "wrapper", wrapped["bridge.mode"])
	assert.NotContains(t, wrapped, attribute.Key("content.season"))
}
