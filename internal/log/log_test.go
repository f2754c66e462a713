// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test", Version: "1.2.3"})
	t.Cleanup(func() { Configure(Config{}) })
	return &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var m map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &m))
	return m
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestWithComponent(t *testing.T) {
	buf := captureLogs(t)

	l := WithComponent("bridge")
	l.Info().Str(FieldEvent, "x.y").Msg("hello")

	m := lastLine(t, buf)
	assert.Equal(t, "bridge", m["component"])
	assert.Equal(t, "test", m["service"])
	assert.Equal(t, "1.2.3", m["version"])
	assert.Equal(t, "x.y", m["event"])
}

func TestContextRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithClientID(ctx, "203.0.113.7")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "203.0.113.7", ClientIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestWithContext_AddsCorrelationFields(t *testing.T) {
	buf := captureLogs(t)

	ctx := ContextWithClientID(ContextWithRequestID(context.Background(), "req-9"), "localhost")
	l := WithComponentFromContext(ctx, "api")
	l.Info().Msg("x")

	m := lastLine(t, buf)
	assert.Equal(t, "req-9", m["request_id"])
	assert.Equal(t, "localhost", m["client_id"])
	assert.Equal(t, "api", m["component"])
}

func TestMiddleware_LogsRequest(t *testing.T) {
	buf := captureLogs(t)

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/identify", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "abc"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	m := lastLine(t, buf)
	assert.Equal(t, "request.handled", m["event"])
	assert.Equal(t, "/identify", m["path"])
	assert.Equal(t, "GET", m["method"])
	assert.EqualValues(t, http.StatusTeapot, m["status"])
	assert.EqualValues(t, 15, m["bytes"])
	assert.Equal(t, "abc", m["request_id"])
	assert.Equal(t, "info", m["level"])
}

func TestMiddleware_ServerErrorLogsAtErrorLevel(t *testing.T) {
	buf := captureLogs(t)

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "error", lastLine(t, buf)["level"])
}
