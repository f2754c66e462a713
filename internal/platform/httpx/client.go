// SPDX-License-Identifier: MIT

// Package httpx builds the outbound HTTP clients used for collaborators.
package httpx

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4
)

type clientOptions struct {
	responseHeaderTimeout time.Duration
}

// Option tunes a client built by NewClient.
type Option func(*clientOptions)

// WithResponseHeaderTimeout overrides the capped response header timeout.
// Slow collaborators that compute before answering need the full request timeout here.
func WithResponseHeaderTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.responseHeaderTimeout = d }
}

// NewClient returns a hardened, trace-propagating HTTP client.
func NewClient(timeout time.Duration, opts ...Option) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(newTransport(timeout, opts...)),
	}
}

func newTransport(timeout time.Duration, opts ...Option) *http.Transport {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	dialTimeout := timeout
	if dialTimeout > defaultDialTimeout {
		dialTimeout = defaultDialTimeout
	}

	responseHeaderTimeout := timeout
	if responseHeaderTimeout > defaultResponseHeaderTimeout {
		responseHeaderTimeout = defaultResponseHeaderTimeout
	}
	if o.responseHeaderTimeout > 0 {
		responseHeaderTimeout = o.responseHeaderTimeout
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
}
