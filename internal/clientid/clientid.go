// SPDX-License-Identifier: MIT

// Package clientid derives the correlation key used to tie a discovery
// request to a later player request from the same network origin.
//
// The key is spoofable and is not an authentication boundary. Every caller
// must use Resolve so the header precedence stays identical across handlers
// and the rate limiter.
package clientid

import (
	"net"
	"net/http"
	"strings"
)

const (
	// HeaderConnectingIP is set by Cloudflare tunnels to the real client address.
	HeaderConnectingIP = "CF-Connecting-IP"
	// HeaderForwardedFor is the standard reverse-proxy chain header.
	HeaderForwardedFor = "X-Forwarded-For"

	// Loopback is the single key used for every loopback spelling.
	Loopback = "localhost"
)

// Resolve returns the client identity for r: the tunnel real-IP header, else
// the first X-Forwarded-For hop, else the transport peer address.
func Resolve(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(HeaderConnectingIP)); ip != "" {
		return Normalize(ip)
	}
	if xff := r.Header.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return Normalize(ip)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return Normalize(r.RemoteAddr)
	}
	return Normalize(host)
}

// Normalize collapses loopback addresses (127.0.0.0/8, ::1, ::ffff:127.0.0.1)
// to Loopback. Anything else is returned unchanged.
func Normalize(addr string) string {
	addr = strings.TrimSpace(addr)
	candidate := strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	if ip := net.ParseIP(candidate); ip != nil && ip.IsLoopback() {
		return Loopback
	}
	return addr
}

// KeyFunc adapts Resolve to rate limiter key functions.
func KeyFunc(r *http.Request) (string, error) {
	return Resolve(r), nil
}
