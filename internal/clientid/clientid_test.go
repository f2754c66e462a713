// SPDX-License-Identifier: MIT

package clientid

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "transport address only",
			remoteAddr: "203.0.113.7:52100",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded-for first hop wins over transport",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{HeaderForwardedFor: " 198.51.100.2 , 10.0.0.1"},
			want:       "198.51.100.2",
		},
		{
			name:       "tunnel header wins over forwarded-for",
			remoteAddr: "10.0.0.1:80",
			headers: map[string]string{
				HeaderConnectingIP: "192.0.2.44",
				HeaderForwardedFor: "198.51.100.2",
			},
			want: "192.0.2.44",
		},
		{
			name:       "empty forwarded-for hop falls through",
			remoteAddr: "203.0.113.7:1",
			headers:    map[string]string{HeaderForwardedFor: " , 198.51.100.2"},
			want:       "203.0.113.7",
		},
		{
			name:       "ipv6 transport address",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "malformed transport address is kept",
			remoteAddr: "not-an-addr",
			want:       "not-an-addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/identify", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, Resolve(r))
		})
	}
}

func TestResolve_LoopbackCollapses(t *testing.T) {
	for _, addr := range []string{"127.0.0.1:7515", "[::1]:7515", "[::ffff:127.0.0.1]:7515"} {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = addr
		assert.Equal(t, Loopback, Resolve(r), addr)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(HeaderForwardedFor, "::1")
	assert.Equal(t, Loopback, Resolve(r))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Loopback, Normalize("127.0.0.1"))
	assert.Equal(t, Loopback, Normalize("::1"))
	assert.Equal(t, Loopback, Normalize("::ffff:127.0.0.1"))
	assert.Equal(t, Loopback, Normalize("[::1]"))
	assert.Equal(t, "192.168.1.10", Normalize("192.168.1.10"))
	assert.Equal(t, "garbage", Normalize(" garbage "))
}

func TestKeyFunc(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "127.0.0.1:1234"
	key, err := KeyFunc(r)
	assert.NoError(t, err)
	assert.Equal(t, Loopback, key)
}
