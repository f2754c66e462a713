// SPDX-License-Identifier: MIT

// Package upstream talks to the delegate addon in wrapper mode and rewrites
// its stream URLs so the player can identify what it is playing.
package upstream

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ErrInvalidBase reports an undecodable or unusable upstream token.
var ErrInvalidBase = errors.New("invalid upstream base")

// EncodeBase turns an upstream origin into the URL-safe, unpadded path token.
func EncodeBase(base string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(base))
}

// DecodeBase reverses EncodeBase. Trailing padding and standard-alphabet
// characters are tolerated.
func DecodeBase(token string) (string, error) {
	token = strings.TrimRight(strings.TrimSpace(token), "=")
	token = strings.NewReplacer("+", "-", "/", "_").Replace(token)
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBase, err)
	}
	base := strings.TrimRight(string(raw), "/")
	if base == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBase)
	}
	return base, nil
}

// Hostname returns the normalized host of an upstream origin for display,
// or "" when the token does not decode to an absolute URL.
func Hostname(token string) string {
	base, err := DecodeBase(token)
	if err != nil {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	return strings.ToLower(host)
}
