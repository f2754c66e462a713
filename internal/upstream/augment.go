// SPDX-License-Identifier: MIT

package upstream

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/modikodi/bridge/internal/content"
)

// Correlation query parameters appended to direct stream URLs.
const (
	ParamIMDb    = "_mk_imdb"
	ParamType    = "_mk_type"
	ParamSeason  = "_mk_s"
	ParamEpisode = "_mk_e"
)

// Stream is one raw element of an upstream "streams" array. Elements are
// kept as received so entries the bridge does not rewrite, including
// non-object values, are forwarded byte-for-byte.
type Stream json.RawMessage

// MarshalJSON implements json.Marshaler.
func (s Stream) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

// UnmarshalJSON implements json.Unmarshaler. Any JSON value is accepted.
func (s *Stream) UnmarshalJSON(data []byte) error {
	*s = append((*s)[:0], data...)
	return nil
}

// Field returns the raw value of key when the stream is a JSON object.
func (s Stream) Field(key string) json.RawMessage {
	fields, ok := s.object()
	if !ok {
		return nil
	}
	return fields[key]
}

// URL returns the stream's direct playable URL, or "".
func (s Stream) URL() string {
	raw := s.Field("url")
	if raw == nil {
		return ""
	}
	var u string
	if err := json.Unmarshal(raw, &u); err != nil {
		return ""
	}
	return u
}

func (s Stream) object() (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(s)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// Augment returns streams with correlation parameters appended to every direct URL.
// Only objects with a non-empty string "url" are rewritten; every other element
// is returned as-is.
func Augment(streams []Stream, typ content.Type, id content.ID) []Stream {
	out := make([]Stream, 0, len(streams))
	for _, s := range streams {
		out = append(out, augmentOne(s, typ, id))
	}
	return out
}

func augmentOne(s Stream, typ content.Type, id content.ID) Stream {
	fields, ok := s.object()
	if !ok {
		return s
	}
	var u string
	if raw, has := fields["url"]; !has || json.Unmarshal(raw, &u) != nil || u == "" {
		return s
	}
	encoded, err := marshalRaw(AppendCorrelation(u, typ, id))
	if err != nil {
		return s
	}
	fields["url"] = encoded
	rewritten, err := marshalRaw(fields)
	if err != nil {
		return s
	}
	return Stream(rewritten)
}

// AppendCorrelation appends the _mk_* parameters to rawURL, choosing '&' when
// it already carries a query string.
func AppendCorrelation(rawURL string, typ content.Type, id content.ID) string {
	var b strings.Builder
	b.WriteString(rawURL)
	if strings.Contains(rawURL, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString(ParamIMDb + "=" + escape(id.IMDb))
	b.WriteString("&" + ParamType + "=" + escape(string(typ)))
	if id.Season != "" {
		b.WriteString("&" + ParamSeason + "=" + escape(id.Season))
	}
	if id.Episode != "" {
		b.WriteString("&" + ParamEpisode + "=" + escape(id.Episode))
	}
	return b.String()
}

// marshalRaw encodes v without HTML escaping so '&' stays literal on the wire.
func marshalRaw(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// escape percent-encodes like encodeURIComponent: spaces become %20, not '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
