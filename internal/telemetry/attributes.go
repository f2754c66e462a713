// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on bridge spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPTargetKey     = "http.target"

	ContentIMDbKey    = "content.imdb"
	ContentTypeKey    = "content.type"
	ContentSeasonKey  = "content.season"
	ContentEpisodeKey = "content.episode"

	BridgeModeKey = "bridge.mode"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, target string, statusCode int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPTargetKey, target),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int(HTTPStatusCodeKey, statusCode))
	}
	return attrs
}

// ContentAttributes describes the title a request is about. Empty parts are omitted.
func ContentAttributes(imdb, contentType, season, episode string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	for _, kv := range []struct{ key, val string }{
		{ContentIMDbKey, imdb},
		{ContentTypeKey, contentType},
		{ContentSeasonKey, season},
		{ContentEpisodeKey, episode},
	} {
		if kv.val != "" {
			attrs = append(attrs, attribute.String(kv.key, kv.val))
		}
	}
	return attrs
}
