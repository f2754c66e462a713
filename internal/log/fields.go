// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldClientID  = "client_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Content fields
	FieldIMDb    = "imdb"
	FieldType    = "type"
	FieldSeason  = "season"
	FieldEpisode = "episode"
	FieldKey     = "key"

	// Upstream fields
	FieldUpstream = "upstream"

	// HTTP fields
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldBytes    = "bytes"
	FieldDuration = "duration_ms"
)
