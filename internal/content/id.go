// SPDX-License-Identifier: MIT

// Package content models the addon protocol's content identifiers and tracks
// which title each client identity looked at last.
package content

import "strings"

// Type is the addon protocol content type.
type Type string

const (
	TypeMovie  Type = "movie"
	TypeSeries Type = "series"
)

// ID is a parsed content identifier: "tt<digits>" for a movie or
// "tt<digits>:<season>:<episode>" for an episode.
type ID struct {
	IMDb    string
	Season  string
	Episode string
}

// ParseID splits a wire identifier on ':'. Missing parts stay empty and extra
// parts are ignored; nothing is validated.
func ParseID(raw string) ID {
	parts := strings.Split(raw, ":")
	id := ID{IMDb: parts[0]}
	if len(parts) > 1 {
		id.Season = parts[1]
	}
	if len(parts) > 2 {
		id.Episode = parts[2]
	}
	return id
}

// IsEpisode reports whether both season and episode are set.
func (id ID) IsEpisode() bool {
	return id.Season != "" && id.Episode != ""
}

// Key returns the canonical resume key: the bare IMDb id for movies,
// "imdb:season:episode" for episodes.
func (id ID) Key() string {
	if !id.IsEpisode() {
		return id.IMDb
	}
	return id.IMDb + ":" + id.Season + ":" + id.Episode
}

// String returns the wire form, identical to Key.
func (id ID) String() string { return id.Key() }

// KindOf derives the content type implied by a resume key.
func KindOf(key string) Type {
	if ParseID(key).IsEpisode() {
		return TypeSeries
	}
	return TypeMovie
}
