// SPDX-License-Identifier: MIT

package bridge

import (
	"encoding/json"

	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/log"
	"github.com/modikodi/bridge/internal/metrics"
)

// ResumePoint is a saved position in milliseconds.
type ResumePoint struct {
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// Identification answers "what is this client watching".
type Identification struct {
	Found   bool
	IMDb    string
	Type    content.Type
	Season  string
	Episode string
	Resume  *ResumePoint
}

// MarshalJSON renders {"found":false} for a miss and the full descriptor otherwise.
// Season and episode are always present on a hit, empty for movies.
func (id Identification) MarshalJSON() ([]byte, error) {
	if !id.Found {
		return []byte(`{"found":false}`), nil
	}
	return json.Marshal(struct {
		Found   bool         `json:"found"`
		IMDb    string       `json:"imdb"`
		Type    content.Type `json:"type"`
		Season  string       `json:"season"`
		Episode string       `json:"episode"`
		Resume  *ResumePoint `json:"resume,omitempty"`
	}{id.Found, id.IMDb, id.Type, id.Season, id.Episode, id.Resume})
}

// Identify returns the last title clientID looked up within the content TTL,
// with its saved resume point when one exists.
func (s *Service) Identify(clientID string) Identification {
	d, ok := s.tracker.Lookup(clientID)
	if !ok {
		metrics.RecordIdentify("not_found")
		s.logger.Debug().
			Str(log.FieldEvent, "identify.miss").
			Str(log.FieldClientID, clientID).
			Int("tracked", s.tracker.Len()).
			Msg("no recent content for client")
		return Identification{}
	}

	out := Identification{
		Found:   true,
		IMDb:    d.ID.IMDb,
		Type:    d.Type,
		Season:  d.ID.Season,
		Episode: d.ID.Episode,
	}
	outcome := "found"
	if r, ok := s.resume.Lookup(d.ID.Key()); ok {
		out.Resume = &ResumePoint{Position: r.PositionMs, Duration: r.DurationMs}
		outcome = "found_resume"
	}
	metrics.RecordIdentify(outcome)

	s.logger.Info().
		Str(log.FieldEvent, "identify.hit").
		Str(log.FieldClientID, clientID).
		Str(log.FieldIMDb, out.IMDb).
		Str(log.FieldType, string(out.Type)).
		Str(log.FieldSeason, out.Season).
		Str(log.FieldEpisode, out.Episode).
		Bool("resume", out.Resume != nil).
		Msg("identified content")
	return out
}
