// SPDX-License-Identifier: MIT

package bridge

import (
	"context"

	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/log"
	"github.com/modikodi/bridge/internal/metrics"
	"github.com/modikodi/bridge/internal/upstream"
)

// RecordStream notes that clientID just looked up rawID. The zero-config
// stream endpoint calls it and then answers with no streams.
func (s *Service) RecordStream(clientID string, typ content.Type, rawID string) content.Descriptor {
	return s.record("zeroconf", clientID, typ, rawID)
}

func (s *Service) record(mode, clientID string, typ content.Type, rawID string) content.Descriptor {
	d := s.tracker.Record(clientID, typ, rawID)
	metrics.RecordStreamLookup(mode, string(typ))
	s.logger.Info().
		Str(log.FieldEvent, "stream.recorded").
		Str("mode", mode).
		Str(log.FieldClientID, clientID).
		Str(log.FieldType, string(typ)).
		Str(log.FieldIMDb, d.ID.IMDb).
		Str(log.FieldSeason, d.ID.Season).
		Str(log.FieldEpisode, d.ID.Episode).
		Msg("content recorded")
	return d
}

// WrappedStreams records the lookup like RecordStream, then proxies it to the
// upstream addon encoded in token and tags every direct URL with the content
// id. Any upstream failure yields an empty, non-nil list.
func (s *Service) WrappedStreams(ctx context.Context, clientID, token string, typ content.Type, rawID string) []upstream.Stream {
	d := s.record("wrapper", clientID, typ, rawID)

	base, err := upstream.DecodeBase(token)
	if err != nil {
		metrics.RecordUpstreamFetch("invalid_base", 0)
		s.logger.Warn().Err(err).
			Str(log.FieldEvent, "upstream.invalid_base").
			Msg("cannot decode upstream token")
		return []upstream.Stream{}
	}

	streams, err := s.upstream.Streams(ctx, base, typ, rawID)
	if err != nil {
		s.logger.Warn().Err(err).
			Str(log.FieldEvent, "upstream.fetch_failed").
			Str(log.FieldUpstream, base).
			Str(log.FieldType, string(typ)).
			Str(log.FieldIMDb, d.ID.IMDb).
			Msg("upstream stream fetch failed")
		return []upstream.Stream{}
	}
	return upstream.Augment(streams, typ, d.ID)
}
