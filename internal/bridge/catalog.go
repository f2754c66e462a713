// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"fmt"
	"math"

	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/log"
	"github.com/modikodi/bridge/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// CatalogID is the id of the continue-watching catalog in both content types.
const CatalogID = "modikodi-continue"

// maxEnrichment bounds concurrent metadata resolutions per catalog request.
const maxEnrichment = 8

// MetaPreview is one continue-watching catalog item.
type MetaPreview struct {
	ID          string       `json:"id"`
	Type        content.Type `json:"type"`
	Name        string       `json:"name"`
	Poster      string       `json:"poster"`
	Description string       `json:"description"`
}

// ContinueWatching lists partially watched titles of typ in resume-store order,
// each enriched with a display name and poster.
func (s *Service) ContinueWatching(ctx context.Context, typ content.Type) []MetaPreview {
	type pending struct {
		id       content.ID
		fraction float64
	}

	var items []pending
	for _, e := range s.resume.List() {
		if content.KindOf(e.Key) != typ {
			continue
		}
		items = append(items, pending{id: content.ParseID(e.Key), fraction: e.Record.Fraction()})
	}

	metas := make([]MetaPreview, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxEnrichment)
	for i, it := range items {
		g.Go(func() error {
			rec := s.metadata.Resolve(gctx, it.id.IMDb)
			name := rec.DisplayName
			if it.id.IsEpisode() {
				name += fmt.Sprintf(" S%sE%s", it.id.Season, it.id.Episode)
			}
			metas[i] = MetaPreview{
				ID:          it.id.IMDb,
				Type:        typ,
				Name:        name,
				Poster:      rec.PosterURL,
				Description: fmt.Sprintf("%d%% watched", int(math.Round(it.fraction*100))),
			}
			return nil
		})
	}
	_ = g.Wait() // enrichment never fails; misses degrade to fallbacks

	metrics.SetCatalogItems(string(typ), len(metas))
	s.logger.Info().
		Str(log.FieldEvent, "catalog.served").
		Str(log.FieldType, string(typ)).
		Int("items", len(metas)).
		Msg("continue watching catalog")
	return metas
}
