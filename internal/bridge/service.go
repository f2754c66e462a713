// SPDX-License-Identifier: MIT

// Package bridge implements the identification protocol on top of the
// content, resume and metadata stores, for both integration modes.
package bridge

import (
	"context"
	"errors"

	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/metadata"
	"github.com/modikodi/bridge/internal/resume"
	"github.com/modikodi/bridge/internal/upstream"
	"github.com/rs/zerolog"
)

var (
	// ErrMissingIMDb rejects a resume report without a title id.
	ErrMissingIMDb = errors.New("imdb required")

	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("bridge: missing dependency")
)

// StreamFetcher fetches a delegate addon's stream list.
type StreamFetcher interface {
	Streams(ctx context.Context, base string, typ content.Type, rawID string) ([]upstream.Stream, error)
}

// MetadataResolver turns an IMDb id into a display record. It never fails.
type MetadataResolver interface {
	Resolve(ctx context.Context, imdbID string) metadata.Record
}

// Deps are the collaborators a Service is built from.
type Deps struct {
	Tracker  *content.Tracker
	Resume   *resume.Store
	Metadata MetadataResolver
	Upstream StreamFetcher
	Logger   zerolog.Logger
	Version  string
}

// Service owns the bridge stores and exposes every protocol operation.
type Service struct {
	tracker  *content.Tracker
	resume   *resume.Store
	metadata MetadataResolver
	upstream StreamFetcher
	logger   zerolog.Logger
	version  string
}

// New validates deps and builds a Service.
func New(deps Deps) (*Service, error) {
	switch {
	case deps.Tracker == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("content tracker"))
	case deps.Resume == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("resume store"))
	case deps.Metadata == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("metadata resolver"))
	case deps.Upstream == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("upstream client"))
	}
	return &Service{
		tracker:  deps.Tracker,
		resume:   deps.Resume,
		metadata: deps.Metadata,
		upstream: deps.Upstream,
		logger:   deps.Logger,
		version:  deps.Version,
	}, nil
}

// Tracker returns the content correlation store.
func (s *Service) Tracker() *content.Tracker { return s.tracker }

// Resume returns the resume store.
func (s *Service) Resume() *resume.Store { return s.resume }
