// SPDX-License-Identifier: MIT

package bridge

import (
	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/upstream"
	"github.com/modikodi/bridge/internal/version"
)

const (
	manifestID   = "com.modikodi.bridge"
	manifestName = "ModiKodi Bridge"
	manifestLogo = "https://raw.githubusercontent.com/xbmc/xbmc/master/media/icon256x256.png"

	zeroConfigDescription = "Enables Trakt scrobbling in ModiKodi external player. Just install, no setup needed."
	wrapperDescription    = "Embeds content metadata (IMDB, season, episode) in stream URLs for ModiKodi Trakt scrobbling."
)

// CatalogDescriptor advertises one catalog in a manifest.
type CatalogDescriptor struct {
	Type content.Type `json:"type"`
	ID   string       `json:"id"`
	Name string       `json:"name"`
}

// BehaviorHints are addon presentation flags.
type BehaviorHints struct {
	Configurable bool `json:"configurable"`
}

// Manifest is the addon descriptor served at manifest.json.
type Manifest struct {
	ID            string              `json:"id"`
	Version       string              `json:"version"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Logo          string              `json:"logo"`
	Catalogs      []CatalogDescriptor `json:"catalogs"`
	Resources     []string            `json:"resources"`
	Types         []content.Type      `json:"types"`
	IDPrefixes    []string            `json:"idPrefixes"`
	BehaviorHints BehaviorHints       `json:"behaviorHints"`
}

// VersionInfo is the /version payload.
type VersionInfo struct {
	Version string `json:"version"`
	Major   int    `json:"major"`
	Minor   int    `json:"minor"`
	Patch   int    `json:"patch"`
}

func (s *Service) versionString() string {
	if s.version != "" {
		return s.version
	}
	return version.Version
}

// Version reports the advertised bridge version.
func (s *Service) Version() VersionInfo {
	v := s.versionString()
	major, minor, patch := version.Parts(v)
	return VersionInfo{Version: v, Major: major, Minor: minor, Patch: patch}
}

func (s *Service) baseManifest() Manifest {
	return Manifest{
		ID:            manifestID,
		Version:       s.versionString(),
		Name:          manifestName,
		Logo:          manifestLogo,
		Types:         []content.Type{content.TypeMovie, content.TypeSeries},
		IDPrefixes:    []string{"tt"},
		BehaviorHints: BehaviorHints{Configurable: true},
	}
}

// Manifest describes the zero-config addon: empty streams plus the
// continue-watching catalogs.
func (s *Service) Manifest() Manifest {
	m := s.baseManifest()
	m.Description = zeroConfigDescription
	m.Catalogs = []CatalogDescriptor{
		{Type: content.TypeMovie, ID: CatalogID, Name: "Continue Watching"},
		{Type: content.TypeSeries, ID: CatalogID, Name: "Continue Watching"},
	}
	m.Resources = []string{"stream", "catalog"}
	return m
}

// WrappedManifest describes the wrapper addon for an upstream token. The
// upstream host is shown in the name when the token decodes to a URL.
func (s *Service) WrappedManifest(token string) Manifest {
	m := s.baseManifest()
	if host := upstream.Hostname(token); host != "" {
		m.Name = manifestName + " (" + host + ")"
	}
	m.Description = wrapperDescription
	m.Catalogs = []CatalogDescriptor{}
	m.Resources = []string{"stream"}
	return m
}
