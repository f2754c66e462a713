// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/modikodi/bridge/internal/bridge"
	"github.com/modikodi/bridge/internal/clientid"
	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/log"
	"github.com/modikodi/bridge/internal/telemetry"
	"github.com/modikodi/bridge/internal/upstream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxResumeBody = 64 << 10

// pathParam returns a decoded chi URL parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// clientID prefers the identity resolved by middleware.
func clientID(r *http.Request) string {
	if id := log.ClientIDFromContext(r.Context()); id != "" {
		return id
	}
	return clientid.Resolve(r)
}

// annotateSpan tags the request span with the title it concerns.
func annotateSpan(r *http.Request, mode string, typ content.Type, id content.ID) {
	span := trace.SpanFromContext(r.Context())
	if !span.IsRecording() {
		return
	}
	attrs := telemetry.ContentAttributes(id.IMDb, string(typ), id.Season, id.Episode)
	if mode != "" {
		attrs = append(attrs, attribute.String(telemetry.BridgeModeKey, mode))
	}
	span.SetAttributes(attrs...)
}

type streamsResponse struct {
	Streams []upstream.Stream `json:"streams"`
}

type catalogResponse struct {
	Metas []bridge.MetaPreview `json:"metas"`
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.svc.Manifest())
}

func (s *Server) handleWrappedManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.svc.WrappedManifest(chi.URLParam(r, "upstream")))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.svc.Version())
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	typ := content.Type(pathParam(r, "type"))
	metas := s.svc.ContinueWatching(r.Context(), typ)
	if metas == nil {
		metas = []bridge.MetaPreview{}
	}
	writeJSON(w, r, http.StatusOK, catalogResponse{Metas: metas})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	d := s.svc.RecordStream(clientID(r), content.Type(pathParam(r, "type")), pathParam(r, "id"))
	annotateSpan(r, "zeroconf", d.Type, d.ID)
	writeJSON(w, r, http.StatusOK, streamsResponse{Streams: []upstream.Stream{}})
}

func (s *Server) handleWrappedStream(w http.ResponseWriter, r *http.Request) {
	typ := content.Type(pathParam(r, "type"))
	rawID := pathParam(r, "id")
	annotateSpan(r, "wrapper", typ, content.ParseID(rawID))
	streams := s.svc.WrappedStreams(r.Context(), clientID(r), chi.URLParam(r, "upstream"), typ, rawID)
	writeJSON(w, r, http.StatusOK, streamsResponse{Streams: streams})
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	ident := s.svc.Identify(clientID(r))
	if ident.Found {
		annotateSpan(r, "", ident.Type, content.ID{IMDb: ident.IMDb, Season: ident.Season, Episode: ident.Episode})
	}
	writeJSON(w, r, http.StatusOK, ident)
}

// looseString accepts a JSON string or number; players differ in how they
// encode season and episode.
type looseString string

func (l *looseString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*l = looseString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*l = looseString(n.String())
	return nil
}

// looseFloat accepts a JSON number or a numeric string for playback offsets.
type looseFloat float64

func (l *looseFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		f, err := n.Float64()
		if err != nil {
			return err
		}
		*l = looseFloat(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return nil
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a number: %q", str)
	}
	*l = looseFloat(f)
	return nil
}

type resumeRequest struct {
	IMDb     string      `json:"imdb"`
	Season   looseString `json:"season"`
	Episode  looseString `json:"episode"`
	Position looseFloat  `json:"position"`
	Duration looseFloat  `json:"duration"`
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResumeBody)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid body")
		return
	}

	_, err = s.svc.ReportResume(bridge.ResumeReport{
		IMDb:       req.IMDb,
		Season:     string(req.Season),
		Episode:    string(req.Episode),
		PositionMs: float64(req.Position),
		DurationMs: float64(req.Duration),
	})
	if errors.Is(err, bridge.ErrMissingIMDb) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}
