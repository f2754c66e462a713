// SPDX-License-Identifier: MIT

package bridge

import (
	"github.com/modikodi/bridge/internal/content"
	"github.com/modikodi/bridge/internal/log"
	"github.com/modikodi/bridge/internal/metrics"
	"github.com/modikodi/bridge/internal/resume"
)

// ResumeReport is a playback position reported by the player on stop.
type ResumeReport struct {
	IMDb       string
	Season     string
	Episode    string
	PositionMs float64
	DurationMs float64
}

// ReportResume saves or clears the resume point for the reported title.
func (s *Service) ReportResume(rep ResumeReport) (resume.Outcome, error) {
	if rep.IMDb == "" {
		metrics.RecordResumeReport("rejected")
		return "", ErrMissingIMDb
	}

	key := content.ID{IMDb: rep.IMDb, Season: rep.Season, Episode: rep.Episode}.Key()
	outcome := s.resume.Report(key, rep.PositionMs, rep.DurationMs)
	metrics.RecordResumeReport(string(outcome))

	s.logger.Info().
		Str(log.FieldEvent, "resume."+string(outcome)).
		Str(log.FieldKey, key).
		Float64("position_ms", rep.PositionMs).
		Float64("duration_ms", rep.DurationMs).
		Msg("resume report")
	return outcome, nil
}
