// SPDX-License-Identifier: MIT

// Package resume keeps the last reported playback position per content key.
package resume

import (
	"time"

	"github.com/modikodi/bridge/internal/cache"
)

const (
	// DefaultTTL is how long an unfinished position is remembered.
	DefaultTTL = 7 * 24 * time.Hour

	// CompletionThreshold is the watched fraction above which a title counts as finished.
	CompletionThreshold = 0.9

	// MinProgress is the watched fraction below which a title is not worth listing.
	MinProgress = 0.05
)

// Record is a reported playback position, in milliseconds.
type Record struct {
	PositionMs float64
	DurationMs float64
	SavedAt    time.Time
}

// Fraction returns position/duration, or 0 when the duration is unknown.
func (r Record) Fraction() float64 {
	if r.DurationMs <= 0 {
		return 0
	}
	return r.PositionMs / r.DurationMs
}

// Outcome describes what Report did.
type Outcome string

const (
	OutcomeSaved   Outcome = "saved"
	OutcomeCleared Outcome = "cleared"
)

// Entry is a listed record with its key.
type Entry struct {
	Key    string
	Record Record
}

// Store maps content keys to resume records.
type Store struct {
	store *cache.Store[Record]
}

// NewStore builds a resume store over a TTL store.
func NewStore(ttl time.Duration, opts ...cache.Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	opts = append([]cache.Option{cache.WithName("resume")}, opts...)
	return &Store{store: cache.New[Record](ttl, opts...)}
}

// Report saves a position, or forgets the key when the title is past CompletionThreshold.
func (s *Store) Report(key string, positionMs, durationMs float64) Outcome {
	if durationMs > 0 && positionMs/durationMs > CompletionThreshold {
		s.store.Delete(key)
		return OutcomeCleared
	}
	s.store.Set(key, Record{PositionMs: positionMs, DurationMs: durationMs})
	return OutcomeSaved
}

// Lookup returns the fresh record for key.
func (s *Store) Lookup(key string) (Record, bool) {
	r, at, ok := s.store.GetWithTime(key)
	if !ok {
		return Record{}, false
	}
	r.SavedAt = at
	return r, true
}

// List returns fresh records with a known duration whose watched fraction lies
// in [MinProgress, CompletionThreshold], in insertion order.
func (s *Store) List() []Entry {
	var out []Entry
	s.store.Range(func(key string, r Record, at time.Time) bool {
		if r.DurationMs <= 0 {
			return true
		}
		if f := r.Fraction(); f < MinProgress || f > CompletionThreshold {
			return true
		}
		r.SavedAt = at
		out = append(out, Entry{Key: key, Record: r})
		return true
	})
	return out
}

// Len returns the number of stored records, including unswept stale ones.
func (s *Store) Len() int { return s.store.Len() }

// Store exposes the underlying TTL store for the janitor.
func (s *Store) Store() *cache.Store[Record] { return s.store }
