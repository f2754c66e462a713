// SPDX-License-Identifier: MIT

// Package cache provides in-memory key/value stores with a fixed per-store TTL.
//
// Expiry is enforced twice and independently: Get treats stale entries as
// absent (lazy expiry), and Sweep physically removes them. RunJanitor drives
// Sweep on a fixed interval for the lifetime of a context.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/modikodi/bridge/internal/metrics"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type entry[V any] struct {
	key      string
	value    V
	storedAt time.Time
}

// Store is a TTL-bounded map. Iteration follows first-insertion order:
// overwriting a key keeps its position, deleting and re-adding moves it to the end.
type Store[V any] struct {
	name  string
	ttl   time.Duration
	clock Clock

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
}

type options struct {
	name  string
	clock Clock
}

// Option configures a Store.
type Option func(*options)

// WithName labels the store in metrics and logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// New creates a store whose entries live for ttl after their last write.
func New[V any](ttl time.Duration, opts ...Option) *Store[V] {
	o := options{clock: realClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[V]{
		name:    o.name,
		ttl:     ttl,
		clock:   o.clock,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Name returns the store label.
func (s *Store[V]) Name() string { return s.name }

func (s *Store[V]) expired(e *entry[V], now time.Time) bool {
	return now.Sub(e.storedAt) > s.ttl
}

// Set inserts or overwrites key, stamping the current time.
func (s *Store[V]) Set(key string, value V) {
	now := s.clock.Now()

	s.mu.Lock()
	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.storedAt = now
	} else {
		s.entries[key] = s.order.PushBack(&entry[V]{key: key, value: value, storedAt: now})
	}
	size := len(s.entries)
	s.mu.Unlock()

	s.reportSize(size)
}

// Get returns the value for key if it was written no longer than TTL ago.
func (s *Store[V]) Get(key string) (V, bool) {
	v, _, ok := s.GetWithTime(key)
	return v, ok
}

// GetWithTime is Get plus the time the value was stored.
func (s *Store[V]) GetWithTime(key string) (V, time.Time, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	var found entry[V]
	el, ok := s.entries[key]
	if ok {
		e := el.Value.(*entry[V])
		if ok = !s.expired(e, now); ok {
			found = *e
		}
	}
	s.mu.Unlock()

	if s.name != "" {
		metrics.RecordStoreLookup(s.name, ok)
	}
	if !ok {
		var zero V
		return zero, time.Time{}, false
	}
	return found.value, found.storedAt, true
}

// Delete removes key. It reports whether an entry was present.
func (s *Store[V]) Delete(key string) bool {
	s.mu.Lock()
	el, ok := s.entries[key]
	if ok {
		s.order.Remove(el)
		delete(s.entries, key)
	}
	size := len(s.entries)
	s.mu.Unlock()

	if ok {
		s.reportSize(size)
	}
	return ok
}

// Len returns the number of physically present entries, fresh or not.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Range calls fn for every fresh entry in insertion order until fn returns false.
// fn runs on a snapshot, outside the store lock, so it may call back into the store.
func (s *Store[V]) Range(fn func(key string, value V, storedAt time.Time) bool) {
	now := s.clock.Now()

	s.mu.Lock()
	snapshot := make([]entry[V], 0, len(s.entries))
	for el := s.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[V])
		if !s.expired(e, now) {
			snapshot = append(snapshot, *e)
		}
	}
	s.mu.Unlock()

	for _, e := range snapshot {
		if !fn(e.key, e.value, e.storedAt) {
			return
		}
	}
}

// Sweep removes every entry older than TTL relative to now and returns how many were removed.
// Candidates are collected first; each one is then re-checked and removed under its own
// short critical section.
func (s *Store[V]) Sweep(now time.Time) int {
	s.mu.Lock()
	var candidates []string
	for el := s.order.Front(); el != nil; el = el.Next() {
		if e := el.Value.(*entry[V]); s.expired(e, now) {
			candidates = append(candidates, e.key)
		}
	}
	s.mu.Unlock()

	removed := 0
	for _, key := range candidates {
		s.mu.Lock()
		if el, ok := s.entries[key]; ok && s.expired(el.Value.(*entry[V]), now) {
			s.order.Remove(el)
			delete(s.entries, key)
			removed++
		}
		s.mu.Unlock()
	}

	if s.name != "" {
		metrics.AddStoreEvictions(s.name, removed)
	}
	s.reportSize(s.Len())
	return removed
}

// RunJanitor sweeps the store every interval until ctx is cancelled.
func (s *Store[V]) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.clock.Now())
		}
	}
}

func (s *Store[V]) reportSize(size int) {
	if s.name != "" {
		metrics.SetStoreSize(s.name, size)
	}
}
