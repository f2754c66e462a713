// SPDX-License-Identifier: MIT

package content

import (
	"time"

	"github.com/modikodi/bridge/internal/cache"
)

// DefaultTTL bounds how long a browsed title stays attributable to a client.
const DefaultTTL = 2 * time.Minute

// Descriptor is the last title a client identity looked up.
type Descriptor struct {
	ID         ID
	Type       Type
	ObservedAt time.Time
}

// Tracker maps client identity to the most recent Descriptor.
// A newer record for the same identity replaces the older one; there is no merge.
type Tracker struct {
	store *cache.Store[Descriptor]
}

// NewTracker builds a tracker over a TTL store.
func NewTracker(ttl time.Duration, opts ...cache.Option) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	opts = append([]cache.Option{cache.WithName("content")}, opts...)
	return &Tracker{store: cache.New[Descriptor](ttl, opts...)}
}

// Record stores what clientID just looked up and returns the stored descriptor.
func (t *Tracker) Record(clientID string, typ Type, rawID string) Descriptor {
	d := Descriptor{ID: ParseID(rawID), Type: typ}
	t.store.Set(clientID, d)
	if _, at, ok := t.store.GetWithTime(clientID); ok {
		d.ObservedAt = at
	}
	return d
}

// Lookup returns the fresh descriptor for clientID, if any.
func (t *Tracker) Lookup(clientID string) (Descriptor, bool) {
	d, at, ok := t.store.GetWithTime(clientID)
	if !ok {
		return Descriptor{}, false
	}
	d.ObservedAt = at
	return d, true
}

// Len returns the number of tracked identities, including unswept stale ones.
func (t *Tracker) Len() int { return t.store.Len() }

// Store exposes the underlying TTL store for the janitor.
func (t *Tracker) Store() *cache.Store[Descriptor] { return t.store }
