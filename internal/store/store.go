// Package store implements the bounded, expiring, keyed observation store
// the aggregation server owns exclusively: a WAL-plus-atomic-snapshot
// durability pair backing an in-memory map, with unconditional
// single-writer replacement, a hard capacity bound with oldest-write
// eviction, and TTL-based expiry.
package store

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"weatheragg/internal/record"
)

// MaxStations is the hard cap on distinct station ids the store holds at
// any observable point, including immediately after a PUT.
const MaxStations = 20

// TTL is how long an entry survives without a refreshing PUT before it is
// no longer visible to GET and is removed on the next sweep.
const TTL = 30 * time.Second

// PutResult reports whether a PutOrReplace call created a brand new entry
// or replaced an existing one, which the server maps to 201 vs 200.
type PutResult int

const (
	Created PutResult = iota
	Updated
)

// entry is one station's current observation plus the wall-clock time it
// was last written, used for both TTL expiry and eviction-victim selection.
type entry struct {
	Observation record.Observation
	LastUpdate  time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.LastUpdate) > TTL
}

// Store is the in-memory keyed observation index plus its durable backing
// files. The zero value is not usable; create one with Open.
type Store struct {
	mu           sync.Mutex
	entries      map[string]entry
	wal          *WAL
	snapshotPath string
}

// Open loads any existing snapshot and WAL at the given paths and returns a
// ready Store. A missing snapshot or WAL is not an error; the store simply
// starts empty.
func Open(snapshotPath, walPath string) (*Store, error) {
	s := &Store{
		entries:      make(map[string]entry),
		snapshotPath: snapshotPath,
	}

	snap, err := loadSnapshot(snapshotPath)
	if err != nil {
		return nil, err
	}
	for id, pe := range snap {
		s.entries[id] = entry{
			Observation: pe.Observation,
			LastUpdate:  time.UnixMilli(pe.LastUpdateMs),
		}
	}

	w, err := OpenWAL(walPath)
	if err != nil {
		return nil, err
	}
	if err := w.replay(func(id string, obs record.Observation, lastUpdateMs int64) {
		s.entries[id] = entry{Observation: obs, LastUpdate: time.UnixMilli(lastUpdateMs)}
	}); err != nil {
		return nil, err
	}
	s.wal = w

	return s, nil
}

// Close releases the store's WAL file handle.
func (s *Store) Close() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Close()
}

// WALStats reports the WAL's operation and byte counters since the last
// truncate, surfaced by the server's /debug/stats endpoint.
func (s *Store) WALStats() (ops int, bytes int64) {
	if s.wal == nil {
		return 0, 0
	}
	return s.wal.Stats()
}

// PutOrReplace inserts or replaces the observation for id, evicting the
// oldest entry first if the store is full and id is new. Eviction and
// insertion happen under the same critical section, so MaxStations is
// never exceeded even transiently.
func (s *Store) PutOrReplace(id string, obs record.Observation, now time.Time) (result PutResult, evictedID string, evicted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.entries[id]
	if !exists && len(s.entries) >= MaxStations {
		evictedID = s.pickVictimLocked()
		delete(s.entries, evictedID)
		evicted = true
	}

	s.entries[id] = entry{Observation: obs.Clone(), LastUpdate: now}

	if s.wal != nil {
		_ = s.wal.append(id, obs, now.UnixMilli())
	}

	if exists {
		return Updated, evictedID, evicted
	}
	return Created, evictedID, evicted
}

// pickVictimLocked returns the id of the entry with the oldest LastUpdate,
// breaking ties lexicographically on station id. Caller must hold s.mu.
func (s *Store) pickVictimLocked() string {
	var victim string
	var oldest time.Time
	first := true

	for id, e := range s.entries {
		if first {
			victim, oldest, first = id, e.LastUpdate, false
			continue
		}
		if e.LastUpdate.Before(oldest) || (e.LastUpdate.Equal(oldest) && id < victim) {
			victim, oldest = id, e.LastUpdate
		}
	}
	return victim
}

// GetOne returns the observation for id if present and not expired.
func (s *Store) GetOne(id string, now time.Time) (record.Observation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.expired(now) {
		return nil, false
	}
	return e.Observation.Clone(), true
}

// GetAll returns every live (non-expired) observation, ordered by station
// id for a stable, deterministic response body.
func (s *Store) GetAll(now time.Time) []record.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id, e := range s.entries {
		if !e.expired(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]record.Observation, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entries[id].Observation.Clone())
	}
	return out
}

// Size returns the current number of entries, live or expired-but-not-yet-
// swept.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Expire removes every entry whose LastUpdate is more than TTL in the past
// and returns their ids. It does not itself trigger a snapshot flush; the
// caller (the GET handler's inline sweep, or the background sweeper) is
// responsible for flushing when evictions occurred.
func (s *Store) Expire(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, e := range s.entries {
		if e.expired(now) {
			evicted = append(evicted, id)
			delete(s.entries, id)
		}
	}
	return evicted
}

// SnapshotAndResetWAL writes the full current state to the store's
// snapshot path via atomic rename, then truncates the WAL. Called after
// every accepted PUT (before the response is sent) and after any sweep
// that evicted entries.
func (s *Store) SnapshotAndResetWAL() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]persistedEntry, len(s.entries))
	for id, e := range s.entries {
		out[id] = persistedEntry{
			Observation:  e.Observation,
			LastUpdateMs: e.LastUpdate.UnixMilli(),
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.snapshotPath, b); err != nil {
		return err
	}
	if s.wal != nil {
		return s.wal.Truncate()
	}
	return nil
}
