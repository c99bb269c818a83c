package store_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheragg/internal/record"
	"weatheragg/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "snap.json"), filepath.Join(dir, "kv.wal"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func obs(id string) record.Observation {
	return record.Observation{"id": id, "air_temp": "13.3"}
}

func TestPutOrReplaceCreatedThenUpdated(t *testing.T) {
	s := openStore(t)
	now := time.Now()

	result, _, evicted := s.PutOrReplace("IDS60901", obs("IDS60901"), now)
	assert.Equal(t, store.Created, result)
	assert.False(t, evicted)

	result, _, evicted = s.PutOrReplace("IDS60901", obs("IDS60901"), now.Add(time.Second))
	assert.Equal(t, store.Updated, result)
	assert.False(t, evicted)
}

func TestCapacityEviction(t *testing.T) {
	s := openStore(t)
	base := time.Now()

	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("IDS609%02d", i)
		s.PutOrReplace(id, obs(id), base.Add(time.Duration(i)*100*time.Millisecond))
	}

	all := s.GetAll(base.Add(10 * time.Second))
	require.Len(t, all, store.MaxStations)

	ids := make(map[string]bool, len(all))
	for _, o := range all {
		id, _ := o.ID()
		ids[id] = true
	}
	for i := 0; i < 5; i++ {
		assert.False(t, ids[fmt.Sprintf("IDS609%02d", i)], "oldest station %d should have been evicted", i)
	}
	for i := 5; i < 25; i++ {
		assert.True(t, ids[fmt.Sprintf("IDS609%02d", i)], "station %d should still be present", i)
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	s := openStore(t)
	base := time.Now()
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("S%03d", i)
		s.PutOrReplace(id, obs(id), base.Add(time.Duration(i)*time.Millisecond))
		assert.LessOrEqual(t, s.Size(), store.MaxStations)
	}
}

func TestEvictionTieBreakLexicographic(t *testing.T) {
	s := openStore(t)
	same := time.Now()

	ids := []string{"zzz", "aaa", "mmm"}
	for i, id := range ids {
		_ = i
		s.PutOrReplace(id, obs(id), same)
	}
	for i := 0; i < store.MaxStations-len(ids); i++ {
		id := fmt.Sprintf("filler%02d", i)
		s.PutOrReplace(id, obs(id), same)
	}

	// One more insert forces an eviction; all twenty entries share the same
	// timestamp and "aaa" sorts first lexicographically, so it is the victim.
	_, evictedID, evicted := s.PutOrReplace("newcomer", obs("newcomer"), same)
	require.True(t, evicted)
	assert.Equal(t, "aaa", evictedID)
}

func TestGetOneNotFound(t *testing.T) {
	s := openStore(t)
	_, ok := s.GetOne("missing", time.Now())
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	s := openStore(t)
	now := time.Now()
	s.PutOrReplace("IDS60901", obs("IDS60901"), now)

	_, ok := s.GetOne("IDS60901", now.Add(store.TTL-time.Second))
	assert.True(t, ok)

	_, ok = s.GetOne("IDS60901", now.Add(store.TTL+time.Second))
	assert.False(t, ok)
}

func TestExpireSweepRemovesStaleEntries(t *testing.T) {
	s := openStore(t)
	now := time.Now()
	s.PutOrReplace("stale", obs("stale"), now)
	s.PutOrReplace("fresh", obs("fresh"), now.Add(store.TTL))

	evicted := s.Expire(now.Add(store.TTL + time.Second))
	assert.Equal(t, []string{"stale"}, evicted)
	assert.Equal(t, 1, s.Size())
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snap.json")
	walPath := filepath.Join(dir, "kv.wal")

	s, err := store.Open(snapPath, walPath)
	require.NoError(t, err)

	now := time.Now()
	s.PutOrReplace("IDS60901", obs("IDS60901"), now)
	s.PutOrReplace("IDS60902", obs("IDS60902"), now)
	require.NoError(t, s.SnapshotAndResetWAL())
	require.NoError(t, s.Close())

	restored, err := store.Open(snapPath, walPath)
	require.NoError(t, err)
	defer restored.Close()

	got, ok := restored.GetOne("IDS60901", now)
	require.True(t, ok)
	id, _ := got.ID()
	assert.Equal(t, "IDS60901", id)
	assert.Equal(t, 2, restored.Size())
}

func TestWALReplayRecoversUnsnapshottedWrites(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snap.json")
	walPath := filepath.Join(dir, "kv.wal")

	s, err := store.Open(snapPath, walPath)
	require.NoError(t, err)
	s.PutOrReplace("IDS60901", obs("IDS60901"), time.Now())
	// No SnapshotAndResetWAL call: the write lives only in the WAL.
	require.NoError(t, s.Close())

	recovered, err := store.Open(snapPath, walPath)
	require.NoError(t, err)
	defer recovered.Close()

	_, ok := recovered.GetOne("IDS60901", time.Now())
	assert.True(t, ok)
}
