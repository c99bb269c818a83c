package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"weatheragg/internal/record"
)

// walEntry is one durable PUT: a station-keyed observation with no
// writer-id or version field, since this store has a single writer.
type walEntry struct {
	ID          string             `json:"id"`
	Observation record.Observation `json:"observation"`
	LastUpdate  int64              `json:"last_update_ms"`
}

// WAL is an append-only, fsync-on-write log of accepted PUTs, truncated
// every time the store snapshots its full state to disk. It is a
// crash-safety net for the narrow window between a PUT being accepted and
// its snapshot flush; since the store flushes before acknowledging a PUT,
// that window never crosses a response boundary, so the WAL is nearly
// always empty by the time a caller observes state.
type WAL struct {
	mu    sync.Mutex
	path  string
	f     *os.File
	ops   int
	bytes int64
}

// OpenWAL opens path for append, creating it and its parent directory if
// necessary.
func OpenWAL(path string) (*WAL, error) {
	if path == "" {
		return nil, errors.New("store: wal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	w := &WAL{path: path, f: f}
	if st, err := f.Stat(); err == nil {
		w.bytes = st.Size()
	}
	return w, nil
}

func (w *WAL) append(id string, obs record.Observation, lastUpdateMs int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := json.Marshal(walEntry{ID: id, Observation: obs, LastUpdate: lastUpdateMs})
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if _, err := w.f.Write(b); err != nil {
		return err
	}
	if err := w.f.Sync(); err != nil {
		return err
	}

	w.ops++
	w.bytes += int64(len(b))
	return nil
}

func (w *WAL) replay(apply func(id string, obs record.Observation, lastUpdateMs int64)) error {
	f, err := os.Open(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e walEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		if e.ID == "" {
			continue
		}
		apply(e.ID, e.Observation, e.LastUpdate)
	}
	return sc.Err()
}

// Truncate discards all WAL contents. Called right after a successful
// snapshot flush, since the snapshot now fully represents the state the
// WAL used to reconstruct.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.f = f
	w.ops = 0
	w.bytes = 0
	return w.f.Sync()
}

// Stats reports operation and byte counters since the last Truncate, used
// by the server's /debug/stats endpoint.
func (w *WAL) Stats() (ops int, bytes int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ops, w.bytes
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *WAL) Path() string { return w.path }
