package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"weatheragg/internal/record"
	"weatheragg/internal/store"
	"weatheragg/internal/wire"
)

// weatherPath is the one path every component in this system uses.
const weatherPath = "/weatherInfo.json"

const debugStatsPath = "/debug/stats"

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.cfg.ReadTimeout))

	r := bufio.NewReader(conn)
	req, err := wire.ReadRequest(r)
	if err != nil {
		// Can't parse even a request line: there is nothing meaningful to
		// reply with, so drop the connection and keep accepting.
		return
	}

	if err := s.dispatch(conn, r, req); err != nil {
		s.respond(conn, http.StatusBadRequest, []byte(err.Error()))
	}
}

func (s *Server) dispatch(conn net.Conn, r *bufio.Reader, req wire.Request) error {
	path, rawQuery := splitPath(req.Path)

	switch {
	case req.Method == http.MethodGet && path == weatherPath:
		s.handleGet(conn, rawQuery)
		return nil
	case req.Method == http.MethodPut && path == weatherPath:
		s.handlePut(conn, r, req)
		return nil
	case req.Method == http.MethodGet && path == debugStatsPath:
		s.handleDebugStats(conn)
		return nil
	default:
		return fmt.Errorf("%w: %s %s", ErrUnsupportedRoute, req.Method, req.Path)
	}
}

func splitPath(raw string) (path, rawQuery string) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, ""
}

// handleGet ticks for the start of handling, runs an inline TTL sweep,
// then returns either a single observation, the full live set, or 404.
func (s *Server) handleGet(conn net.Conn, rawQuery string) {
	s.clock.Tick() // begin handling

	if evicted := s.store.Expire(time.Now()); len(evicted) > 0 {
		if err := s.store.SnapshotAndResetWAL(); err != nil {
			log.Printf("server: inline sweep snapshot flush: %v", err)
		}
	}

	query, _ := url.ParseQuery(rawQuery)
	id := query.Get("id")
	now := time.Now()

	if id != "" {
		obs, ok := s.store.GetOne(id, now)
		if !ok {
			s.respond(conn, http.StatusNotFound, nil)
			return
		}
		body, err := json.Marshal(obs)
		if err != nil {
			s.respond(conn, http.StatusInternalServerError, []byte("encode failure"))
			return
		}
		s.respond(conn, http.StatusOK, body)
		return
	}

	all := s.store.GetAll(now)
	if len(all) == 0 {
		s.respond(conn, http.StatusNotFound, nil)
		return
	}
	body, err := json.Marshal(all)
	if err != nil {
		s.respond(conn, http.StatusInternalServerError, []byte("encode failure"))
		return
	}
	s.respond(conn, http.StatusOK, body)
}

// handlePut handles an empty body as a tick-only no-op (no observe, no
// snapshot flush), and otherwise splits parse failures (malformed JSON,
// 500) from semantic failures (missing id, 400).
func (s *Server) handlePut(conn net.Conn, r *bufio.Reader, req wire.Request) {
	n := wire.ContentLength(req.Headers)
	if n == 0 {
		s.clock.Tick()
		s.respond(conn, http.StatusNoContent, nil)
		return
	}

	body, err := wire.ReadBody(r, n)
	if err != nil {
		s.respond(conn, http.StatusBadRequest, []byte("short body read"))
		return
	}

	s.clock.Observe(wire.LamportClock(req.Headers))

	obs, err := record.Parse(body)
	if err != nil {
		s.respond(conn, http.StatusInternalServerError, []byte(err.Error()))
		return
	}

	id, ok := obs.ID()
	if !ok {
		s.respond(conn, http.StatusBadRequest, []byte("missing or empty \"id\" field"))
		return
	}

	result, _, _ := s.store.PutOrReplace(id, obs, time.Now())

	if err := s.store.SnapshotAndResetWAL(); err != nil {
		log.Printf("server: snapshot flush: %v", err)
	}

	status := http.StatusOK
	if result == store.Created {
		status = http.StatusCreated
	}
	s.respond(conn, status, nil)
}

func (s *Server) handleDebugStats(conn net.Conn) {
	ops, bytes := s.store.WALStats()
	stats := map[string]any{
		"store_size":    s.store.Size(),
		"clock":         s.clock.Read(),
		"wal_ops":       ops,
		"wal_bytes":     bytes,
		"state":         s.State().String(),
		"max_stations":  store.MaxStations,
		"ttl_seconds":   int(store.TTL.Seconds()),
	}
	body, err := json.Marshal(stats)
	if err != nil {
		s.respond(conn, http.StatusInternalServerError, []byte("encode failure"))
		return
	}
	s.respond(conn, http.StatusOK, body)
}

// respond assembles and writes one HTTP response, ticking the clock once
// more for the response's Lamport-Clock header.
func (s *Server) respond(conn net.Conn, status int, body []byte) {
	v := s.clock.Tick()
	headers := map[string]string{
		"Content-Type":  "application/json",
		"Lamport-Clock": strconv.FormatInt(v, 10),
	}
	if err := wire.WriteResponse(conn, status, headers, body); err != nil {
		log.Printf("server: write response: %v", err)
	}
}
