package publisher

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"weatheragg/internal/record"
)

// ErrInvalidFormat is returned for a station-file line that is not a
// well-formed "key:value" pair with both sides non-empty.
var ErrInvalidFormat = errors.New("publisher: invalid \"key:value\" line in station file")

// ErrMissingID is returned when a parsed station file has no "id" field.
var ErrMissingID = errors.New("publisher: station file has no \"id\" field")

// ParseStationFile parses a line-oriented key:value station file into an
// Observation. Blank lines are ignored; the first colon on a line is the
// separator. The file is always fully read before any emptiness or format
// decision is made.
func ParseStationFile(data []byte) (record.Observation, error) {
	obs := make(record.Observation)

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, line)
		}

		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" || val == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, line)
		}

		obs[key] = coerceValue(key, val)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if _, ok := obs.ID(); !ok {
		return nil, ErrMissingID
	}
	return obs, nil
}

// coerceValue turns a numeric-looking field value into a json.Number so it
// serializes as a JSON number rather than a quoted string (e.g.
// "air_temp": 13.3). The station id always stays a string.
func coerceValue(key, raw string) any {
	if key == "id" {
		return raw
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return json.Number(raw)
	}
	return raw
}
