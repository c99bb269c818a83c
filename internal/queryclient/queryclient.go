// Package queryclient implements the interactive query client: issue one
// GET to the aggregation server and print a human-readable report of
// whatever it returns.
package queryclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"weatheragg/internal/clock"
	"weatheragg/internal/wire"
)

const weatherPath = "/weatherInfo.json"

// ErrUsage is returned by ParseArgs when no server URL is given.
var ErrUsage = errors.New("usage: client <server-url> [station-id]")

const maxAttempts = 3

// RetryDelay is the pause between failed request attempts. A var so tests
// can shorten it.
var RetryDelay = 3 * time.Second

// ParseArgs validates the client's positional CLI arguments: a required
// server URL and an optional station id.
func ParseArgs(args []string) (serverURL, stationID string, err error) {
	if len(args) < 1 || args[0] == "" {
		return "", "", ErrUsage
	}
	serverURL = args[0]
	if len(args) > 1 {
		stationID = args[1]
	}
	return serverURL, stationID, nil
}

// Client queries one server for one station id, or for the full live set
// when stationID is empty.
type Client struct {
	serverURL string
	stationID string

	clock *clock.Clock
	wire  *wire.Client
}

// New builds a Client.
func New(serverURL, stationID string) *Client {
	return &Client{
		serverURL: serverURL,
		stationID: stationID,
		clock:     clock.New(),
		wire:      wire.NewClient(5 * time.Second),
	}
}

// Fetch issues the GET, making up to maxAttempts attempts in total on
// transport failure, and returns the report text to print. A non-200 response is
// reported as an error line rather than a Go error, matching the
// reference client's behavior of printing and exiting cleanly.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	path := weatherPath
	if c.stationID != "" {
		path += "?id=" + c.stationID
	}

	var res wire.Result
	boff := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(RetryDelay), maxAttempts-1), ctx)
	err := backoff.Retry(func() error {
		v := c.clock.Tick()
		r, err := c.wire.Do(ctx, c.serverURL, "GET", path, map[string]string{
			"Lamport-Clock": strconv.FormatInt(v, 10),
		}, nil)
		if err != nil {
			return err
		}
		res = r
		return nil
	}, boff)
	if err != nil {
		return "", fmt.Errorf("queryclient: request failed after %d attempts: %w", maxAttempts, err)
	}

	if rc := wire.LamportClock(res.Headers); rc > 0 {
		c.clock.Observe(rc)
	} else {
		c.clock.Tick()
	}

	if res.Status != 200 {
		return fmt.Sprintf("Error: Server returned status code %d", res.Status), nil
	}

	return Format(res.Body)
}

// Format renders a server response body as the client's text report: one
// key: value block per observation, blocks separated by a blank line. A
// response shape that is neither a JSON array nor a JSON object is
// reported as an error.
func Format(body []byte) (string, error) {
	var arr []map[string]any
	if err := json.Unmarshal(body, &arr); err == nil {
		blocks := make([]string, 0, len(arr))
		for _, o := range arr {
			blocks = append(blocks, formatOne(o))
		}
		return strings.Join(blocks, "\n\n"), nil
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		return formatOne(obj), nil
	}

	return "", fmt.Errorf("queryclient: unexpected response shape")
}

func formatOne(o map[string]any) string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, o[k]))
	}
	return strings.Join(lines, "\n")
}
