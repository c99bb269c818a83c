// Package publisher implements the periodic station-file uploader: read a
// local key:value file, serialize it, and PUT it to the aggregation
// server, retrying transient failures with backoff.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"weatheragg/internal/clock"
	"weatheragg/internal/record"
	"weatheragg/internal/wire"
)

const weatherPath = "/weatherInfo.json"

// maxAttempts bounds the retry loop: after this many failures, the error
// is surfaced instead of retried again.
const maxAttempts = 3

// RetryDelay is the pause between failed upload attempts. It is a var
// rather than a const so tests can shorten it.
var RetryDelay = 3 * time.Second

func accepted(status int) bool {
	return status == 200 || status == 201 || status == 204
}

// Publisher periodically uploads one station file to one server.
type Publisher struct {
	serverURL string
	filePath  string
	interval  time.Duration

	clock *clock.Clock
	wire  *wire.Client
}

// New builds a Publisher that uploads filePath to serverURL every interval.
func New(serverURL, filePath string, interval time.Duration) *Publisher {
	return &Publisher{
		serverURL: serverURL,
		filePath:  filePath,
		interval:  interval,
		clock:     clock.New(),
		wire:      wire.NewClient(5 * time.Second),
	}
}

// Run uploads once immediately, then every interval, until ctx is
// cancelled. A read or parse failure on any one cycle is logged and
// skipped rather than aborting the publisher.
func (p *Publisher) Run(ctx context.Context) {
	p.tick(ctx)

	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx)
		}
	}
}

func (p *Publisher) tick(ctx context.Context) {
	if err := p.uploadOnce(ctx); err != nil {
		log.Printf("publisher: upload cycle failed: %v", err)
	}
}

// UploadOnce runs a single read/parse/send cycle and returns its error
// instead of logging it, for callers that want to observe failures
// directly (tests, one-shot CLI invocations).
func (p *Publisher) UploadOnce(ctx context.Context) error {
	return p.uploadOnce(ctx)
}

// uploadOnce runs one read/parse/serialize/send cycle, ticking the clock
// at each step, and makes up to maxAttempts send attempts in total with
// RetryDelay between them.
func (p *Publisher) uploadOnce(ctx context.Context) error {
	p.clock.Tick() // begin cycle

	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return fmt.Errorf("read station file: %w", err)
	}

	obs, err := ParseStationFile(data)
	if err != nil {
		return fmt.Errorf("parse station file: %w", err)
	}
	p.clock.Tick() // parsed

	body, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("serialize observation: %w", err)
	}
	p.clock.Tick() // serialized

	var lastStatus int
	boff := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(RetryDelay), maxAttempts-1), ctx)

	sendErr := backoff.Retry(func() error {
		res, err := p.send(ctx, body)
		if err != nil {
			return err
		}
		lastStatus = res.Status
		if !accepted(res.Status) {
			return fmt.Errorf("server returned status %d", res.Status)
		}
		return nil
	}, boff)

	if sendErr != nil {
		return fmt.Errorf("upload failed after %d attempts (last status %d): %w", maxAttempts, lastStatus, sendErr)
	}

	id, _ := obs.ID()
	p.verify(ctx, id, obs)
	return nil
}

func (p *Publisher) send(ctx context.Context, body []byte) (wire.Result, error) {
	v := p.clock.Tick()
	headers := map[string]string{
		"Content-Type":   "application/json",
		"Content-Length": strconv.Itoa(len(body)),
		"Lamport-Clock":  strconv.FormatInt(v, 10),
	}
	res, err := p.wire.Do(ctx, p.serverURL, "PUT", weatherPath, headers, body)
	if err != nil {
		return wire.Result{}, err
	}
	if rc := wire.LamportClock(res.Headers); rc > 0 {
		p.clock.Observe(rc)
	} else {
		p.clock.Tick()
	}
	return res, nil
}

// verify performs an optional read-back check after a successful upload.
// A mismatch or transport failure is logged, never retried; the next
// periodic cycle will simply re-publish.
func (p *Publisher) verify(ctx context.Context, id string, sent record.Observation) {
	headers := map[string]string{"Lamport-Clock": strconv.FormatInt(p.clock.Tick(), 10)}
	res, err := p.wire.Do(ctx, p.serverURL, "GET", weatherPath+"?id="+id, headers, nil)
	if err != nil {
		log.Printf("publisher: verification GET for %q failed: %v", id, err)
		return
	}
	if rc := wire.LamportClock(res.Headers); rc > 0 {
		p.clock.Observe(rc)
	} else {
		p.clock.Tick()
	}

	if res.Status != 200 {
		log.Printf("publisher: verification GET for %q returned status %d", id, res.Status)
		return
	}

	got, err := record.Parse(res.Body)
	if err != nil {
		log.Printf("publisher: verification GET for %q returned unparsable body: %v", id, err)
		return
	}
	if !got.Equal(sent) {
		log.Printf("publisher: verification mismatch for %q: sent %v, server has %v", id, sent, got)
	}
}
