// Package clock implements a Lamport logical clock.
//
// A Clock is safe for concurrent use. Every Tick and Observe call is
// serialized under a single mutex so that no two callers ever observe the
// same return value, which is the property the rest of the system relies on
// to build a total order over local and remote events.
package clock

import "sync"

// Clock is a per-process Lamport clock. The zero value is a clock at 0,
// ready to use; New returns one.
type Clock struct {
	mu    sync.Mutex
	value int64
}

// New returns a Clock starting at 0.
func New() *Clock {
	return &Clock{}
}

// Tick records a local event and returns the new clock value.
func (c *Clock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value++
	return c.value
}

// Observe records receipt of a message carrying remote, advancing the clock
// to max(local, remote)+1, and returns the new value.
func (c *Clock) Observe(remote int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if remote > c.value {
		c.value = remote
	}
	c.value++
	return c.value
}

// Read returns the current value without advancing it.
func (c *Clock) Read() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}
