package clock_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheragg/internal/clock"
)

func TestTickMonotonic(t *testing.T) {
	c := clock.New()
	prev := int64(0)
	for i := 0; i < 10; i++ {
		v := c.Tick()
		assert.Greater(t, v, prev)
		prev = v
	}
}

func TestObserveTakesMax(t *testing.T) {
	c := clock.New()
	c.Tick() // c == 1

	v := c.Observe(10)
	require.Equal(t, int64(11), v)

	v = c.Observe(3)
	require.Equal(t, int64(12), v)
}

func TestReadDoesNotAdvance(t *testing.T) {
	c := clock.New()
	c.Tick()
	c.Tick()
	before := c.Read()
	after := c.Read()
	assert.Equal(t, before, after)
}

// TestUniqueUnderConcurrency checks that N concurrent callers each observe
// a distinct value.
func TestUniqueUnderConcurrency(t *testing.T) {
	c := clock.New()
	const n = 200

	results := make([]int64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				results[i] = c.Tick()
			} else {
				results[i] = c.Observe(int64(i))
			}
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, v := range results {
		assert.False(t, seen[v], "duplicate clock value %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, n)
}
