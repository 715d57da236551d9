package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCompute_CachesWithinTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := New[int](WithTTL(300*time.Second), WithClock(func() time.Time { return now }))

	var calls int
	fn := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrCompute(context.Background(), "k", fn)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.GetOrCompute(context.Background(), "k", fn)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls, "second call within TTL must not recompute")

	// Past expiry the value is recomputed.
	now = now.Add(301 * time.Second)
	_, err = c.GetOrCompute(context.Background(), "k", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrCompute_Stampede(t *testing.T) {
	c := New[string](WithTTL(time.Minute))

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "result", nil
	}

	const n = 32
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute(context.Background(), "cold", fn)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Let the goroutines pile up on the single flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "N concurrent callers must trigger exactly one compute")
	for _, r := range results {
		assert.Equal(t, "result", r)
	}
}

func TestGetOrCompute_FailureNotCached(t *testing.T) {
	c := New[int](WithTTL(time.Minute))

	var calls int
	boom := errors.New("upstream down")
	_, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	v, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls, "failed compute must not poison the cache")
}

func TestSet_FIFOEviction(t *testing.T) {
	c := New[int](WithCapacity(3))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Set("d", 4) // evicts "a", the oldest insert

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Contains("a"))
	assert.True(t, c.Contains("b"))
	assert.True(t, c.Contains("c"))
	assert.True(t, c.Contains("d"))

	// Updating an existing key keeps its eviction position.
	c.Set("b", 20)
	c.Set("e", 5) // evicts "b" despite the recent update
	assert.False(t, c.Contains("b"))
	assert.True(t, c.Contains("e"))
}

func TestEviction_PastCapacityBound(t *testing.T) {
	c := New[int](WithCapacity(1000))

	for i := 0; i < 1001; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}

	assert.Equal(t, 1000, c.Len())
	assert.False(t, c.Contains("key-0"), "oldest entry evicted first")
	assert.True(t, c.Contains("key-1"))
	assert.True(t, c.Contains("key-1000"))
}

func TestSweepIdle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := New[int](WithClock(func() time.Time { return now }))

	c.Set("old", 1)
	now = now.Add(2 * time.Hour)
	c.Set("fresh", 2)

	swept := c.SweepIdle(time.Hour)
	assert.Equal(t, []string{"old"}, swept)
	assert.False(t, c.Contains("old"))
	assert.True(t, c.Contains("fresh"))
}

func TestDelete(t *testing.T) {
	c := New[int]()
	c.Set("k", 1)
	c.Delete("k")
	assert.False(t, c.Contains("k"))
	assert.Equal(t, 0, c.Len())

	// Deleting a missing key is a no-op.
	c.Delete("missing")
}
