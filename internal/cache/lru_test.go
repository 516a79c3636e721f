package cache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/cache"
)

func TestLRUPutGet(t *testing.T) {
	t.Parallel()

	c := cache.New[string, int](10)

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = c.Get("missing")
	require.False(t, ok)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := cache.New[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)

	// touch "a" so "b" becomes the least recently used entry.
	_, _ = c.Get("a")

	c.Put("c", 3)

	_, ok := c.Get("b")
	require.False(t, ok, "expected b to be evicted")

	_, ok = c.Get("a")
	require.True(t, ok)

	_, ok = c.Get("c")
	require.True(t, ok)

	require.Equal(t, 2, c.Len())
}

func TestLRUUnboundedWhenCapacityNonPositive(t *testing.T) {
	t.Parallel()

	c := cache.New[int, int](0)

	for i := 0; i < 100; i++ {
		c.Put(i, i*i)
	}

	require.Equal(t, 100, c.Len())
}

func TestLRUDeleteAndClear(t *testing.T) {
	t.Parallel()

	c := cache.New[string, int](10)
	c.Put("a", 1)
	c.Put("b", 2)

	c.Delete("a")

	_, ok := c.Get("a")
	require.False(t, ok)

	c.Clear()
	require.Equal(t, 0, c.Len())
}
