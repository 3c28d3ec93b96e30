package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharv3903/tourgraph/internal/algo"
	"github.com/atharv3903/tourgraph/internal/model"
)

func graph() *algo.RouteGraph {
	return algo.NewRouteGraph(
		[]model.Edge{{From: "A", To: "B", Weight: 1}},
		[]model.POI{{ID: "A"}, {ID: "B"}},
	)
}

func TestGraphCacheHitAndStats(t *testing.T) {
	c := NewGraphCacheWithCap(2)
	g := graph()

	_, ok := c.Get("vi")
	assert.False(t, ok)

	c.Put("vi", c.Generation("vi"), g)
	got, ok := c.Get("vi")
	require.True(t, ok)
	assert.Same(t, g, got)

	assert.Equal(t, Stats{Gets: 2, Hits: 1, Puts: 1, Entries: 1}, c.Stats())
}

func TestGraphCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewGraphCacheWithCap(2)
	c.Put("vi", c.Generation("vi"), graph())
	c.Put("en", c.Generation("en"), graph())

	// touch vi so en becomes the oldest
	_, _ = c.Get("vi")
	c.Put("ja", c.Generation("ja"), graph())

	_, ok := c.Get("en")
	assert.False(t, ok)
	_, ok = c.Get("vi")
	assert.True(t, ok)
	_, ok = c.Get("ja")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Stats().Evictions)
}

func TestGraphCacheInvalidateAndClear(t *testing.T) {
	c := NewGraphCache()
	c.Put("vi", c.Generation("vi"), graph())
	c.Put("en", c.Generation("en"), graph())

	c.Invalidate("vi")
	_, ok := c.Get("vi")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Evictions)

	c.Clear()
	assert.Equal(t, Stats{}, c.Stats())
}

func TestGraphCacheReplaceKeepsSingleEntry(t *testing.T) {
	c := NewGraphCacheWithCap(0)
	g1, g2 := graph(), graph()
	c.Put("vi", c.Generation("vi"), g1)
	c.Put("vi", c.Generation("vi"), g2)

	got, _ := c.Get("vi")
	assert.Same(t, g2, got)
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestGraphCacheConcurrentUse(t *testing.T) {
	c := NewGraphCacheWithCap(4)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("ds-%d", i%6)
			for j := 0; j < 100; j++ {
				if _, ok := c.Get(key); !ok {
					c.Put(key, c.Generation(key), graph())
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats().Entries, 4)
}

func TestGraphCachePutRejectsOutdatedGeneration(t *testing.T) {
	c := NewGraphCache()

	gen := c.Generation("vi")
	c.Invalidate("vi")
	assert.False(t, c.Put("vi", gen, graph()))
	_, ok := c.Get("vi")
	assert.False(t, ok)

	// other datasets are unaffected
	assert.True(t, c.Put("en", c.Generation("en"), graph()))

	gen = c.Generation("vi")
	require.True(t, c.Put("vi", gen, graph()))

	en := c.Generation("en")
	c.Clear()
	assert.NotEqual(t, en, c.Generation("en"))
	assert.False(t, c.Put("en", en, graph()))
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestRouteCacheEpoch(t *testing.T) {
	c := NewRouteCache()
	k := RouteKey{Dataset: "vi", Src: "A", Dst: "B", Epoch: c.Epoch()}
	c.Put(k, algo.Result{Total: 3})

	r, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, 3.0, r.Total)

	c.BumpEpoch()
	k2 := RouteKey{Dataset: "vi", Src: "A", Dst: "B", Epoch: c.Epoch()}
	_, ok = c.Get(k2)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(1), c.Epoch())
}
