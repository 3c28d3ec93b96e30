package cache

import (
	"container/list"
	"sync"

	"github.com/atharv3903/tourgraph/internal/algo"
)

// defaultGraphCapacity is the number of dataset graphs kept in memory.
// One dataset per tour language is typical.
const defaultGraphCapacity = 16

type graphEntry struct {
	key string
	val *algo.RouteGraph
}

// GraphCache is a bounded LRU cache of built route graphs keyed by dataset.
// It's safe for concurrent use.
type GraphCache struct {
	mu       sync.Mutex
	m        map[string]*list.Element
	ll       *list.List
	capacity int
	// gen is bumped by every Invalidate and Clear. gens holds the value
	// of gen at the last invalidation of a dataset, cleared the value at
	// the last Clear.
	gen     uint64
	gens    map[string]uint64
	cleared uint64
	// stats
	puts      int
	gets      int
	hits      int
	evictions int
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Gets      int `json:"gets"`
	Hits      int `json:"hits"`
	Puts      int `json:"puts"`
	Evictions int `json:"evictions"`
	Entries   int `json:"entries"`
}

func NewGraphCache() *GraphCache {
	return NewGraphCacheWithCap(defaultGraphCapacity)
}

// NewGraphCacheWithCap falls back to the default capacity when capacity <= 0.
func NewGraphCacheWithCap(capacity int) *GraphCache {
	if capacity <= 0 {
		capacity = defaultGraphCapacity
	}
	return &GraphCache{
		m:        make(map[string]*list.Element, capacity),
		ll:       list.New(),
		capacity: capacity,
		gens:     make(map[string]uint64),
	}
}

// Get returns the graph for dataset and moves it to the front on a hit.
func (c *GraphCache) Get(dataset string) (*algo.RouteGraph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	if el, ok := c.m[dataset]; ok {
		c.hits++
		c.ll.MoveToFront(el)
		return el.Value.(graphEntry).val, true
	}
	return nil, false
}

// Generation returns a value that changes whenever dataset is invalidated.
// Read it before loading the rows a graph is built from and hand it to Put.
func (c *GraphCache) Generation(dataset string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation(dataset)
}

func (c *GraphCache) generation(dataset string) uint64 {
	return max(c.gens[dataset], c.cleared)
}

// Put stores g, evicting the least recently used graph when over capacity.
// It reports false and stores nothing when dataset was invalidated after
// gen was read, since g may then be built from outdated rows.
func (c *GraphCache) Put(dataset string, gen uint64, g *algo.RouteGraph) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation(dataset) != gen {
		return false
	}

	c.puts++
	if el, ok := c.m[dataset]; ok {
		el.Value = graphEntry{key: dataset, val: g}
		c.ll.MoveToFront(el)
		return true
	}

	el := c.ll.PushFront(graphEntry{key: dataset, val: g})
	c.m[dataset] = el

	if c.ll.Len() > c.capacity {
		tail := c.ll.Back()
		if tail != nil {
			ge := tail.Value.(graphEntry)
			delete(c.m, ge.key)
			c.ll.Remove(tail)
			c.evictions++
		}
	}
	return true
}

// Invalidate drops one dataset. Not counted as an eviction.
func (c *GraphCache) Invalidate(dataset string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.gens[dataset] = c.gen
	if el, ok := c.m[dataset]; ok {
		delete(c.m, dataset)
		c.ll.Remove(el)
	}
}

// Clear fully resets the cache and stats.
func (c *GraphCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]*list.Element, c.capacity)
	c.ll.Init()
	c.gen++
	c.cleared = c.gen
	clear(c.gens)
	c.puts = 0
	c.gets = 0
	c.hits = 0
	c.evictions = 0
}

func (c *GraphCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Gets:      c.gets,
		Hits:      c.hits,
		Puts:      c.puts,
		Evictions: c.evictions,
		Entries:   c.ll.Len(),
	}
}
