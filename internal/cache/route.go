package cache

import (
	"sync"

	"github.com/atharv3903/tourgraph/internal/algo"
)

type RouteKey struct {
	Dataset  string
	Src, Dst string
	Epoch    uint64
}

// RouteCache stores shortest-path results. Bumping the epoch orphans every
// entry computed against older data; Clear reclaims them.
type RouteCache struct {
	mu    sync.RWMutex
	epoch uint64
	m     map[RouteKey]algo.Result
}

func NewRouteCache() *RouteCache {
	return &RouteCache{m: make(map[RouteKey]algo.Result)}
}

func (c *RouteCache) Get(k RouteKey) (algo.Result, bool) {
	c.mu.RLock()
	v, ok := c.m[k]
	c.mu.RUnlock()
	return v, ok
}

func (c *RouteCache) Put(k RouteKey, r algo.Result) {
	c.mu.Lock()
	c.m[k] = r
	c.mu.Unlock()
}

func (c *RouteCache) Epoch() uint64 {
	c.mu.RLock()
	e := c.epoch
	c.mu.RUnlock()
	return e
}

func (c *RouteCache) BumpEpoch() {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()
}

func (c *RouteCache) Len() int {
	c.mu.RLock()
	n := len(c.m)
	c.mu.RUnlock()
	return n
}

// Clear drops all entries but keeps the epoch, so keys built before the
// call stay valid for new Puts.
func (c *RouteCache) Clear() {
	c.mu.Lock()
	c.m = make(map[RouteKey]algo.Result)
	c.mu.Unlock()
}
