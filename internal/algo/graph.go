package algo

import (
	"math"

	"github.com/atharv3903/tourgraph/internal/geo"
	"github.com/atharv3903/tourgraph/internal/model"
)

type neighbor struct {
	id     string
	weight float64
}

// RouteGraph is an undirected weighted graph over POIs. It is read-only
// after NewRouteGraph returns and safe for concurrent queries.
//
// Negative weights or NaN coordinates give undefined (but non-panicking)
// results; the loader is expected to reject them.
type RouteGraph struct {
	adj   map[string][]neighbor
	pois  []model.POI
	index map[string]int
	edges int
}

// NewRouteGraph inserts every edge in both directions, even when the input
// already lists the mirrored edge.
func NewRouteGraph(edges []model.Edge, pois []model.POI) *RouteGraph {
	g := &RouteGraph{
		adj:   make(map[string][]neighbor, len(pois)),
		pois:  make([]model.POI, len(pois)),
		index: make(map[string]int, len(pois)),
		edges: len(edges),
	}
	copy(g.pois, pois)

	for i, p := range g.pois {
		if _, dup := g.index[p.ID]; !dup {
			g.index[p.ID] = i
		}
	}

	for _, e := range edges {
		g.adj[e.From] = append(g.adj[e.From], neighbor{id: e.To, weight: e.Weight})
		g.adj[e.To] = append(g.adj[e.To], neighbor{id: e.From, weight: e.Weight})
	}

	return g
}

// Has reports whether id is a node of the adjacency list.
func (g *RouteGraph) Has(id string) bool {
	_, ok := g.adj[id]
	return ok
}

// POI looks up the coordinate of id.
func (g *RouteGraph) POI(id string) (model.POI, bool) {
	i, ok := g.index[id]
	if !ok {
		return model.POI{}, false
	}
	return g.pois[i], true
}

func (g *RouteGraph) POIs() []model.POI {
	out := make([]model.POI, len(g.pois))
	copy(out, g.pois)
	return out
}

func (g *RouteGraph) NodeCount() int { return len(g.adj) }

func (g *RouteGraph) EdgeCount() int { return g.edges }

// FindNearestPOI scans every known POI, including those no edge refers to,
// and returns the first one at minimal distance from point. ok is false
// only when the POI set is empty.
func (g *RouteGraph) FindNearestPOI(point model.Position, useHaversine bool) (model.POI, bool) {
	dist := geo.Euclidean
	if useHaversine {
		dist = geo.Haversine
	}

	best := -1
	bestDist := math.Inf(1)
	for i, p := range g.pois {
		d := dist(point.Lat, point.Lng, p.Lat, p.Lng)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}

	if best < 0 {
		return model.POI{}, false
	}
	return g.pois[best], true
}

// PathWeight sums the cheapest edge between each consecutive pair of path.
// ok is false if some pair is not adjacent.
func (g *RouteGraph) PathWeight(path []model.POI) (float64, bool) {
	total := 0.0
	for i := 1; i < len(path); i++ {
		w, ok := g.edgeWeight(path[i-1].ID, path[i].ID)
		if !ok {
			return 0, false
		}
		total += w
	}
	return total, true
}

func (g *RouteGraph) edgeWeight(from, to string) (float64, bool) {
	found := false
	best := math.Inf(1)
	for _, n := range g.adj[from] {
		if n.id == to && n.weight < best {
			best = n.weight
			found = true
		}
	}
	return best, found
}

// coordinate falls back to an id-only POI for nodes that appear in edges
// but not in the POI list.
func (g *RouteGraph) coordinate(id string) model.POI {
	if p, ok := g.POI(id); ok {
		return p
	}
	return model.POI{ID: id}
}
