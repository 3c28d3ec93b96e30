package algo

import (
	"math"

	"github.com/atharv3903/tourgraph/internal/model"
)

// Result is a shortest-path answer. Path is empty when no route exists.
type Result struct {
	Path     []model.POI
	Total    float64
	Explored int
}

// FindShortestPath returns the nodes of a minimum-weight path from startID
// to endID, or an empty slice if either id is unknown or the two are not
// connected.
func (g *RouteGraph) FindShortestPath(startID, endID string) []model.POI {
	return g.Route(startID, endID).Path
}

// Route runs Dijkstra from startID and stops as soon as endID is settled.
func (g *RouteGraph) Route(startID, endID string) Result {
	if !g.Has(startID) || !g.Has(endID) {
		return Result{Path: []model.POI{}}
	}

	dist := make(map[string]float64, len(g.adj))
	for id := range g.adj {
		dist[id] = math.Inf(1)
	}
	dist[startID] = 0
	prev := map[string]string{}
	settled := make(map[string]bool, len(g.adj))

	q := NewPriorityQueue()
	q.Enqueue(startID, 0)
	explored := 0
	reached := false

	for !q.IsEmpty() {
		u, d, _ := q.Dequeue()

		// stale entry, a shorter distance was recorded after it was queued
		if d > dist[u] {
			continue
		}

		if u == endID {
			reached = true
			break
		}

		if settled[u] {
			continue
		}
		settled[u] = true
		explored++

		for _, e := range g.adj[u] {
			if settled[e.id] {
				continue
			}
			nd := dist[u] + e.weight
			if nd < dist[e.id] {
				dist[e.id] = nd
				prev[e.id] = u
				q.Enqueue(e.id, nd)
			}
		}
	}

	if !reached {
		return Result{Path: []model.POI{}, Explored: explored}
	}

	// reconstruct
	ids := []string{}
	cur := endID
	for cur != startID {
		ids = append(ids, cur)
		cur = prev[cur]
	}
	ids = append(ids, startID)

	path := make([]model.POI, len(ids))
	for i, id := range ids {
		path[len(ids)-1-i] = g.coordinate(id)
	}

	return Result{Path: path, Total: dist[endID], Explored: explored}
}
