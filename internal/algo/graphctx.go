package algo

import (
	"context"
	"fmt"

	"github.com/atharv3903/tourgraph/internal/model"
)

// DatasetSource is the part of the store a graph is built from.
type DatasetSource interface {
	POIs(ctx context.Context, dataset string) ([]model.POI, error)
	Edges(ctx context.Context, dataset string) ([]model.Edge, error)
}

// GraphStore memoises built graphs by dataset. Put must refuse a graph
// when the dataset was invalidated after gen was read from Generation.
type GraphStore interface {
	Get(dataset string) (*RouteGraph, bool)
	Generation(dataset string) uint64
	Put(dataset string, gen uint64, g *RouteGraph) bool
	Invalidate(dataset string)
}

// GraphCtx builds one RouteGraph per dataset and keeps it in Graphs until
// the dataset is invalidated.
type GraphCtx struct {
	Source DatasetSource
	Graphs GraphStore
}

func (g GraphCtx) Graph(ctx context.Context, dataset string) (*RouteGraph, error) {
	if v, ok := g.Graphs.Get(dataset); ok {
		return v, nil
	}
	gen := g.Graphs.Generation(dataset)

	pois, err := g.Source.POIs(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("load pois for %s: %w", dataset, err)
	}
	edges, err := g.Source.Edges(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("load edges for %s: %w", dataset, err)
	}

	// a graph that lost the race with an invalidation still answers this
	// call but is not kept
	rg := NewRouteGraph(edges, pois)
	g.Graphs.Put(dataset, gen, rg)
	return rg, nil
}

func (g GraphCtx) Invalidate(dataset string) {
	g.Graphs.Invalidate(dataset)
}
