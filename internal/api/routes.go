package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/atharv3903/tourgraph/internal/algo"
	"github.com/atharv3903/tourgraph/internal/cache"
	"github.com/atharv3903/tourgraph/internal/geo"
	"github.com/atharv3903/tourgraph/internal/model"
)

type datasetResponse struct {
	Dataset string `json:"dataset"`
	POIs    int    `json:"pois"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
}

// handleDataset reports the size of the routing graph, closed edges excluded.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")
	g, err := s.GCtx.Graph(r.Context(), dataset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pois := len(g.POIs())
	if pois == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("dataset %s not found", dataset))
		return
	}
	writeJSON(w, http.StatusOK, datasetResponse{
		Dataset: dataset,
		POIs:    pois,
		Nodes:   g.NodeCount(),
		Edges:   g.EdgeCount(),
	})
}

func (s *Server) handleTours(w http.ResponseWriter, r *http.Request) {
	tours, err := s.Store.Tours(r.Context(), chi.URLParam(r, "dataset"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tours)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")
	q := r.URL.Query()
	src, dst := q.Get("src"), q.Get("dst")
	if src == "" || dst == "" {
		writeError(w, http.StatusBadRequest, "src and dst are required")
		return
	}

	key := cache.RouteKey{
		Dataset: dataset,
		Src:     src,
		Dst:     dst,
		Epoch:   s.RC.Epoch(),
	}

	res, hit := s.RC.Get(key)
	if !hit {
		g, err := s.GCtx.Graph(r.Context(), dataset)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if len(g.POIs()) == 0 {
			writeError(w, http.StatusNotFound, fmt.Sprintf("dataset %s not found", dataset))
			return
		}

		res = g.Route(src, dst)
		if len(res.Path) > 0 {
			s.RC.Put(key, res)
		}
	}

	if q.Get("format") == "geojson" {
		writeGeoJSON(w, routeFeatures(dataset, res, hit))
		return
	}

	writeJSON(w, http.StatusOK, model.RouteResponse{
		Path:          res.Path,
		Total:         res.Total,
		ExploredNodes: res.Explored,
		CacheHit:      hit,
	})
}

// routeFeatures renders a route as one LineString plus a Point per node.
// GeoJSON coordinates are [lng, lat].
func routeFeatures(dataset string, res algo.Result, hit bool) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, 0, len(res.Path))
	for _, p := range res.Path {
		line = append(line, orb.Point{p.Lng, p.Lat})
	}
	route := geojson.NewFeature(line)
	route.Properties["dataset"] = dataset
	route.Properties["total"] = res.Total
	route.Properties["explored_nodes"] = res.Explored
	route.Properties["cache_hit"] = hit
	fc.Append(route)

	for i, p := range res.Path {
		stop := geojson.NewFeature(orb.Point{p.Lng, p.Lat})
		stop.Properties["id"] = p.ID
		stop.Properties["seq"] = i
		fc.Append(stop)
	}
	return fc
}

func writeGeoJSON(w http.ResponseWriter, fc *geojson.FeatureCollection) {
	body, err := fc.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

type nearestResponse struct {
	POI    model.POI `json:"poi"`
	Metric string    `json:"metric"`
	// Distance is meters for haversine and degrees for euclidean.
	Distance float64 `json:"distance"`
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")
	q := r.URL.Query()

	pos, err := parsePosition(q.Get("lat"), q.Get("lng"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metric, err := geo.ParseMetric(q.Get("metric"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, err := s.GCtx.Graph(r.Context(), dataset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, ok := g.FindNearestPOI(pos, metric == geo.MetricHaversine)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("dataset %s has no pois", dataset))
		return
	}

	d := geo.Haversine(pos.Lat, pos.Lng, p.Lat, p.Lng)
	if metric == geo.MetricEuclidean {
		d = geo.Euclidean(pos.Lat, pos.Lng, p.Lat, p.Lng)
	}
	writeJSON(w, http.StatusOK, nearestResponse{POI: p, Metric: metric.String(), Distance: d})
}

func parsePosition(lat, lng string) (model.Position, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil || la < -90 || la > 90 {
		return model.Position{}, fmt.Errorf("invalid lat %q", lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil || ln < -180 || ln > 180 {
		return model.Position{}, fmt.Errorf("invalid lng %q", lng)
	}
	return model.Position{Lat: la, Lng: ln}, nil
}

type updateRequest struct {
	EdgeID  int64    `json:"edge_id"`
	Dataset string   `json:"dataset,omitempty"`
	Weight  *float64 `json:"weight,omitempty"`
	Closed  *bool    `json:"closed,omitempty"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.EdgeID <= 0 {
		writeError(w, http.StatusBadRequest, "edge_id is required")
		return
	}
	if req.Weight == nil && req.Closed == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if req.Weight != nil && (*req.Weight < 0 || math.IsInf(*req.Weight, 0) || math.IsNaN(*req.Weight)) {
		writeError(w, http.StatusBadRequest, "weight must be a non-negative number")
		return
	}

	// the edge's own dataset decides which graph goes stale
	ctx := r.Context()
	dataset, err := s.Store.EdgeDataset(ctx, req.EdgeID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Dataset != "" && req.Dataset != dataset {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("edge %d belongs to dataset %s, not %s", req.EdgeID, dataset, req.Dataset))
		return
	}

	if req.Weight != nil {
		if err := s.Store.UpdateEdgeWeight(ctx, req.EdgeID, *req.Weight); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if req.Closed != nil {
		if err := s.Store.UpdateEdgeClosed(ctx, req.EdgeID, *req.Closed); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	s.GCtx.Invalidate(dataset)
	s.RC.BumpEpoch()

	s.logger.Info("edge updated",
		zap.Int64("edge_id", req.EdgeID),
		zap.String("dataset", dataset),
		zap.Uint64("route_epoch", s.RC.Epoch()),
	)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "dataset": dataset})
}
