package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atharv3903/tourgraph/internal/dataset"
	"github.com/atharv3903/tourgraph/internal/db"
	"github.com/atharv3903/tourgraph/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))

	d, err := dataset.Load(filepath.Join("..", "..", "data", "pagoda_vi.json"))
	require.NoError(t, err)
	_, err = store.ImportDataset(ctx, d)
	require.NoError(t, err)

	return New(store, zap.NewNop(), Options{})
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func ids(path []model.POI) []string {
	out := make([]string, len(path))
	for i, p := range path {
		out[i] = p.ID
	}
	return out
}

type snapshotBody struct {
	SessionID   string               `json:"session_id"`
	TourID      string               `json:"tour_id"`
	State       string               `json:"state"`
	Event       string               `json:"event"`
	Target      *model.TourWaypoint  `json:"target"`
	Remaining   []model.TourWaypoint `json:"remaining"`
	Path        []model.POI          `json:"path"`
	LastVisited *model.TourWaypoint  `json:"last_visited"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", decode[map[string]any](t, rec)["database"])
}

func TestRouteAndCache(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/datasets/vi/route?src=POI-001&dst=POI-004", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[model.RouteResponse](t, rec)
	assert.Equal(t, []string{"POI-001", "POI-002", "POI-003", "POI-004"}, ids(res.Path))
	assert.Equal(t, 87.0, res.Total)
	assert.False(t, res.CacheHit)
	assert.Positive(t, res.ExploredNodes)

	rec = do(t, s, http.MethodGet, "/api/datasets/vi/route?src=POI-001&dst=POI-004", nil)
	res = decode[model.RouteResponse](t, rec)
	assert.True(t, res.CacheHit)
	assert.Equal(t, 87.0, res.Total)
	assert.Equal(t, 1, s.RC.Len())
}

func TestRouteEdgeCases(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/datasets/vi/route?src=POI-001", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/datasets/xx/route?src=a&dst=b", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// no route is an empty answer, not an error
	for _, q := range []string{"src=POI-001&dst=POI-010", "src=POI-001&dst=ghost"} {
		rec = do(t, s, http.MethodGet, "/api/datasets/vi/route?"+q, nil)
		require.Equal(t, http.StatusOK, rec.Code, q)
		res := decode[model.RouteResponse](t, rec)
		assert.Empty(t, res.Path, q)
		assert.False(t, res.CacheHit, q)
	}
	assert.Equal(t, 0, s.RC.Len())

	rec = do(t, s, http.MethodGet, "/api/datasets/vi/route?src=POI-005&dst=POI-005", nil)
	res := decode[model.RouteResponse](t, rec)
	assert.Equal(t, []string{"POI-005"}, ids(res.Path))
	assert.Equal(t, 0.0, res.Total)
}

func TestRouteGeoJSON(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/datasets/vi/route?src=POI-001&dst=POI-004&format=geojson", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 5)

	line := fc.Features[0]
	assert.Equal(t, "LineString", line.Geometry.Type)
	assert.Equal(t, 87.0, line.Properties["total"])

	var coords [][2]float64
	require.NoError(t, json.Unmarshal(line.Geometry.Coordinates, &coords))
	require.Len(t, coords, 4)
	// [lng, lat]
	assert.Equal(t, [2]float64{105.83320, 21.03580}, coords[0])

	assert.Equal(t, "Point", fc.Features[1].Geometry.Type)
	assert.Equal(t, "POI-001", fc.Features[1].Properties["id"])
}

func TestNearest(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/datasets/vi/nearest?lat=21.03581&lng=105.83321", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[nearestResponse](t, rec)
	assert.Equal(t, "POI-001", res.POI.ID)
	assert.Equal(t, "haversine", res.Metric)
	assert.Less(t, res.Distance, 2.0)

	rec = do(t, s, http.MethodGet, "/api/datasets/vi/nearest?lat=21.037&lng=105.835&metric=euclidean", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[nearestResponse](t, rec)
	assert.Equal(t, "POI-010", res.POI.ID)
	assert.Equal(t, "euclidean", res.Metric)
	assert.Equal(t, 0.0, res.Distance)

	rec = do(t, s, http.MethodGet, "/api/datasets/vi/nearest?lat=95&lng=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/datasets/vi/nearest?lat=0&lng=0&metric=manhattan", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/datasets/none/nearest?lat=0&lng=0", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEdgeUpdateInvalidatesRoutes(t *testing.T) {
	s := newTestServer(t)
	route := "/api/datasets/vi/route?src=POI-001&dst=POI-004"

	rec := do(t, s, http.MethodGet, route, nil)
	require.Equal(t, 87.0, decode[model.RouteResponse](t, rec).Total)
	epoch := s.RC.Epoch()

	// edge 2 is POI-002 -> POI-003
	rec = do(t, s, http.MethodPost, "/api/edges/update", map[string]any{"edge_id": 2, "closed": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "vi", decode[map[string]any](t, rec)["dataset"])
	assert.Equal(t, epoch+1, s.RC.Epoch())

	rec = do(t, s, http.MethodGet, route, nil)
	res := decode[model.RouteResponse](t, rec)
	assert.False(t, res.CacheHit)
	assert.Equal(t, []string{"POI-001", "POI-009", "POI-008", "POI-003", "POI-004"}, ids(res.Path))
	assert.Equal(t, 119.0, res.Total)

	rec = do(t, s, http.MethodPost, "/api/edges/update",
		map[string]any{"edge_id": 2, "dataset": "vi", "closed": false, "weight": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, route, nil)
	assert.Equal(t, 59.0, decode[model.RouteResponse](t, rec).Total)
}

func importExtra(t *testing.T, s *Server, d *dataset.Dataset) {
	t.Helper()
	_, err := s.Store.ImportDataset(context.Background(), d)
	require.NoError(t, err)
}

func TestEdgeUpdateRejectsForeignDataset(t *testing.T) {
	s := newTestServer(t)
	importExtra(t, s, &dataset.Dataset{
		Name:  "other",
		POIs:  []model.POI{{ID: "X", Lat: 1, Lng: 1}, {ID: "Y", Lat: 1, Lng: 1.001}},
		Edges: []model.Edge{{From: "X", To: "Y", Weight: 3}},
	})
	route := "/api/datasets/vi/route?src=POI-001&dst=POI-004"
	do(t, s, http.MethodGet, route, nil)

	// edge 2 belongs to vi
	rec := do(t, s, http.MethodPost, "/api/edges/update",
		map[string]any{"edge_id": 2, "dataset": "other", "closed": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "belongs to dataset vi")
	assert.Equal(t, uint64(0), s.RC.Epoch())

	edges, err := s.Store.Edges(context.Background(), "vi")
	require.NoError(t, err)
	assert.Len(t, edges, 11)

	rec = do(t, s, http.MethodGet, route, nil)
	assert.Equal(t, 87.0, decode[model.RouteResponse](t, rec).Total)

	// a matching dataset goes through and closes the edge in vi
	rec = do(t, s, http.MethodPost, "/api/edges/update",
		map[string]any{"edge_id": 2, "dataset": "vi", "closed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, route, nil)
	assert.Equal(t, 119.0, decode[model.RouteResponse](t, rec).Total)
}

func TestRouteOnDatasetWithoutEdges(t *testing.T) {
	s := newTestServer(t)
	importExtra(t, s, &dataset.Dataset{
		Name: "bare",
		POIs: []model.POI{{ID: "X", Lat: 1, Lng: 1}, {ID: "Y", Lat: 1, Lng: 1.001}},
	})

	rec := do(t, s, http.MethodGet, "/api/datasets/bare/route?src=X&dst=Y", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[model.RouteResponse](t, rec).Path)

	rec = do(t, s, http.MethodGet, "/api/datasets/bare/nearest?lat=1&lng=1.0009", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Y", decode[nearestResponse](t, rec).POI.ID)
}

func TestDatasetSummaryAndTours(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/datasets/vi", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, datasetResponse{Dataset: "vi", POIs: 10, Nodes: 9, Edges: 11}, decode[datasetResponse](t, rec))

	// closed edges drop out of the graph
	rec = do(t, s, http.MethodPost, "/api/edges/update", map[string]any{"edge_id": 2, "closed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/datasets/vi", nil)
	assert.Equal(t, 10, decode[datasetResponse](t, rec).Edges)

	rec = do(t, s, http.MethodGet, "/api/datasets/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/datasets/vi/tours", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.Tour{{ID: "pagoda-main", Dataset: "vi", Name: "One Pillar Pagoda loop"}},
		decode[[]model.Tour](t, rec))

	rec = do(t, s, http.MethodGet, "/api/datasets/nowhere/tours", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestEdgeUpdateErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"no edge", `{"closed": true}`, http.StatusBadRequest},
		{"no change", `{"edge_id": 1}`, http.StatusBadRequest},
		{"negative weight", `{"edge_id": 1, "weight": -4}`, http.StatusBadRequest},
		{"unknown edge", `{"edge_id": 999, "closed": true}`, http.StatusNotFound},
		{"unknown edge with dataset", `{"edge_id": 999, "dataset": "vi", "weight": 3}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/edges/update", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, uint64(0), s.RC.Epoch())
}

func TestDebugEndpoints(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodGet, "/api/datasets/vi/route?src=POI-001&dst=POI-004", nil)

	rec := do(t, s, http.MethodGet, "/debug/cache_stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.Equal(t, 1.0, stats["routes"])
	graphs := stats["graphs"].(map[string]any)
	assert.Equal(t, 1.0, graphs["entries"])

	rec = do(t, s, http.MethodGet, "/debug/clear_cache", nil)
	assert.Equal(t, "cleared", rec.Body.String())
	assert.Equal(t, 0, s.RC.Len())
	assert.Equal(t, 0, s.Graphs.Stats().Entries)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/edges/update", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogging(t *testing.T) {
	base := newTestServer(t)
	core, logs := observer.New(zap.DebugLevel)
	s := New(base.Store, zap.New(core), Options{CORSOrigins: []string{"http://localhost:5173"}})

	do(t, s, http.MethodGet, "/api/sessions/missing", nil)
	do(t, s, http.MethodGet, "/healthz", nil)

	entries := logs.FilterMessage("request").AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusNotFound), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.DebugLevel, entries[1].Level)
	assert.NotEmpty(t, entries[1].ContextMap()["request_id"])
}
