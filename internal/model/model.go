package model

import "errors"

// UserPointID marks the live user position when it is prepended to a path.
const UserPointID = "@user"

type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// POI is a graph node. Immutable once loaded.
type POI struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p POI) Position() Position {
	return Position{Lat: p.Lat, Lng: p.Lng}
}

// Edge is authored directed but traversed in both directions.
type Edge struct {
	ID     int64   `json:"id,omitempty"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

type TourWaypoint struct {
	Order               int     `json:"order"`
	POI                 POI     `json:"poi"`
	ArrivalRadiusMeters float64 `json:"arrival_radius_m"`
}

type Tour struct {
	ID      string `json:"id"`
	Dataset string `json:"dataset"`
	Name    string `json:"name"`
}

type RouteResponse struct {
	Path          []POI   `json:"path"`
	Total         float64 `json:"total"`
	ExploredNodes int     `json:"explored_nodes"`
	CacheHit      bool    `json:"cache_hit"`
}

// ErrNotFound is wrapped by every lookup that misses.
var ErrNotFound = errors.New("not found")
