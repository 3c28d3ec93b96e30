// Package dataset reads the JSON files the importer loads into the store
// and rejects data the routing graph cannot handle.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/atharv3903/tourgraph/internal/model"
)

type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WaypointPOI is the POI shape tour records arrive in.
type WaypointPOI struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Range    float64  `json:"range"`
}

type Waypoint struct {
	Order int         `json:"order"`
	POI   WaypointPOI `json:"poi"`
}

type Tour struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Waypoints []Waypoint `json:"waypoints"`
}

type Dataset struct {
	Name  string       `json:"dataset"`
	POIs  []model.POI  `json:"pois"`
	Edges []model.Edge `json:"edges"`
	Tours []Tour       `json:"tours"`
}

// DefaultArrivalRadius is used for waypoints without a range.
const DefaultArrivalRadius = 15.0

func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open dataset file: %w", err)
	}
	defer f.Close()

	var d Dataset
	if err := json.NewDecoder(f).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}
	return &d, nil
}

func badCoord(lat, lng float64) bool {
	return math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) ||
		lat < -90 || lat > 90 || lng < -180 || lng > 180
}

// Validate returns every problem found, joined.
func (d *Dataset) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("dataset name is empty"))
	}

	known := make(map[string]bool, len(d.POIs))
	for _, p := range d.POIs {
		if p.ID == "" {
			errs = append(errs, errors.New("poi with empty id"))
			continue
		}
		if known[p.ID] {
			errs = append(errs, fmt.Errorf("duplicate poi %s", p.ID))
		}
		known[p.ID] = true
		if badCoord(p.Lat, p.Lng) {
			errs = append(errs, fmt.Errorf("poi %s has invalid coordinates", p.ID))
		}
	}

	edgeIDs := make(map[int64]bool, len(d.Edges))
	for i, e := range d.Edges {
		if e.ID < 0 {
			errs = append(errs, fmt.Errorf("edge %d (%s-%s) has negative id %d", i, e.From, e.To, e.ID))
		} else if e.ID > 0 {
			if edgeIDs[e.ID] {
				errs = append(errs, fmt.Errorf("duplicate edge id %d", e.ID))
			}
			edgeIDs[e.ID] = true
		}
		if !known[e.From] || !known[e.To] {
			errs = append(errs, fmt.Errorf("edge %d (%s-%s) references unknown poi", i, e.From, e.To))
		}
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight < 0 {
			errs = append(errs, fmt.Errorf("edge %d (%s-%s) has invalid weight %v", i, e.From, e.To, e.Weight))
		}
	}

	for _, t := range d.Tours {
		if t.ID == "" {
			errs = append(errs, errors.New("tour with empty id"))
		}
		for _, w := range t.Waypoints {
			if !known[w.POI.ID] {
				errs = append(errs, fmt.Errorf("tour %s waypoint %d references unknown poi %s", t.ID, w.Order, w.POI.ID))
			}
			if w.POI.Range < 0 || math.IsNaN(w.POI.Range) {
				errs = append(errs, fmt.Errorf("tour %s waypoint %d has invalid range", t.ID, w.Order))
			}
		}
	}

	return errors.Join(errs...)
}

// Radius is the arrival radius of w, falling back to DefaultArrivalRadius.
func (w Waypoint) Radius() float64 {
	if w.POI.Range <= 0 {
		return DefaultArrivalRadius
	}
	return w.POI.Range
}
