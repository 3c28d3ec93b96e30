package main

import (
	"math"

	"github.com/atharv3903/tourgraph/internal/geo"
	"github.com/atharv3903/tourgraph/internal/model"
)

// plan returns GPS samples walking straight from start through every stop,
// at most stepMeters apart. Each stop is emitted exactly once.
func plan(start model.Position, stops []model.Position, stepMeters float64) []model.Position {
	if stepMeters <= 0 {
		stepMeters = 1
	}

	out := []model.Position{start}
	cur := start
	for _, stop := range stops {
		d := geo.Haversine(cur.Lat, cur.Lng, stop.Lat, stop.Lng)
		n := int(math.Ceil(d / stepMeters))
		for i := 1; i < n; i++ {
			p := geo.Interpolate([2]float64{cur.Lat, cur.Lng}, [2]float64{stop.Lat, stop.Lng}, float64(i)/float64(n))
			out = append(out, model.Position{Lat: p[0], Lng: p[1]})
		}
		if n > 0 {
			out = append(out, stop)
		}
		cur = stop
	}
	return out
}

// southOf moves p meters due south.
func southOf(p model.Position, meters float64) model.Position {
	const metersPerDegree = 111_195.0
	return model.Position{Lat: p.Lat - meters/metersPerDegree, Lng: p.Lng}
}
