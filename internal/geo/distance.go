// Package geo holds the distance functions used for snapping and proximity.
package geo

import (
	"fmt"
	"math"
	"strings"
)

const earthRadiusMeters = 6371000

// Haversine returns the great-circle distance between two points in meters.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Euclidean returns the planar distance in degrees. Only meaningful for
// comparing candidates against the same reference point.
func Euclidean(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// Metric selects one of the distance functions.
type Metric int

const (
	MetricHaversine Metric = iota
	MetricEuclidean
)

func (m Metric) String() string {
	if m == MetricEuclidean {
		return "euclidean"
	}
	return "haversine"
}

// ParseMetric accepts "haversine", "euclidean" or an empty string (haversine).
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "haversine":
		return MetricHaversine, nil
	case "euclidean":
		return MetricEuclidean, nil
	}
	return MetricHaversine, fmt.Errorf("unknown distance metric %q", s)
}

// Interpolate linearly interpolates between two [lat, lng] points.
func Interpolate(start, end [2]float64, fraction float64) [2]float64 {
	return [2]float64{
		start[0] + (end[0]-start[0])*fraction,
		start[1] + (end[1]-start[1])*fraction,
	}
}
