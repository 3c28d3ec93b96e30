package tour

import (
	"github.com/atharv3903/tourgraph/internal/geo"
	"github.com/atharv3903/tourgraph/internal/model"
)

// IsNear reports whether user is within radiusMeters of target along the
// great circle. It does not depend on the graph, so arrival still works
// when no route to the target exists.
func IsNear(user, target model.Position, radiusMeters float64) bool {
	return geo.Haversine(user.Lat, user.Lng, target.Lat, target.Lng) <= radiusMeters
}
