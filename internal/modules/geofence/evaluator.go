// README: Pure geofence math; gates worker-initiated transitions on proximity to a reference point.
package geofence

import (
	"math"

	"valetlink/internal/types"
)

const earthRadiusM = 6371000.0

// Policy radii, not call-time knobs. Depot-relative checks (pickup
// acceptance, park completion, vehicle verification) are tighter than park
// acceptance at the customer's own origin, where GPS noise is higher.
const (
	DepotRadiusMeters      = 100.0
	ParkOriginRadiusMeters = 70.0
)

// Decision is a normal result, never an error: a denied check carries the
// measured distance so callers can show it to the worker.
type Decision struct {
	Allowed        bool
	DistanceMeters float64
}

func Evaluate(workerLat, workerLng, refLat, refLng, thresholdMeters float64) Decision {
	d := haversineM(workerLat, workerLng, refLat, refLng)
	return Decision{Allowed: d <= thresholdMeters, DistanceMeters: d}
}

// AtDepot checks the worker against the controlled depot location.
func AtDepot(worker, depot types.Point) Decision {
	return Evaluate(worker.Lat, worker.Lng, depot.Lat, depot.Lng, DepotRadiusMeters)
}

// AtParkOrigin checks the worker against a park request's own origin.
func AtParkOrigin(worker, origin types.Point) Decision {
	return Evaluate(worker.Lat, worker.Lng, origin.Lat, origin.Lng, ParkOriginRadiusMeters)
}

// haversineM returns the great-circle distance in metres between two points
// specified in decimal degrees.
func haversineM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
