package service

import (
	"math"

	"github.com/nandanugg/geofence-tracker/module/core/domain"
)

const earthRadiusMeters = 6371000

// GeofenceEvaluator turns two consecutive positions of one device into
// boundary crossings. It holds no state; the caller supplies the previous
// position, so it is safe for concurrent use across devices.
type GeofenceEvaluator struct{}

func NewGeofenceEvaluator() *GeofenceEvaluator {
	return &GeofenceEvaluator{}
}

// Evaluate returns the transitions in geofence declaration order. A nil prev
// means the device never reported, so nothing can be exited.
func (e *GeofenceEvaluator) Evaluate(prev *domain.Coordinate, next domain.Coordinate, geofences []domain.Geofence) []domain.GeofenceTransition {
	var transitions []domain.GeofenceTransition
	for _, gf := range geofences {
		wasInside := prev != nil && inside(*prev, gf)
		isInside := inside(next, gf)

		switch {
		case !wasInside && isInside:
			transitions = append(transitions, domain.GeofenceTransition{Geofence: gf, Event: domain.TransitionEnter})
		case wasInside && !isInside:
			transitions = append(transitions, domain.GeofenceTransition{Geofence: gf, Event: domain.TransitionExit})
		}
	}
	return transitions
}

func inside(c domain.Coordinate, gf domain.Geofence) bool {
	return Distance(c, gf.Center) <= gf.RadiusMeters
}

// Distance is the great-circle distance in meters on a spherical earth.
func Distance(a, b domain.Coordinate) float64 {
	phi1 := toRad(a.Lat)
	phi2 := toRad(b.Lat)
	dPhi := phi2 - phi1
	dLambda := toRad(b.Lon) - toRad(a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// rounding can push h past 1 near antipodal points
	h = math.Min(h, 1)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
