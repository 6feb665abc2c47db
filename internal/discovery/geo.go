package discovery

import "math"

const earthRadiusKm = 6371

// DistanceKm is the great-circle distance between two coordinates using the
// Haversine formula. Symmetric; zero for identical points. Callers are
// responsible for coordinate validity (lat in [-90,90], lon in [-180,180]).
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
