package geo

import (
	"math"

	"github.com/example/roadbuddy/internal/models"
)

const earthRadiusMeters = 6371000.0

// MinSpan keeps a single-point region from collapsing to zero size.
const MinSpan = 0.01

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// PathLength sums the great-circle length of consecutive segments.
func PathLength(points []models.Coord) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		total += Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
	}
	return total
}

// RegionFor returns the viewport that shows every point, grown by padding
// (0.2 adds 20% to each span).
func RegionFor(points []models.Coord, padding float64) models.Region {
	if len(points) == 0 {
		return models.Region{}
	}
	minLat, maxLat := points[0].Lat, points[0].Lat
	minLon, maxLon := points[0].Lon, points[0].Lon
	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}
	if padding < 0 {
		padding = 0
	}
	return models.Region{
		Center:   models.Coord{Lat: (minLat + maxLat) / 2, Lon: (minLon + maxLon) / 2},
		LatDelta: math.Max((maxLat-minLat)*(1+padding), MinSpan),
		LonDelta: math.Max((maxLon-minLon)*(1+padding), MinSpan),
	}
}
