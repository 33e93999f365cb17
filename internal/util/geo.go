package util

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371000.0

// HaversineDistance returns the great-circle distance in meters between two
// geographic points.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	// Convert coordinates from degrees to S2 points
	point1 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat1, lng1))
	point2 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat2, lng2))

	// Calculate angle between points
	angle := s1.Angle(s2.ChordAngleBetweenPoints(point1, point2).Angle())

	// Convert angle to distance on Earth's surface
	return angle.Radians() * earthRadiusMeters
}

// MetersPerDegree measures the local geodesic length of one degree of
// latitude and one degree of longitude at the given location. Map-tile
// snapping uses these factors instead of a flat approximation.
func MetersPerDegree(lat, lng float64) (perDegLat, perDegLng float64) {
	perDegLat = HaversineDistance(lat, lng, lat+1, lng)
	perDegLng = HaversineDistance(lat, lng, lat, lng+1)
	return perDegLat, perDegLng
}
