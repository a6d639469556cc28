package geo

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters 球面地球半径
const EarthRadiusMeters = 6371000.0

// HaversineDistance 计算两点间大圆距离（米）
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
