// Package geopath resamples, simplifies and smooths geographic polylines.
// Distances are geodesic (haversine) and expressed in metres.
package geopath

import (
	geo "github.com/paulmach/go.geo"
)

// Point is a longitude/latitude pair in degrees.
type Point struct {
	Lng float64
	Lat float64
}

func (p Point) geo() *geo.Point {
	return geo.NewPoint(p.Lng, p.Lat)
}

// Lerp returns the point at fraction t along the straight line from p to q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{
		Lng: p.Lng + (q.Lng-p.Lng)*t,
		Lat: p.Lat + (q.Lat-p.Lat)*t,
	}
}

// Distance returns the haversine distance between a and b in metres.
func Distance(a, b Point) float64 {
	return a.geo().GeoDistanceFrom(b.geo(), true)
}

// Length returns the total geodesic length of the path.
func Length(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// AverageDistance returns the mean distance between consecutive points.
func AverageDistance(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	return Length(points) / float64(len(points)-1)
}
