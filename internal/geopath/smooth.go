package geopath

import (
	"github.com/gogpu/gg"
)

// MinSmoothPoints is the shortest path Smooth will expand.
const MinSmoothPoints = 4

// Smooth replaces the polyline with a Catmull-Rom spline expressed as cubic
// Bezier segments, sampling each original segment resolution times. The
// returned path has (len(points)-1)*resolution + 1 points and passes through
// every input point. Paths shorter than MinSmoothPoints are returned as is.
func Smooth(points []Point, resolution int) []Point {
	if len(points) < MinSmoothPoints || resolution < 1 {
		return append([]Point(nil), points...)
	}

	out := make([]Point, 0, (len(points)-1)*resolution+1)
	for i := 0; i < len(points)-1; i++ {
		seg := segment(points, i)
		for j := 0; j < resolution; j++ {
			p := seg.Eval(float64(j) / float64(resolution))
			out = append(out, Point{Lng: p.X, Lat: p.Y})
		}
	}
	return append(out, points[len(points)-1])
}

// segment builds the Bezier equivalent of the Catmull-Rom span between
// points[i] and points[i+1]; end tangents reuse the endpoint itself.
func segment(points []Point, i int) gg.CubicBez {
	p0 := toVec(points[max(i-1, 0)])
	p1 := toVec(points[i])
	p2 := toVec(points[i+1])
	p3 := toVec(points[min(i+2, len(points)-1)])

	c1 := p1.Add(p2.Sub(p0).Mul(1.0 / 6))
	c2 := p2.Sub(p3.Sub(p1).Mul(1.0 / 6))
	return gg.NewCubicBez(p1, c1, c2, p2)
}

func toVec(p Point) gg.Point {
	return gg.Pt(p.Lng, p.Lat)
}
