package geopath

// Resample walks the path and emits points spaced spacing metres apart.
//
// Distance is accumulated segment by segment; when the next segment would
// overshoot the remaining spacing, a point is interpolated exactly spacing
// metres from the last accepted point and the walk continues from it. The
// original final point is kept when the path does not end on a sample.
func Resample(points []Point, spacing float64) []Point {
	if len(points) < 2 || !(spacing > 0) {
		return append([]Point(nil), points...)
	}

	out := []Point{points[0]}
	prev := points[0]
	accumulated := 0.0

	for i := 1; i < len(points); {
		cur := points[i]
		d := Distance(prev, cur)

		if d > 0 && accumulated+d >= spacing {
			q := prev.Lerp(cur, (spacing-accumulated)/d)
			out = append(out, q)
			// q becomes the start of the remaining part of this segment.
			prev = q
			accumulated = 0
			continue
		}

		accumulated += d
		prev = cur
		i++
	}

	if accumulated > 0 {
		out = append(out, points[len(points)-1])
	}
	return out
}

// Simplify resamples the path at distanceFactor times its average point
// spacing, then greedily drops points closer than distanceFactor metres to
// the last kept point. The first and last points are always kept.
func Simplify(points []Point, distanceFactor float64) []Point {
	if len(points) < 3 {
		return append([]Point(nil), points...)
	}

	resampled := Resample(points, distanceFactor*AverageDistance(points))
	if len(resampled) < 3 {
		return resampled
	}

	kept := []Point{resampled[0]}
	last := resampled[0]
	for _, p := range resampled[1 : len(resampled)-1] {
		if Distance(last, p) >= distanceFactor {
			kept = append(kept, p)
			last = p
		}
	}
	return append(kept, resampled[len(resampled)-1])
}
