package geometry

import "math"

// LineHitTolerance is the slack, in scene units, added to half a stroke's width
// when hit-testing polylines.
const LineHitTolerance = 10.0

// SegmentDistance returns the distance from p to the segment a-b using the
// projection-and-clamp formula. A zero-length segment measures to a.
func SegmentDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy

	t := -1.0
	if lenSq != 0 {
		t = ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	}

	var cx, cy float64
	switch {
	case t < 0:
		cx, cy = a.X, a.Y
	case t > 1:
		cx, cy = b.X, b.Y
	default:
		cx, cy = a.X+t*dx, a.Y+t*dy
	}

	return math.Hypot(p.X-cx, p.Y-cy)
}

// PolylineHit reports whether p lies within tolerance + width/2 of any segment
// of the flattened polyline points (x0, y0, x1, y1, ...). A single point is
// treated as a zero-length segment.
func PolylineHit(p Point, points []float64, width, tolerance float64) bool {
	threshold := tolerance + width/2

	if len(points) == 2 {
		a := Point{X: points[0], Y: points[1]}
		return SegmentDistance(p, a, a) <= threshold
	}

	for i := 0; i+3 < len(points); i += 2 {
		a := Point{X: points[i], Y: points[i+1]}
		b := Point{X: points[i+2], Y: points[i+3]}
		if SegmentDistance(p, a, b) <= threshold {
			return true
		}
	}
	return false
}

// PolylineBounds returns the bounding box of a flattened polyline.
func PolylineBounds(points []float64) Rect {
	if len(points) < 2 {
		return Rect{}
	}
	minX, minY := points[0], points[1]
	maxX, maxY := minX, minY
	for i := 2; i+1 < len(points); i += 2 {
		minX = min(minX, points[i])
		maxX = max(maxX, points[i])
		minY = min(minY, points[i+1])
		maxY = max(maxY, points[i+1])
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
