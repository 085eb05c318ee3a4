package geom

import "math"

// DefaultSegmentThreshold is the tolerance NearSegment callers use when
// they have no stroke-specific value of their own.
const DefaultSegmentThreshold = 5.0

// Point is a position in logical (document) space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// DistanceToSegment returns the distance from p to the closest point on the
// segment [a, b]. A degenerate segment (a == b) yields the point distance.
func DistanceToSegment(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lengthSquared := dx*dx + dy*dy

	if lengthSquared == 0 {
		return Distance(p, a)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lengthSquared
	t = max(0, min(1, t))

	return Distance(p, Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

// NearSegment reports whether p lies within threshold of the segment [a, b].
func NearSegment(p, a, b Point, threshold float64) bool {
	return DistanceToSegment(p, a, b) <= threshold
}

// RotateAbout rotates p by radians around center.
func RotateAbout(p, center Point, radians float64) Point {
	x, y := RotationAbout(center.X, center.Y, radians).TransformPoint(p.X, p.Y)
	return Point{X: x, Y: y}
}
