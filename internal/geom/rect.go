package geom

// Rect is an axis-aligned box described by its min and max corners.
// Width and Height are always non-negative for rects built with NewRect.
type Rect struct {
	MinX   float64 `json:"minX"`
	MinY   float64 `json:"minY"`
	MaxX   float64 `json:"maxX"`
	MaxY   float64 `json:"maxY"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect builds a normalized rect from two opposite corners given in any order.
func NewRect(x0, y0, x1, y1 float64) Rect {
	minX, maxX := min(x0, x1), max(x0, x1)
	minY, maxY := min(y0, y1), max(y0, y1)
	return Rect{
		MinX:   minX,
		MinY:   minY,
		MaxX:   maxX,
		MaxY:   maxY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// RectAround returns the square of the given side centred on c.
func RectAround(c Point, side float64) Rect {
	half := side / 2
	return NewRect(c.X-half, c.Y-half, c.X+half, c.Y+half)
}

// Contains checks if a point is inside the rect, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// ContainsRect reports whether other lies entirely inside r.
func (r Rect) ContainsRect(other Rect) bool {
	return other.MinX >= r.MinX && other.MaxX <= r.MaxX &&
		other.MinY >= r.MinY && other.MaxY <= r.MaxY
}

// Expand grows the rect by d on every side.
func (r Rect) Expand(d float64) Rect {
	return NewRect(r.MinX-d, r.MinY-d, r.MaxX+d, r.MaxY+d)
}

// IsEmpty checks if the rect has zero area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	return NewRect(
		min(r.MinX, other.MinX),
		min(r.MinY, other.MinY),
		max(r.MaxX, other.MaxX),
		max(r.MaxY, other.MaxY),
	)
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.MinX + r.Width/2, Y: r.MinY + r.Height/2}
}
