package element

import "github.com/freeflow/freeflow/backend-go/internal/geom"

// BoundingBox returns the axis-aligned extent of e in document space,
// ignoring rotation. Freedraw elements use their path points; everything
// else uses the (x, y)–(x+width, y+height) box.
func BoundingBox(e Element) geom.Rect {
	if e.Type == TypeFreedraw && len(e.Points) > 0 {
		first := e.Points[0]
		minX, maxX := first.X, first.X
		minY, maxY := first.Y, first.Y
		for _, p := range e.Points[1:] {
			minX, maxX = min(minX, p.X), max(maxX, p.X)
			minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		}
		return geom.NewRect(e.X+minX, e.Y+minY, e.X+maxX, e.Y+maxY)
	}
	return geom.NewRect(e.X, e.Y, e.X+e.Width, e.Y+e.Height)
}

// Normalize returns box-like elements with non-negative extents and (x, y)
// at the true top-left. Lines, arrows and freedraw keep their direction and
// are returned unchanged.
//
// Only call this once a draw or resize gesture ends: normalizing mid-drag
// would flip which handle the pointer is holding.
func Normalize(e Element) Element {
	if !e.Type.IsBoxLike() {
		return e
	}
	r := geom.NewRect(e.X, e.Y, e.X+e.Width, e.Y+e.Height)
	e.X, e.Y = r.MinX, r.MinY
	e.Width, e.Height = r.Width, r.Height
	return e
}
