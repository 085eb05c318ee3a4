package engine

import (
	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/geom"
)

const (
	// FreedrawHitPadding is added to the stroke width to get the pick radius
	// around each freedraw sample.
	FreedrawHitPadding = 5.0

	// HandleSize is the side of the square hit zone around a resize handle.
	HandleSize = 8.0

	// EraserRadiusFactor scales the current stroke width into an eraser radius.
	EraserRadiusFactor = 5
)

// ContainsPoint reports whether p (logical coordinates) lands on e.
//
// Rotated elements are tested in their own frame: p is rotated by -angle
// about the element center first. Freedraw paths are picked by distance to
// their individual samples, not to the segments between them, so a point
// between two sparse samples can miss.
func ContainsPoint(p geom.Point, e element.Element) bool {
	if e.Angle != 0 {
		p = geom.RotateAbout(p, e.Center(), -e.Angle)
	}

	switch e.Type {
	case element.TypeEllipse:
		if e.Width == 0 || e.Height == 0 {
			return false
		}
		c := e.Center()
		rx, ry := e.Width/2, e.Height/2
		dx, dy := (p.X-c.X)/rx, (p.Y-c.Y)/ry
		return dx*dx+dy*dy <= 1

	case element.TypeFreedraw:
		threshold := float64(e.StrokeWidth) + FreedrawHitPadding
		for _, pt := range e.AbsolutePoints() {
			if geom.Distance(p, pt) < threshold {
				return true
			}
		}
		return false

	default:
		return element.BoundingBox(e).Contains(p)
	}
}

// ElementAt returns the topmost element containing p. Later elements are
// drawn on top, so the scan runs from the end of the slice.
func ElementAt(p geom.Point, elements []element.Element) (element.Element, bool) {
	for i := len(elements) - 1; i >= 0; i-- {
		if elements[i].IsDeleted {
			continue
		}
		if ContainsPoint(p, elements[i]) {
			return elements[i], true
		}
	}
	return element.Element{}, false
}

// ElementsInRect returns the ids of elements whose bounding box lies fully
// inside r, in z-order. Used for marquee selection.
func ElementsInRect(r geom.Rect, elements []element.Element) []string {
	var ids []string
	for _, e := range elements {
		if e.IsDeleted {
			continue
		}
		if r.ContainsRect(element.BoundingBox(e)) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// EraserRadius returns the eraser reach for a stroke width.
func EraserRadius(strokeWidth int) float64 {
	return float64(strokeWidth * EraserRadiusFactor)
}

// EraserHit reports whether an eraser of the given radius at p touches e.
// Freedraw checks each sample; everything else uses the bounding box grown
// by radius.
func EraserHit(p geom.Point, e element.Element, radius float64) bool {
	if e.Type == element.TypeFreedraw {
		for _, pt := range e.AbsolutePoints() {
			if geom.Distance(p, pt) <= radius {
				return true
			}
		}
		return false
	}
	return element.BoundingBox(e).Expand(radius).Contains(p)
}

// ElementsErasedAt returns the ids of every element the eraser touches.
func ElementsErasedAt(p geom.Point, elements []element.Element, radius float64) []string {
	var ids []string
	for _, e := range elements {
		if !e.IsDeleted && EraserHit(p, e, radius) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
