package engine

import (
	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/geom"
)

// Handle names one of the eight resize grips around an element.
type Handle string

const (
	HandleNone Handle = ""
	HandleNW   Handle = "nw"
	HandleN    Handle = "n"
	HandleNE   Handle = "ne"
	HandleE    Handle = "e"
	HandleSE   Handle = "se"
	HandleS    Handle = "s"
	HandleSW   Handle = "sw"
	HandleW    Handle = "w"
)

// HandlePosition is a handle and its center in logical coordinates.
type HandlePosition struct {
	Handle Handle     `json:"handle"`
	Point  geom.Point `json:"point"`
}

// Handles returns the eight handle centers of e's bounding box, corners and
// edge midpoints, clockwise from the top-left.
func Handles(e element.Element) []HandlePosition {
	b := element.BoundingBox(e)
	midX := b.MinX + b.Width/2
	midY := b.MinY + b.Height/2

	return []HandlePosition{
		{HandleNW, geom.Pt(b.MinX, b.MinY)},
		{HandleN, geom.Pt(midX, b.MinY)},
		{HandleNE, geom.Pt(b.MaxX, b.MinY)},
		{HandleE, geom.Pt(b.MaxX, midY)},
		{HandleSE, geom.Pt(b.MaxX, b.MaxY)},
		{HandleS, geom.Pt(midX, b.MaxY)},
		{HandleSW, geom.Pt(b.MinX, b.MaxY)},
		{HandleW, geom.Pt(b.MinX, midY)},
	}
}

// HandleAt returns the handle whose hit square contains p, or HandleNone.
// Rotation is ignored; the selection tool only offers handles on
// unrotated box shapes.
func HandleAt(p geom.Point, e element.Element) Handle {
	for _, h := range Handles(e) {
		if geom.RectAround(h.Point, HandleSize).Contains(p) {
			return h.Handle
		}
	}
	return HandleNone
}

// Resize moves the edges controlled by h by (dx, dy). The result is not
// normalized: dragging past the opposite edge yields negative extents so the
// handle under the pointer keeps its identity until the gesture ends.
// Freedraw elements are returned unchanged.
func Resize(e element.Element, h Handle, dx, dy float64) element.Element {
	if e.Type == element.TypeFreedraw {
		return e
	}

	switch h {
	case HandleNW, HandleN, HandleNE:
		e.Y += dy
		e.Height -= dy
	case HandleSW, HandleS, HandleSE:
		e.Height += dy
	}

	switch h {
	case HandleNW, HandleW, HandleSW:
		e.X += dx
		e.Width -= dx
	case HandleNE, HandleE, HandleSE:
		e.Width += dx
	}

	return e
}
