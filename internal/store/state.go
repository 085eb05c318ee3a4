package store

import (
	"slices"

	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/geom"
)

// Tool is the active pointer mode: selection, eraser, or drawing one of the
// element types. Tools are never element types themselves.
type Tool string

const (
	ToolSelection Tool = "selection"
	ToolEraser    Tool = "eraser"
)

// ToolFor returns the drawing tool for an element type.
func ToolFor(t element.Type) Tool {
	return Tool(t)
}

// ElementType returns the element type a drawing tool creates.
func (t Tool) ElementType() (element.Type, bool) {
	typ := element.Type(t)
	return typ, typ.Valid()
}

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	if t == ToolSelection || t == ToolEraser {
		return true
	}
	_, ok := t.ElementType()
	return ok
}

// Style is the default style given to newly created elements.
type Style struct {
	StrokeColor     string              `json:"strokeColor"`
	BackgroundColor string              `json:"backgroundColor"`
	FillStyle       element.FillStyle   `json:"fillStyle"`
	StrokeWidth     int                 `json:"strokeWidth"`
	StrokeStyle     element.StrokeStyle `json:"strokeStyle"`
	Roughness       int                 `json:"roughness"`
	Opacity         float64             `json:"opacity"`
	FontSize        float64             `json:"fontSize"`
	FontFamily      element.FontFamily  `json:"fontFamily"`
}

// DefaultStyle matches the element factory defaults.
func DefaultStyle() Style {
	return Style{
		StrokeColor:     element.DefaultStrokeColor,
		BackgroundColor: element.DefaultBackgroundColor,
		FillStyle:       element.DefaultFillStyle,
		StrokeWidth:     element.DefaultStrokeWidth,
		StrokeStyle:     element.DefaultStrokeStyle,
		Roughness:       element.DefaultRoughness,
		Opacity:         element.DefaultOpacity,
		FontSize:        element.DefaultFontSize,
		FontFamily:      element.DefaultFontFamily,
	}
}

// Patch returns the style as element overrides.
func (s Style) Patch() element.Patch {
	return element.Patch{
		StrokeColor:     element.Ptr(s.StrokeColor),
		BackgroundColor: element.Ptr(s.BackgroundColor),
		FillStyle:       element.Ptr(s.FillStyle),
		StrokeWidth:     element.Ptr(s.StrokeWidth),
		StrokeStyle:     element.Ptr(s.StrokeStyle),
		Roughness:       element.Ptr(s.Roughness),
		Opacity:         element.Ptr(s.Opacity),
		FontSize:        element.Ptr(s.FontSize),
		FontFamily:      element.Ptr(s.FontFamily),
	}
}

const (
	MinZoom = 0.1
	MaxZoom = 10.0
)

// ClampZoom limits a zoom factor to [MinZoom, MaxZoom].
func ClampZoom(zoom float64) float64 {
	return max(MinZoom, min(MaxZoom, zoom))
}

// Viewport is the pan/zoom transform from logical to screen space:
// screen = logical*zoom + offset.
type Viewport struct {
	Zoom    float64 `json:"zoom"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Matrix returns the logical-to-screen transform.
func (v Viewport) Matrix() geom.Matrix2D {
	return geom.Translate(v.OffsetX, v.OffsetY).Multiply(geom.Scale(v.Zoom, v.Zoom))
}

// ScreenToLogical inverts the viewport transform for an input position.
func (v Viewport) ScreenToLogical(p geom.Point) geom.Point {
	return geom.Pt((p.X-v.OffsetX)/v.Zoom, (p.Y-v.OffsetY)/v.Zoom)
}

// State is a detached copy of everything the store owns. Renderers and UI
// code read it after each change; it never aliases store memory.
type State struct {
	Elements         []element.Element `json:"elements"`
	SelectedElements []string          `json:"selectedElements"`
	Tool             Tool              `json:"tool"`
	Style            Style             `json:"style"`
	Viewport         Viewport          `json:"viewport"`
	GridEnabled      bool              `json:"gridEnabled"`
	DarkMode         bool              `json:"darkMode"`
	CanUndo          bool              `json:"canUndo"`
	CanRedo          bool              `json:"canRedo"`
}

// Visible returns the elements a renderer should draw, in z-order.
func (s State) Visible() []element.Element {
	out := make([]element.Element, 0, len(s.Elements))
	for _, e := range s.Elements {
		if !e.IsDeleted {
			out = append(out, e)
		}
	}
	return out
}

// IsSelected reports whether id is in the selection.
func (s State) IsSelected(id string) bool {
	return slices.Contains(s.SelectedElements, id)
}
