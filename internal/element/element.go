// Package element defines the drawable unit of a board and the pure
// operations on it: construction with default style, partial updates,
// bounding boxes, normalization and constraint checks.
package element

import (
	"slices"

	"github.com/freeflow/freeflow/backend-go/internal/geom"
)

type Type string

const (
	TypeRectangle Type = "rectangle"
	TypeDiamond   Type = "diamond"
	TypeEllipse   Type = "ellipse"
	TypeLine      Type = "line"
	TypeArrow     Type = "arrow"
	TypeFreedraw  Type = "freedraw"
	TypeText      Type = "text"
)

// Types lists every element type in declaration order.
var Types = []Type{
	TypeRectangle, TypeDiamond, TypeEllipse, TypeLine, TypeArrow, TypeFreedraw, TypeText,
}

// Valid reports whether t is one of the known element types.
func (t Type) Valid() bool {
	return slices.Contains(Types, t)
}

// IsBoxLike reports whether the type is drawn inside its x/y/width/height box
// and gets its extents normalized after a gesture.
func (t Type) IsBoxLike() bool {
	switch t {
	case TypeRectangle, TypeDiamond, TypeEllipse, TypeText:
		return true
	}
	return false
}

type FillStyle string

const (
	FillSolid      FillStyle = "solid"
	FillHachure    FillStyle = "hachure"
	FillCrossHatch FillStyle = "cross-hatch"
)

type StrokeStyle string

const (
	StrokeSolid  StrokeStyle = "solid"
	StrokeDashed StrokeStyle = "dashed"
	StrokeDotted StrokeStyle = "dotted"
)

type FontFamily string

const (
	FontHandDrawn FontFamily = "hand-drawn"
	FontNormal    FontFamily = "normal"
	FontCode      FontFamily = "code"
)

// Transparent is the background color sentinel for "no fill".
const Transparent = "transparent"

// Default style applied by New.
const (
	DefaultStrokeColor     = "#000000"
	DefaultBackgroundColor = Transparent
	DefaultFillStyle       = FillHachure
	DefaultStrokeWidth     = 1
	DefaultStrokeStyle     = StrokeSolid
	DefaultRoughness       = 1
	DefaultOpacity         = 100.0
	DefaultFontSize        = 20.0
	DefaultFontFamily      = FontHandDrawn
)

// Allowed values for the constrained numeric style fields.
var (
	StrokeWidths = []int{1, 2, 4}
	Roughnesses  = []int{0, 1, 2}
)

// Element is the atomic drawable unit. Width and Height may be negative while
// a shape is being drawn; Normalize fixes them up afterwards.
// Points are relative to (X, Y) and only used by freedraw elements;
// Text, FontSize and FontFamily only matter for text elements.
type Element struct {
	ID              string       `json:"id"`
	Type            Type         `json:"type"`
	X               float64      `json:"x"`
	Y               float64      `json:"y"`
	Width           float64      `json:"width"`
	Height          float64      `json:"height"`
	Angle           float64      `json:"angle"`
	StrokeColor     string       `json:"strokeColor"`
	BackgroundColor string       `json:"backgroundColor"`
	FillStyle       FillStyle    `json:"fillStyle"`
	StrokeWidth     int          `json:"strokeWidth"`
	StrokeStyle     StrokeStyle  `json:"strokeStyle"`
	Roughness       int          `json:"roughness"`
	Opacity         float64      `json:"opacity"`
	IsDeleted       bool         `json:"isDeleted"`
	Points          []geom.Point `json:"points,omitempty"`
	Text            string       `json:"text,omitempty"`
	FontSize        float64      `json:"fontSize,omitempty"`
	FontFamily      FontFamily   `json:"fontFamily,omitempty"`
}

// Clone returns a copy that shares no memory with e.
func (e Element) Clone() Element {
	if e.Points != nil {
		e.Points = slices.Clone(e.Points)
	}
	return e
}

// Center returns the rotation center of the element's x/y/width/height box.
func (e Element) Center() geom.Point {
	return geom.Pt(e.X+e.Width/2, e.Y+e.Height/2)
}

// AbsolutePoints returns the freedraw path in document coordinates.
func (e Element) AbsolutePoints() []geom.Point {
	out := make([]geom.Point, len(e.Points))
	for i, p := range e.Points {
		out[i] = geom.Pt(e.X+p.X, e.Y+p.Y)
	}
	return out
}

// Equal compares two elements field by field. A nil and an empty point list
// are treated as equal.
func Equal(a, b Element) bool {
	return a.ID == b.ID &&
		a.Type == b.Type &&
		a.X == b.X && a.Y == b.Y &&
		a.Width == b.Width && a.Height == b.Height &&
		a.Angle == b.Angle &&
		a.StrokeColor == b.StrokeColor &&
		a.BackgroundColor == b.BackgroundColor &&
		a.FillStyle == b.FillStyle &&
		a.StrokeWidth == b.StrokeWidth &&
		a.StrokeStyle == b.StrokeStyle &&
		a.Roughness == b.Roughness &&
		a.Opacity == b.Opacity &&
		a.IsDeleted == b.IsDeleted &&
		slices.Equal(a.Points, b.Points) &&
		a.Text == b.Text &&
		a.FontSize == b.FontSize &&
		a.FontFamily == b.FontFamily
}

// CloneAll deep-copies a slice of elements. A nil input yields an empty,
// non-nil slice so callers can always range and serialize it as [].
func CloneAll(elements []Element) []Element {
	out := make([]Element, len(elements))
	for i, e := range elements {
		out[i] = e.Clone()
	}
	return out
}
