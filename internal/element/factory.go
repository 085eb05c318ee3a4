package element

import (
	"slices"

	"github.com/freeflow/freeflow/backend-go/internal/geom"
	"github.com/freeflow/freeflow/backend-go/internal/typeid"
)

// Patch is a partial set of element fields. Nil fields are left alone.
// It serves both as the override set for New and as the update set for
// in-place edits.
type Patch struct {
	X               *float64     `json:"x,omitempty"`
	Y               *float64     `json:"y,omitempty"`
	Width           *float64     `json:"width,omitempty"`
	Height          *float64     `json:"height,omitempty"`
	Angle           *float64     `json:"angle,omitempty"`
	StrokeColor     *string      `json:"strokeColor,omitempty"`
	BackgroundColor *string      `json:"backgroundColor,omitempty"`
	FillStyle       *FillStyle   `json:"fillStyle,omitempty"`
	StrokeWidth     *int         `json:"strokeWidth,omitempty"`
	StrokeStyle     *StrokeStyle `json:"strokeStyle,omitempty"`
	Roughness       *int         `json:"roughness,omitempty"`
	Opacity         *float64     `json:"opacity,omitempty"`
	IsDeleted       *bool        `json:"isDeleted,omitempty"`
	Points          []geom.Point `json:"points,omitempty"`
	Text            *string      `json:"text,omitempty"`
	FontSize        *float64     `json:"fontSize,omitempty"`
	FontFamily      *FontFamily  `json:"fontFamily,omitempty"`
}

// Ptr returns a pointer to v, for filling Patch fields inline.
func Ptr[T any](v T) *T {
	return &v
}

// Apply returns a copy of e with every set field of p written over it.
func (p Patch) Apply(e Element) Element {
	out := e.Clone()

	if p.X != nil {
		out.X = *p.X
	}
	if p.Y != nil {
		out.Y = *p.Y
	}
	if p.Width != nil {
		out.Width = *p.Width
	}
	if p.Height != nil {
		out.Height = *p.Height
	}
	if p.Angle != nil {
		out.Angle = *p.Angle
	}
	if p.StrokeColor != nil {
		out.StrokeColor = *p.StrokeColor
	}
	if p.BackgroundColor != nil {
		out.BackgroundColor = *p.BackgroundColor
	}
	if p.FillStyle != nil {
		out.FillStyle = *p.FillStyle
	}
	if p.StrokeWidth != nil {
		out.StrokeWidth = *p.StrokeWidth
	}
	if p.StrokeStyle != nil {
		out.StrokeStyle = *p.StrokeStyle
	}
	if p.Roughness != nil {
		out.Roughness = *p.Roughness
	}
	if p.Opacity != nil {
		out.Opacity = *p.Opacity
	}
	if p.IsDeleted != nil {
		out.IsDeleted = *p.IsDeleted
	}
	if p.Points != nil {
		out.Points = slices.Clone(p.Points)
	}
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.FontSize != nil {
		out.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		out.FontFamily = *p.FontFamily
	}

	return out
}

// Merge returns p with every set field of other written over it.
func (p Patch) Merge(other Patch) Patch {
	out := p
	if other.X != nil {
		out.X = other.X
	}
	if other.Y != nil {
		out.Y = other.Y
	}
	if other.Width != nil {
		out.Width = other.Width
	}
	if other.Height != nil {
		out.Height = other.Height
	}
	if other.Angle != nil {
		out.Angle = other.Angle
	}
	if other.StrokeColor != nil {
		out.StrokeColor = other.StrokeColor
	}
	if other.BackgroundColor != nil {
		out.BackgroundColor = other.BackgroundColor
	}
	if other.FillStyle != nil {
		out.FillStyle = other.FillStyle
	}
	if other.StrokeWidth != nil {
		out.StrokeWidth = other.StrokeWidth
	}
	if other.StrokeStyle != nil {
		out.StrokeStyle = other.StrokeStyle
	}
	if other.Roughness != nil {
		out.Roughness = other.Roughness
	}
	if other.Opacity != nil {
		out.Opacity = other.Opacity
	}
	if other.IsDeleted != nil {
		out.IsDeleted = other.IsDeleted
	}
	if other.Points != nil {
		out.Points = other.Points
	}
	if other.Text != nil {
		out.Text = other.Text
	}
	if other.FontSize != nil {
		out.FontSize = other.FontSize
	}
	if other.FontFamily != nil {
		out.FontFamily = other.FontFamily
	}
	return out
}

// New creates an element with a fresh id and the default style, then applies
// overrides. Points and text are taken as given; nothing is validated.
func New(typ Type, x, y, width, height float64, overrides Patch) Element {
	e := Element{
		ID:              typeid.NewElementID(),
		Type:            typ,
		X:               x,
		Y:               y,
		Width:           width,
		Height:          height,
		Angle:           0,
		StrokeColor:     DefaultStrokeColor,
		BackgroundColor: DefaultBackgroundColor,
		FillStyle:       DefaultFillStyle,
		StrokeWidth:     DefaultStrokeWidth,
		StrokeStyle:     DefaultStrokeStyle,
		Roughness:       DefaultRoughness,
		Opacity:         DefaultOpacity,
		IsDeleted:       false,
		FontSize:        DefaultFontSize,
		FontFamily:      DefaultFontFamily,
	}
	return overrides.Apply(e)
}
