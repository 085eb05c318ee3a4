package document

import (
	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/geom"
)

// NewSampleElements returns a small board showing every element type.
func NewSampleElements() []element.Element {
	title := element.New(element.TypeText, 80, 40, 260, 28, element.Patch{
		Text:     element.Ptr("Welcome to FreeFlow"),
		FontSize: element.Ptr(28.0),
	})

	box := element.New(element.TypeRectangle, 80, 120, 180, 100, element.Patch{
		BackgroundColor: element.Ptr("#d0ebff"),
		StrokeColor:     element.Ptr("#1971c2"),
		StrokeWidth:     element.Ptr(2),
	})

	decision := element.New(element.TypeDiamond, 360, 110, 140, 120, element.Patch{
		BackgroundColor: element.Ptr("#fff4d6"),
		StrokeColor:     element.Ptr("#f59f00"),
		FillStyle:       element.Ptr(element.FillCrossHatch),
	})

	bubble := element.New(element.TypeEllipse, 600, 120, 160, 100, element.Patch{
		BackgroundColor: element.Ptr("#d3f9d8"),
		StrokeColor:     element.Ptr("#2f9e44"),
		FillStyle:       element.Ptr(element.FillSolid),
	})

	link := element.New(element.TypeArrow, 260, 170, 100, 0, element.Patch{})
	next := element.New(element.TypeArrow, 500, 170, 100, 0, element.Patch{
		StrokeStyle: element.Ptr(element.StrokeDashed),
	})

	underline := element.New(element.TypeLine, 80, 76, 260, 0, element.Patch{
		StrokeColor: element.Ptr("#e03131"),
		Roughness:   element.Ptr(2),
	})

	squiggle := element.New(element.TypeFreedraw, 120, 300, 0, 0, element.Patch{
		StrokeWidth: element.Ptr(4),
		Points: []geom.Point{
			{X: 0, Y: 0}, {X: 20, Y: -12}, {X: 40, Y: 0}, {X: 60, Y: 12}, {X: 80, Y: 0},
			{X: 100, Y: -12}, {X: 120, Y: 0},
		},
	})

	return []element.Element{title, underline, box, link, decision, next, bubble, squiggle}
}
