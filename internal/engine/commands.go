package engine

import (
	"encoding/json"

	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/geom"
	"github.com/freeflow/freeflow/backend-go/internal/store"
)

const (
	OpShape     = "shape"
	OpSelection = "selection"
	OpGrid      = "grid"
)

// GridSpacing is the logical distance between grid lines.
const GridSpacing = 20.0

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op        string       `json:"op"`                  // "grid", "shape" or "selection"
	ElementID string       `json:"elementId,omitempty"` // For hit correlation
	Transform []float64    `json:"transform,omitempty"` // [a, b, c, d, e, f] affine matrix, viewport included
	Type      element.Type `json:"type,omitempty"`

	// Geometry in the element's unrotated local frame.
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Points []geom.Point `json:"points,omitempty"`

	StrokeColor     string              `json:"strokeColor,omitempty"`
	BackgroundColor string              `json:"backgroundColor,omitempty"`
	FillStyle       element.FillStyle   `json:"fillStyle,omitempty"`
	StrokeWidth     int                 `json:"strokeWidth,omitempty"`
	StrokeStyle     element.StrokeStyle `json:"strokeStyle,omitempty"`
	Roughness       int                 `json:"roughness,omitempty"`
	Opacity         float64             `json:"opacity,omitempty"`

	Text       string             `json:"text,omitempty"`
	FontSize   float64            `json:"fontSize,omitempty"`
	FontFamily element.FontFamily `json:"fontFamily,omitempty"`

	// Selection overlays only.
	Handles []geom.Rect `json:"handles,omitempty"`

	// Grid only.
	Spacing float64 `json:"spacing,omitempty"`
}

// CompileDrawCommands generates a draw command buffer from a store snapshot.
// Commands are in painter's order: the optional grid, then every visible
// element back to front, then one selection overlay per selected element.
func CompileDrawCommands(state store.State) []DrawCommand {
	view := state.Viewport.Matrix()
	commands := make([]DrawCommand, 0, len(state.Elements)+len(state.SelectedElements)+1)

	if state.GridEnabled {
		commands = append(commands, DrawCommand{
			Op:        OpGrid,
			Transform: view.ToSlice(),
			Spacing:   GridSpacing,
		})
	}

	visible := state.Visible()
	for _, e := range visible {
		commands = append(commands, shapeCommand(e, view))
	}

	for _, e := range visible {
		if !state.IsSelected(e.ID) {
			continue
		}
		commands = append(commands, selectionCommand(e, view))
	}

	return commands
}

// elementTransform is the viewport matrix composed with the element's
// rotation about its center.
func elementTransform(e element.Element, view geom.Matrix2D) geom.Matrix2D {
	if e.Angle == 0 {
		return view
	}
	c := e.Center()
	return view.Multiply(geom.RotationAbout(c.X, c.Y, e.Angle))
}

func shapeCommand(e element.Element, view geom.Matrix2D) DrawCommand {
	cmd := DrawCommand{
		Op:              OpShape,
		ElementID:       e.ID,
		Transform:       elementTransform(e, view).ToSlice(),
		Type:            e.Type,
		X:               e.X,
		Y:               e.Y,
		Width:           e.Width,
		Height:          e.Height,
		StrokeColor:     e.StrokeColor,
		BackgroundColor: e.BackgroundColor,
		FillStyle:       e.FillStyle,
		StrokeWidth:     e.StrokeWidth,
		StrokeStyle:     e.StrokeStyle,
		Roughness:       e.Roughness,
		Opacity:         e.Opacity,
	}

	switch e.Type {
	case element.TypeFreedraw:
		cmd.Points = e.AbsolutePoints()
	case element.TypeText:
		cmd.Text = e.Text
		cmd.FontSize = e.FontSize
		cmd.FontFamily = e.FontFamily
	}

	return cmd
}

func selectionCommand(e element.Element, view geom.Matrix2D) DrawCommand {
	b := element.BoundingBox(e)
	handles := Handles(e)
	rects := make([]geom.Rect, len(handles))
	for i, h := range handles {
		rects[i] = geom.RectAround(h.Point, HandleSize)
	}

	return DrawCommand{
		Op:        OpSelection,
		ElementID: e.ID,
		Transform: elementTransform(e, view).ToSlice(),
		X:         b.MinX,
		Y:         b.MinY,
		Width:     b.Width,
		Height:    b.Height,
		Handles:   rects,
	}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
