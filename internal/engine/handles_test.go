package engine

import (
	"testing"

	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/geom"
)

func TestHandleAt(t *testing.T) {
	e := rect(100, 100, 200, 100)

	tests := []struct {
		name string
		p    geom.Point
		want Handle
	}{
		{"nw corner", geom.Pt(100, 100), HandleNW},
		{"nw within zone", geom.Pt(103, 97), HandleNW},
		{"n", geom.Pt(200, 100), HandleN},
		{"ne", geom.Pt(300, 100), HandleNE},
		{"e", geom.Pt(300, 150), HandleE},
		{"se", geom.Pt(300, 200), HandleSE},
		{"s", geom.Pt(200, 200), HandleS},
		{"sw", geom.Pt(100, 200), HandleSW},
		{"w", geom.Pt(100, 150), HandleW},
		{"outside zone", geom.Pt(105, 105), HandleNone},
		{"interior", geom.Pt(200, 150), HandleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HandleAt(tt.p, e); got != tt.want {
				t.Errorf("HandleAt(%v) = %q, want %q", tt.p, got, tt.want)
			}
		})
	}
}

func TestResize(t *testing.T) {
	base := rect(10, 10, 100, 50)

	tests := []struct {
		name         string
		handle       Handle
		dx, dy       float64
		x, y, w, hgt float64
	}{
		{"se grows", HandleSE, 10, 5, 10, 10, 110, 55},
		{"nw moves origin", HandleNW, 10, 5, 20, 15, 90, 45},
		{"e width only", HandleE, 20, 99, 10, 10, 120, 50},
		{"n height only", HandleN, 99, -10, 10, 0, 100, 60},
		{"drag past opposite edge", HandleE, -150, 0, 10, 10, -50, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resize(base, tt.handle, tt.dx, tt.dy)
			if got.X != tt.x || got.Y != tt.y || got.Width != tt.w || got.Height != tt.hgt {
				t.Errorf("Resize = (%v,%v,%v,%v), want (%v,%v,%v,%v)",
					got.X, got.Y, got.Width, got.Height, tt.x, tt.y, tt.w, tt.hgt)
			}
		})
	}

	stroke := element.New(element.TypeFreedraw, 0, 0, 0, 0, element.Patch{
		Points: []geom.Point{{X: 0, Y: 0}},
	})
	if got := Resize(stroke, HandleSE, 10, 10); !element.Equal(got, stroke) {
		t.Error("Resize changed a freedraw element")
	}
}
