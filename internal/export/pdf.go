// Package export renders boards to PDF.
package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/geom"
)

const (
	// PagePadding surrounds the drawing on every side, in points.
	PagePadding = 20.0

	arrowHeadLength = 12.0
	arrowHeadAngle  = math.Pi / 7
	lineHeight      = 1.25
)

// Options control how a board is laid out on the page.
type Options struct {
	Title    string
	DarkMode bool
}

// RenderPDF draws the visible elements onto a single page sized to fit
// them, one logical pixel per point, and writes the PDF to w.
func RenderPDF(w io.Writer, elements []element.Element, opts Options) error {
	visible := make([]element.Element, 0, len(elements))
	for _, e := range elements {
		if !e.IsDeleted {
			visible = append(visible, e)
		}
	}

	bounds, ok := contentBounds(visible)
	if !ok {
		bounds = geom.NewRect(0, 0, 595, 842)
	}

	pageW := bounds.Width + 2*PagePadding
	pageH := bounds.Height + 2*PagePadding

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	pdf.SetCreator("freeflow", true)
	pdf.AddPage()

	if opts.DarkMode {
		pdf.SetFillColor(0x12, 0x12, 0x12)
		pdf.Rect(0, 0, pageW, pageH, "F")
	}

	r := &renderer{
		pdf:    pdf,
		dx:     PagePadding - bounds.MinX,
		dy:     PagePadding - bounds.MinY,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		invert: opts.DarkMode,
	}
	for _, e := range visible {
		r.draw(e)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func contentBounds(elements []element.Element) (geom.Rect, bool) {
	if len(elements) == 0 {
		return geom.Rect{}, false
	}
	b := element.BoundingBox(elements[0])
	for _, e := range elements[1:] {
		b = b.Union(element.BoundingBox(e))
	}
	return b, true
}

type renderer struct {
	pdf    *gofpdf.Fpdf
	dx, dy float64
	tr     func(string) string
	invert bool
}

func (r *renderer) pt(x, y float64) (float64, float64) {
	return x + r.dx, y + r.dy
}

func (r *renderer) draw(e element.Element) {
	pdf := r.pdf

	pdf.SetAlpha(clamp01(e.Opacity/100), "Normal")
	pdf.SetLineWidth(float64(e.StrokeWidth))
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	pdf.SetDashPattern(dashPattern(e.StrokeStyle, e.StrokeWidth), 0)

	sr, sg, sb := r.color(e.StrokeColor)
	pdf.SetDrawColor(sr, sg, sb)

	style := "D"
	if fr, fg, fb, ok := parseHex(e.BackgroundColor); ok {
		pdf.SetFillColor(fr, fg, fb)
		style = "FD"
	}

	if e.Angle != 0 {
		c := e.Center()
		cx, cy := r.pt(c.X, c.Y)
		pdf.TransformBegin()
		// Canvas angles turn clockwise on screen; PDF rotation is counter-clockwise.
		pdf.TransformRotate(-e.Angle*180/math.Pi, cx, cy)
		defer pdf.TransformEnd()
	}

	b := element.BoundingBox(e)
	x, y := r.pt(b.MinX, b.MinY)

	switch e.Type {
	case element.TypeRectangle:
		pdf.Rect(x, y, b.Width, b.Height, style)

	case element.TypeEllipse:
		pdf.Ellipse(x+b.Width/2, y+b.Height/2, b.Width/2, b.Height/2, 0, style)

	case element.TypeDiamond:
		pdf.Polygon([]gofpdf.PointType{
			{X: x + b.Width/2, Y: y},
			{X: x + b.Width, Y: y + b.Height/2},
			{X: x + b.Width/2, Y: y + b.Height},
			{X: x, Y: y + b.Height/2},
		}, style)

	case element.TypeLine, element.TypeArrow:
		x0, y0 := r.pt(e.X, e.Y)
		x1, y1 := r.pt(e.X+e.Width, e.Y+e.Height)
		pdf.Line(x0, y0, x1, y1)
		if e.Type == element.TypeArrow {
			r.arrowHead(x0, y0, x1, y1)
		}

	case element.TypeFreedraw:
		pts := e.AbsolutePoints()
		if len(pts) == 1 {
			px, py := r.pt(pts[0].X, pts[0].Y)
			pdf.SetFillColor(sr, sg, sb)
			pdf.Circle(px, py, math.Max(float64(e.StrokeWidth)/2, 0.5), "F")
			return
		}
		for i := 1; i < len(pts); i++ {
			x0, y0 := r.pt(pts[i-1].X, pts[i-1].Y)
			x1, y1 := r.pt(pts[i].X, pts[i].Y)
			pdf.Line(x0, y0, x1, y1)
		}

	case element.TypeText:
		r.text(e, x, y)
	}
}

func (r *renderer) arrowHead(x0, y0, x1, y1 float64) {
	if x0 == x1 && y0 == y1 {
		return
	}
	angle := math.Atan2(y1-y0, x1-x0)
	for _, side := range []float64{-1, 1} {
		a := angle + math.Pi + side*arrowHeadAngle
		r.pdf.Line(x1, y1, x1+arrowHeadLength*math.Cos(a), y1+arrowHeadLength*math.Sin(a))
	}
}

func (r *renderer) text(e element.Element, x, y float64) {
	size := e.FontSize
	if size <= 0 {
		size = element.DefaultFontSize
	}

	r.pdf.SetFont(fontFor(e.FontFamily), "", size)
	cr, cg, cb := r.color(e.StrokeColor)
	r.pdf.SetTextColor(cr, cg, cb)

	for i, line := range strings.Split(e.Text, "\n") {
		baseline := y + size + float64(i)*size*lineHeight
		r.pdf.Text(x, baseline, r.tr(line))
	}
}

// color resolves a stroke color, swapping near-black for white on a dark
// page so default strokes stay visible.
func (r *renderer) color(hex string) (int, int, int) {
	cr, cg, cb, ok := parseHex(hex)
	if !ok {
		cr, cg, cb = 0, 0, 0
	}
	if r.invert && cr+cg+cb < 96 {
		return 0xff, 0xff, 0xff
	}
	return cr, cg, cb
}

func fontFor(f element.FontFamily) string {
	switch f {
	case element.FontCode:
		return "Courier"
	case element.FontNormal:
		return "Helvetica"
	default:
		return "Times"
	}
}

func dashPattern(s element.StrokeStyle, width int) []float64 {
	w := math.Max(float64(width), 1)
	switch s {
	case element.StrokeDashed:
		return []float64{8 * w, 4 * w}
	case element.StrokeDotted:
		return []float64{w, 3 * w}
	default:
		return nil
	}
}

// parseHex accepts #rgb and #rrggbb. Anything else, including
// "transparent", reports false.
func parseHex(s string) (int, int, int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
