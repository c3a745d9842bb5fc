package export

import (
	"fmt"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"github.com/sketchcode/sketchcode/internal/engine"
	"github.com/sketchcode/sketchcode/internal/geometry"
)

// pdfPath adapts gofpdf's path calls to pathSink.
type pdfPath struct{ pdf *gofpdf.Fpdf }

func (p pdfPath) MoveTo(x, y float64) { p.pdf.MoveTo(x, y) }
func (p pdfPath) LineTo(x, y float64) { p.pdf.LineTo(x, y) }
func (p pdfPath) CubicTo(x1, y1, x2, y2, x, y float64) {
	p.pdf.CurveBezierCubicTo(x1, y1, x2, y2, x, y)
}
func (p pdfPath) ClosePath() { p.pdf.ClosePath() }

// WritePDF writes cmds as a single-page PDF. One scene unit is one point.
func WritePDF(w io.Writer, cmds []engine.DrawCommand, width, height float64) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	bg, _ := ParseColor(Background)
	setFill(pdf, bg)
	pdf.Rect(0, 0, width, height, "F")

	for _, cmd := range cmds {
		m := commandMatrix(cmd, geometry.Identity())
		switch cmd.Op {
		case "path":
			drawPDFPath(pdf, cmd, m)
		case "text":
			drawPDFText(pdf, cmd, m, tr)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setFill(pdf *gofpdf.Fpdf, p Paint) {
	r, g, b := p.RGB255()
	pdf.SetFillColor(int(r), int(g), int(b))
}

func setDraw(pdf *gofpdf.Fpdf, p Paint) {
	r, g, b := p.RGB255()
	pdf.SetDrawColor(int(r), int(g), int(b))
}

func drawPDFPath(pdf *gofpdf.Fpdf, cmd engine.DrawCommand, m geometry.Matrix2D) {
	style := ""
	alpha := opacity(cmd)
	if fill, ok := ParseColor(cmd.Fill); ok && cmd.Composite == "" {
		setFill(pdf, fill)
		alpha *= fill.Alpha
		style += "F"
	}
	if stroke, ok := strokePaint(cmd); ok && cmd.StrokeWidth > 0 {
		setDraw(pdf, stroke)
		pdf.SetLineWidth(cmd.StrokeWidth * lineScale(m))
		if cmd.LineCap == "round" {
			pdf.SetLineCapStyle("round")
		} else {
			pdf.SetLineCapStyle("butt")
		}
		if cmd.LineJoin == "round" {
			pdf.SetLineJoinStyle("round")
		} else {
			pdf.SetLineJoinStyle("miter")
		}
		pdf.SetDashPattern(cmd.Dash, 0)
		if style == "" {
			alpha *= stroke.Alpha
		}
		style += "D"
	}
	if style == "" || !drawable(cmd.Path) {
		return
	}

	pdf.SetAlpha(alpha, "Normal")
	walkPath(cmd.Path, m, pdfPath{pdf})
	pdf.DrawPath(style)
	pdf.SetAlpha(1, "Normal")
}

func drawPDFText(pdf *gofpdf.Fpdf, cmd engine.DrawCommand, m geometry.Matrix2D, tr func(string) string) {
	fill, ok := ParseColor(cmd.Fill)
	if !ok || cmd.Text == "" {
		return
	}
	size := cmd.FontSize
	if size <= 0 {
		size = engine.FontSize
	}
	size *= lineScale(m)
	x, y := m.TransformPoint(0, 0)
	r, g, b := fill.RGB255()

	pdf.SetFont("Helvetica", "", size)
	pdf.SetTextColor(int(r), int(g), int(b))
	pdf.TransformBegin()
	// gofpdf rotates counter-clockwise, the scene clockwise
	pdf.TransformRotate(-rotation(m)*180/math.Pi, x, y)
	pdf.Text(x, y+size*0.8, tr(cmd.Text))
	pdf.TransformEnd()
}
