package export

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/sketchcode/sketchcode/internal/engine"
	"github.com/sketchcode/sketchcode/internal/geometry"
)

// basicfont.Face7x13, gg's built-in face, is 13px tall.
const builtinFontHeight = 13.0

// Rasterizer paints draw commands with gg. It implements engine.Rasterizer.
type Rasterizer struct {
	PixelRatio float64
}

var _ engine.Rasterizer = (*Rasterizer)(nil)

func NewRasterizer(pixelRatio float64) *Rasterizer {
	if pixelRatio <= 0 {
		pixelRatio = DefaultPixelRatio
	}
	return &Rasterizer{PixelRatio: pixelRatio}
}

func (r *Rasterizer) Rasterize(cmds []engine.DrawCommand, width, height float64, mime string, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Encode(&buf, cmds, width, height, mime, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode paints cmds onto a white canvas of width x height scene units and
// writes it as PNG or JPEG.
func (r *Rasterizer) Encode(w io.Writer, cmds []engine.DrawCommand, width, height float64, mime string, quality float64) error {
	dc := r.Paint(cmds, width, height)
	if mime == "image/jpeg" {
		if quality <= 0 || quality > 1 {
			quality = DefaultQuality
		}
		if err := jpeg.Encode(w, dc.Image(), &jpeg.Options{Quality: int(math.Round(quality * 100))}); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
		return nil
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Paint draws cmds and returns the context for further use.
func (r *Rasterizer) Paint(cmds []engine.DrawCommand, width, height float64) *gg.Context {
	ratio := r.PixelRatio
	if ratio <= 0 {
		ratio = DefaultPixelRatio
	}
	pw := max(1, int(math.Ceil(width*ratio)))
	ph := max(1, int(math.Ceil(height*ratio)))

	dc := gg.NewContext(pw, ph)
	bg, _ := ParseColor(Background)
	dc.SetColor(bg)
	dc.Clear()

	base := geometry.Scale(ratio, ratio)
	for _, cmd := range cmds {
		switch cmd.Op {
		case "path":
			drawPath(dc, cmd, commandMatrix(cmd, base))
		case "text":
			drawText(dc, cmd, commandMatrix(cmd, base))
		}
	}
	return dc
}

func setPaint(dc *gg.Context, p Paint, alpha float64) {
	dc.SetRGBA(p.R, p.G, p.B, p.Alpha*alpha)
}

func drawPath(dc *gg.Context, cmd engine.DrawCommand, m geometry.Matrix2D) {
	dc.NewSubPath()
	walkPath(cmd.Path, m, dc)
	alpha := opacity(cmd)

	if fill, ok := ParseColor(cmd.Fill); ok && cmd.Composite == "" {
		setPaint(dc, fill, alpha)
		dc.FillPreserve()
	}
	if stroke, ok := strokePaint(cmd); ok && cmd.StrokeWidth > 0 {
		setPaint(dc, stroke, alpha)
		dc.SetLineWidth(cmd.StrokeWidth * lineScale(m))
		if cmd.LineCap == "round" {
			dc.SetLineCapRound()
		} else {
			dc.SetLineCapButt()
		}
		if cmd.LineJoin == "round" {
			dc.SetLineJoinRound()
		} else {
			dc.SetLineJoinBevel()
		}
		dashes := make([]float64, len(cmd.Dash))
		for i, d := range cmd.Dash {
			dashes[i] = d * lineScale(m)
		}
		dc.SetDash(dashes...)
		dc.StrokePreserve()
	}
	dc.ClearPath()
}

func drawText(dc *gg.Context, cmd engine.DrawCommand, m geometry.Matrix2D) {
	fill, ok := ParseColor(cmd.Fill)
	if !ok || cmd.Text == "" {
		return
	}
	size := cmd.FontSize
	if size <= 0 {
		size = engine.FontSize
	}
	x, y := m.TransformPoint(0, 0)

	dc.Push()
	defer dc.Pop()
	setPaint(dc, fill, opacity(cmd))
	dc.Translate(x, y)
	dc.Rotate(rotation(m))
	k := size / builtinFontHeight * lineScale(m)
	dc.Scale(k, k)
	// anchor is the top-left of the text box
	dc.DrawStringAnchored(cmd.Text, 0, 0, 0, 1)
}
