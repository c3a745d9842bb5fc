package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/sketchcode/sketchcode/internal/engine"
	"github.com/sketchcode/sketchcode/internal/geometry"
)

// svgPath collects path data in SVG syntax.
type svgPath struct{ b strings.Builder }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func (p *svgPath) MoveTo(x, y float64) { fmt.Fprintf(&p.b, "M%s %s ", num(x), num(y)) }
func (p *svgPath) LineTo(x, y float64) { fmt.Fprintf(&p.b, "L%s %s ", num(x), num(y)) }
func (p *svgPath) CubicTo(x1, y1, x2, y2, x, y float64) {
	fmt.Fprintf(&p.b, "C%s %s %s %s %s %s ", num(x1), num(y1), num(x2), num(y2), num(x), num(y))
}
func (p *svgPath) ClosePath() { p.b.WriteString("Z ") }

// WriteSVG writes cmds as an SVG document of width x height.
func WriteSVG(w io.Writer, cmds []engine.DrawCommand, width, height float64) error {
	cw := &countingWriter{w: w}
	canvas := svg.New(cw)
	iw, ih := int(math.Ceil(width)), int(math.Ceil(height))
	canvas.Start(iw, ih)
	canvas.Rect(0, 0, iw, ih, "fill:"+Background)

	for _, cmd := range cmds {
		m := commandMatrix(cmd, geometry.Identity())
		switch cmd.Op {
		case "path":
			var d svgPath
			if !walkPath(cmd.Path, m, &d) {
				continue
			}
			canvas.Path(strings.TrimSpace(d.b.String()), svgPathStyle(cmd, m))
		case "text":
			fill, ok := ParseColor(cmd.Fill)
			if !ok || cmd.Text == "" {
				continue
			}
			size := cmd.FontSize
			if size <= 0 {
				size = engine.FontSize
			}
			canvas.Gtransform(fmt.Sprintf("matrix(%s %s %s %s %s %s)",
				num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5])))
			canvas.Text(0, 0, cmd.Text, fmt.Sprintf(
				"fill:%s;font-size:%spx;font-family:%s;dominant-baseline:hanging",
				fill.CSS(), num(size), cmd.FontFamily))
			canvas.Gend()
		}
	}
	canvas.End()
	return cw.err
}

func svgPathStyle(cmd engine.DrawCommand, m geometry.Matrix2D) string {
	var parts []string
	if fill, ok := ParseColor(cmd.Fill); ok && cmd.Composite == "" {
		parts = append(parts, "fill:"+fill.CSS())
	} else {
		parts = append(parts, "fill:none")
	}
	if stroke, ok := strokePaint(cmd); ok && cmd.StrokeWidth > 0 {
		parts = append(parts,
			"stroke:"+stroke.CSS(),
			"stroke-width:"+num(cmd.StrokeWidth*lineScale(m)),
		)
		if cmd.LineCap != "" {
			parts = append(parts, "stroke-linecap:"+cmd.LineCap)
		}
		if cmd.LineJoin != "" {
			parts = append(parts, "stroke-linejoin:"+cmd.LineJoin)
		}
		if len(cmd.Dash) > 0 {
			dash := make([]string, len(cmd.Dash))
			for i, d := range cmd.Dash {
				dash[i] = num(d)
			}
			parts = append(parts, "stroke-dasharray:"+strings.Join(dash, ","))
		}
	}
	if o := opacity(cmd); o < 1 {
		parts = append(parts, "opacity:"+num(o))
	}
	return strings.Join(parts, ";")
}

// countingWriter remembers the first write error; svgo does not report them.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
