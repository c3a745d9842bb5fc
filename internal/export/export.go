// Package export renders compiled draw commands to image and document
// formats: PNG and JPEG through gg, SVG through svgo and PDF through gofpdf.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/engine"
	"github.com/sketchcode/sketchcode/internal/geometry"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
)

const (
	DefaultPixelRatio = 2.0
	DefaultQuality    = 0.92
	Background        = "#ffffff"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png", "image/png":
		return FormatPNG, nil
	case "jpeg", "jpg", "image/jpeg":
		return FormatJPEG, nil
	case "svg", "image/svg+xml":
		return FormatSVG, nil
	case "pdf", "application/pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	default:
		return "image/png"
	}
}

func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// Options control a scene export.
type Options struct {
	Grid       bool
	PixelRatio float64
	// Quality is the JPEG quality in (0, 1].
	Quality float64
}

// Render compiles scene and writes it to w in format f.
func Render(w io.Writer, scene document.Scene, f Format, opts Options) error {
	width, height := scene.Width, scene.Height
	if width <= 0 {
		width = document.DefaultWidth
	}
	if height <= 0 {
		height = document.DefaultHeight
	}
	scene.Width, scene.Height = width, height
	cmds := engine.CompileDrawCommands(scene, engine.RenderOptions{Grid: opts.Grid})

	switch f {
	case FormatPNG, FormatJPEG:
		r := NewRasterizer(opts.PixelRatio)
		return r.Encode(w, cmds, width, height, f.ContentType(), opts.Quality)
	case FormatSVG:
		return WriteSVG(w, cmds, width, height)
	case FormatPDF:
		return WritePDF(w, cmds, width, height)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// pathSink receives path segments in output space. *gg.Context satisfies it
// directly.
type pathSink interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	CubicTo(x1, y1, x2, y2, x, y float64)
	ClosePath()
}

// walkPath feeds path through m into sink and reports whether it drew
// anything.
func walkPath(path []engine.PathCommand, m geometry.Matrix2D, sink pathSink) bool {
	drew := false
	for _, cmd := range path {
		if len(cmd) == 0 {
			continue
		}
		op, _ := cmd[0].(string)
		arg := func(i int) float64 {
			if i+1 < len(cmd) {
				return engine.ToFloat64(cmd[i+1])
			}
			return 0
		}
		switch op {
		case "M":
			x, y := m.TransformPoint(arg(0), arg(1))
			sink.MoveTo(x, y)
		case "L":
			x, y := m.TransformPoint(arg(0), arg(1))
			sink.LineTo(x, y)
			drew = true
		case "C":
			x1, y1 := m.TransformPoint(arg(0), arg(1))
			x2, y2 := m.TransformPoint(arg(2), arg(3))
			x, y := m.TransformPoint(arg(4), arg(5))
			sink.CubicTo(x1, y1, x2, y2, x, y)
			drew = true
		case "Z":
			sink.ClosePath()
		}
	}
	return drew
}

// drawable reports whether path has at least one segment.
func drawable(path []engine.PathCommand) bool {
	for _, cmd := range path {
		if len(cmd) > 0 && (cmd[0] == "L" || cmd[0] == "C") {
			return true
		}
	}
	return false
}

// commandMatrix is the transform of cmd followed by base.
func commandMatrix(cmd engine.DrawCommand, base geometry.Matrix2D) geometry.Matrix2D {
	if len(cmd.Transform) != 6 {
		return base
	}
	var local geometry.Matrix2D
	copy(local[:], cmd.Transform)
	return base.Multiply(local)
}

// lineScale is how much m stretches line widths.
func lineScale(m geometry.Matrix2D) float64 {
	return math.Sqrt(math.Abs(m.Determinant()))
}

// rotation is the angle of m in radians.
func rotation(m geometry.Matrix2D) float64 {
	return math.Atan2(m[1], m[0])
}

// strokePaint resolves the stroke of cmd, replacing destination-out erasing
// with the background color since none of the outputs composite.
func strokePaint(cmd engine.DrawCommand) (Paint, bool) {
	if cmd.Composite == "destination-out" {
		return ParseColor(Background)
	}
	return ParseColor(cmd.Stroke)
}

func opacity(cmd engine.DrawCommand) float64 {
	if cmd.Opacity <= 0 {
		return 1
	}
	return cmd.Opacity
}
