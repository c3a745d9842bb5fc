package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sketchcode/sketchcode/internal/geometry"
)

var ErrUnknownShapeType = errors.New("unknown shape type")

type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
	ShapeEllipse   ShapeType = "ellipse"
	ShapeTriangle  ShapeType = "triangle"
	ShapeArrow     ShapeType = "arrow"
	ShapeText      ShapeType = "text"
)

const (
	// Text shapes are hit-tested and bounded by a fixed box at their anchor.
	TextBoxWidth  = 100.0
	TextBoxHeight = 30.0

	// MinFoldedSize is the smallest size a transform fold may produce.
	MinFoldedSize = 5.0
)

// Geometry is the type-specific part of a shape. The set of implementations is
// closed: Rectangle, Triangle, Arrow, Circle, Ellipse and Text.
type Geometry interface {
	Type() ShapeType
	// Degenerate reports whether the geometry has no visible extent.
	Degenerate() bool
	// Bounds is the axis-aligned box of the geometry anchored at (x, y).
	Bounds(x, y float64) geometry.Rect
	// Contains tests a point given relative to the anchor.
	Contains(dx, dy float64) bool
	// Scaled folds an accumulated transform scale into the size fields.
	Scaled(sx, sy float64) Geometry

	isGeometry()
}

// Rectangle, Triangle and Arrow keep a signed extent so a drag may go in any
// direction from the anchor.
type Rectangle struct{ Width, Height float64 }
type Triangle struct{ Width, Height float64 }
type Arrow struct{ Width, Height float64 }

// Circle and Ellipse are anchored at their center.
type Circle struct{ Radius float64 }
type Ellipse struct{ RadiusX, RadiusY float64 }

type Text struct{ Content string }

func (Rectangle) Type() ShapeType { return ShapeRectangle }
func (Triangle) Type() ShapeType  { return ShapeTriangle }
func (Arrow) Type() ShapeType     { return ShapeArrow }
func (Circle) Type() ShapeType    { return ShapeCircle }
func (Ellipse) Type() ShapeType   { return ShapeEllipse }
func (Text) Type() ShapeType      { return ShapeText }

func (g Rectangle) Degenerate() bool { return g.Width == 0 || g.Height == 0 }
func (g Triangle) Degenerate() bool  { return g.Width == 0 || g.Height == 0 }

// An arrow along one axis is still drawable.
func (g Arrow) Degenerate() bool   { return g.Width == 0 && g.Height == 0 }
func (g Circle) Degenerate() bool  { return g.Radius == 0 }
func (g Ellipse) Degenerate() bool { return g.RadiusX == 0 || g.RadiusY == 0 }
func (g Text) Degenerate() bool    { return strings.TrimSpace(g.Content) == "" }

func boxBounds(x, y, w, h float64) geometry.Rect {
	return geometry.RectFromPoints(geometry.Point{X: x, Y: y}, geometry.Point{X: x + w, Y: y + h})
}

func (g Rectangle) Bounds(x, y float64) geometry.Rect { return boxBounds(x, y, g.Width, g.Height) }
func (g Triangle) Bounds(x, y float64) geometry.Rect  { return boxBounds(x, y, g.Width, g.Height) }
func (g Arrow) Bounds(x, y float64) geometry.Rect     { return boxBounds(x, y, g.Width, g.Height) }

func (g Circle) Bounds(x, y float64) geometry.Rect {
	return geometry.Rect{X: x - g.Radius, Y: y - g.Radius, Width: 2 * g.Radius, Height: 2 * g.Radius}
}

func (g Ellipse) Bounds(x, y float64) geometry.Rect {
	return geometry.Rect{X: x - g.RadiusX, Y: y - g.RadiusY, Width: 2 * g.RadiusX, Height: 2 * g.RadiusY}
}

func (g Text) Bounds(x, y float64) geometry.Rect {
	return geometry.Rect{X: x, Y: y, Width: TextBoxWidth, Height: TextBoxHeight}
}

func (g Rectangle) Contains(dx, dy float64) bool { return g.Bounds(0, 0).Contains(dx, dy) }
func (g Triangle) Contains(dx, dy float64) bool  { return g.Bounds(0, 0).Contains(dx, dy) }
func (g Arrow) Contains(dx, dy float64) bool     { return g.Bounds(0, 0).Contains(dx, dy) }
func (g Text) Contains(dx, dy float64) bool      { return g.Bounds(0, 0).Contains(dx, dy) }

func (g Circle) Contains(dx, dy float64) bool {
	return dx*dx+dy*dy <= g.Radius*g.Radius
}

func (g Ellipse) Contains(dx, dy float64) bool {
	rx, ry := g.RadiusX, g.RadiusY
	if rx <= 0 || ry <= 0 {
		return false
	}
	return (dx*dx)/(rx*rx)+(dy*dy)/(ry*ry) <= 1
}

func fold(v, s float64) float64 { return max(MinFoldedSize, v*s) }

func (g Rectangle) Scaled(sx, sy float64) Geometry {
	return Rectangle{Width: fold(g.Width, sx), Height: fold(g.Height, sy)}
}

func (g Triangle) Scaled(sx, sy float64) Geometry {
	return Triangle{Width: fold(g.Width, sx), Height: fold(g.Height, sy)}
}

func (g Arrow) Scaled(sx, sy float64) Geometry {
	return Arrow{Width: fold(g.Width, sx), Height: fold(g.Height, sy)}
}

func (g Circle) Scaled(sx, sy float64) Geometry {
	return Circle{Radius: fold(g.Radius, max(sx, sy))}
}

func (g Ellipse) Scaled(sx, sy float64) Geometry {
	return Ellipse{RadiusX: fold(g.RadiusX, sx), RadiusY: fold(g.RadiusY, sy)}
}

// Text has no size fields to fold into.
func (g Text) Scaled(float64, float64) Geometry { return g }

func (Rectangle) isGeometry() {}
func (Triangle) isGeometry()  {}
func (Arrow) isGeometry()     {}
func (Circle) isGeometry()    {}
func (Ellipse) isGeometry()   {}
func (Text) isGeometry()      {}

// Style carries paint attributes shared by every shape type.
type Style struct {
	Stroke      string  `json:"stroke,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// WithDefaults fills the empty fields of s from def.
func (s Style) WithDefaults(def Style) Style {
	if s.Stroke == "" {
		s.Stroke = def.Stroke
	}
	if s.Fill == "" {
		s.Fill = def.Fill
	}
	if s.StrokeWidth == 0 {
		s.StrokeWidth = def.StrokeWidth
	}
	return s
}

// Shape is a vector primitive. X and Y are the anchor: top-left for the
// box-like types, center for Circle and Ellipse, insertion point for Text.
type Shape struct {
	ID       string
	X, Y     float64
	Geometry Geometry
	Style    Style
	// Rotation is in degrees.
	Rotation float64
}

func (s Shape) Type() ShapeType {
	if s.Geometry == nil {
		return ""
	}
	return s.Geometry.Type()
}

// Degenerate reports whether the shape must not be committed to a scene.
func (s Shape) Degenerate() bool {
	return s.Geometry == nil || s.Geometry.Degenerate()
}

// Bounds ignores rotation.
func (s Shape) Bounds() geometry.Rect {
	if s.Geometry == nil {
		return geometry.Rect{X: s.X, Y: s.Y}
	}
	return s.Geometry.Bounds(s.X, s.Y)
}

// HitTest runs the type-specific containment test for p.
func (s Shape) HitTest(p geometry.Point) bool {
	if s.Geometry == nil {
		return false
	}
	return s.Geometry.Contains(p.X-s.X, p.Y-s.Y)
}

// Moved returns a copy of s anchored at (x, y).
func (s Shape) Moved(x, y float64) Shape {
	s.X, s.Y = x, y
	return s
}

type shapeJSON struct {
	ID          string    `json:"id"`
	Type        ShapeType `json:"type"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       *float64  `json:"width,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	Radius      *float64  `json:"radius,omitempty"`
	RadiusX     *float64  `json:"radiusX,omitempty"`
	RadiusY     *float64  `json:"radiusY,omitempty"`
	Text        *string   `json:"text,omitempty"`
	Stroke      string    `json:"stroke,omitempty"`
	Fill        string    `json:"fill,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	Rotation    float64   `json:"rotation"`
}

func ptr[T any](v T) *T { return &v }

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (s Shape) MarshalJSON() ([]byte, error) {
	out := shapeJSON{
		ID:          s.ID,
		Type:        s.Type(),
		X:           s.X,
		Y:           s.Y,
		Stroke:      s.Style.Stroke,
		Fill:        s.Style.Fill,
		StrokeWidth: s.Style.StrokeWidth,
		Rotation:    s.Rotation,
	}

	switch g := s.Geometry.(type) {
	case Rectangle:
		out.Width, out.Height = ptr(g.Width), ptr(g.Height)
	case Triangle:
		out.Width, out.Height = ptr(g.Width), ptr(g.Height)
	case Arrow:
		out.Width, out.Height = ptr(g.Width), ptr(g.Height)
	case Circle:
		out.Radius = ptr(g.Radius)
	case Ellipse:
		out.RadiusX, out.RadiusY = ptr(g.RadiusX), ptr(g.RadiusY)
	case Text:
		out.Text = ptr(g.Content)
	default:
		return nil, fmt.Errorf("marshal shape %q: %w", s.ID, ErrUnknownShapeType)
	}

	return json.Marshal(out)
}

func (s *Shape) UnmarshalJSON(data []byte) error {
	var in shapeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var g Geometry
	switch in.Type {
	case ShapeRectangle:
		g = Rectangle{Width: deref(in.Width), Height: deref(in.Height)}
	case ShapeTriangle:
		g = Triangle{Width: deref(in.Width), Height: deref(in.Height)}
	case ShapeArrow:
		g = Arrow{Width: deref(in.Width), Height: deref(in.Height)}
	case ShapeCircle:
		g = Circle{Radius: deref(in.Radius)}
	case ShapeEllipse:
		g = Ellipse{RadiusX: deref(in.RadiusX), RadiusY: deref(in.RadiusY)}
	case ShapeText:
		g = Text{Content: deref(in.Text)}
	default:
		return fmt.Errorf("shape %q: %w %q", in.ID, ErrUnknownShapeType, in.Type)
	}

	*s = Shape{
		ID:       in.ID,
		X:        in.X,
		Y:        in.Y,
		Geometry: g,
		Style:    Style{Stroke: in.Stroke, Fill: in.Fill, StrokeWidth: in.StrokeWidth},
		Rotation: in.Rotation,
	}
	return nil
}
