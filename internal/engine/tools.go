package engine

import (
	"fmt"
	"math"

	"github.com/sketchcode/sketchcode/internal/document"
)

type Tool string

const (
	ToolSelect    Tool = "select"
	ToolHand      Tool = "hand"
	ToolPen       Tool = "pen"
	ToolShape     Tool = "shape"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolEllipse   Tool = "ellipse"
	ToolTriangle  Tool = "triangle"
	ToolArrow     Tool = "arrow"
	ToolText      Tool = "text"
	ToolErase     Tool = "erase"
	ToolBin       Tool = "bin"
)

var allTools = []Tool{
	ToolSelect, ToolHand, ToolPen, ToolShape, ToolRectangle, ToolCircle,
	ToolEllipse, ToolTriangle, ToolArrow, ToolText, ToolErase, ToolBin,
}

func ParseTool(s string) (Tool, error) {
	for _, t := range allTools {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// ShapeType is the shape a drawing tool produces. ok is false for tools that
// do not draw shapes.
func (t Tool) ShapeType() (document.ShapeType, bool) {
	switch t {
	case ToolShape, ToolRectangle:
		return document.ShapeRectangle, true
	case ToolCircle:
		return document.ShapeCircle, true
	case ToolEllipse:
		return document.ShapeEllipse, true
	case ToolTriangle:
		return document.ShapeTriangle, true
	case ToolArrow:
		return document.ShapeArrow, true
	}
	return "", false
}

// draftGeometry sizes a draft shape from the drag vector (dx, dy) measured
// from the pointer-down position, which stays the anchor.
func draftGeometry(kind document.ShapeType, dx, dy float64) document.Geometry {
	switch kind {
	case document.ShapeCircle:
		return document.Circle{Radius: math.Hypot(dx, dy)}
	case document.ShapeEllipse:
		return document.Ellipse{RadiusX: math.Abs(dx), RadiusY: math.Abs(dy)}
	case document.ShapeTriangle:
		return document.Triangle{Width: dx, Height: dy}
	case document.ShapeArrow:
		return document.Arrow{Width: dx, Height: dy}
	default:
		return document.Rectangle{Width: dx, Height: dy}
	}
}

// ToolStyle is the paint applied to newly drawn elements.
type ToolStyle struct {
	StrokeColor string  `json:"strokeColor"`
	FillColor   string  `json:"fillColor"`
	StrokeWidth float64 `json:"strokeWidth"`
}

func DefaultToolStyle() ToolStyle {
	return ToolStyle{StrokeColor: "#000000", FillColor: "transparent", StrokeWidth: 5}
}

// EraseRadius is the eraser reach for the current stroke width.
func (s ToolStyle) EraseRadius() float64 { return s.StrokeWidth * 2 }
