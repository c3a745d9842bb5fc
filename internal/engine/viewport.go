package engine

import (
	"math"

	"github.com/sketchcode/sketchcode/internal/geometry"
)

const (
	MinZoom     = 100.0
	MaxZoom     = 300.0
	DefaultZoom = 100.0
	// ZoomStep is the keyboard zoom increment, WheelZoomStep the scroll one.
	ZoomStep      = 10.0
	WheelZoomStep = 5.0

	GridSize = 20.0

	// Containers smaller than this are measured as this size.
	minContainerSize = 200.0
	// Canvas extent grows with zoom so there is room to pan.
	canvasOverscan = 1.5
)

// ZoomPresets are the discrete zoom levels offered to the user. Levels outside
// [MinZoom, MaxZoom] are clamped when applied.
var ZoomPresets = []float64{25, 50, 75, 100, 125, 150, 200, 300}

// Viewport maps between surface coordinates (pointer position relative to the
// drawing surface's origin) and scene coordinates.
type Viewport struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`

	Grid bool `json:"grid"`
	Snap bool `json:"snap"`

	ContainerWidth  float64 `json:"containerWidth"`
	ContainerHeight float64 `json:"containerHeight"`

	// OriginX and OriginY locate the surface on the host screen.
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`
}

func NewViewport() Viewport {
	return Viewport{
		Zoom:            DefaultZoom,
		Grid:            true,
		ContainerWidth:  800,
		ContainerHeight: 600,
	}
}

// Scale is the zoom as a multiplier.
func (v Viewport) Scale() float64 { return v.Zoom / 100 }

// Matrix maps scene coordinates to surface coordinates.
func (v Viewport) Matrix() geometry.Matrix2D {
	s := v.Scale()
	return geometry.Translate(v.PanX, v.PanY).Multiply(geometry.Scale(s, s))
}

// SurfaceToScene converts a surface position to scene space without snapping.
func (v Viewport) SurfaceToScene(p geometry.Point) geometry.Point {
	s := v.Scale()
	return geometry.Point{X: (p.X - v.PanX) / s, Y: (p.Y - v.PanY) / s}
}

// PointerToScene converts a raw pointer position to scene space, snapping to
// the grid when both snap and grid are on.
func (v Viewport) PointerToScene(p geometry.Point) geometry.Point {
	out := v.SurfaceToScene(p)
	if v.Snap && v.Grid {
		out.X = snap(out.X)
		out.Y = snap(out.Y)
	}
	return out
}

// SceneToSurface is the inverse of SurfaceToScene.
func (v Viewport) SceneToSurface(p geometry.Point) geometry.Point {
	x, y := v.Matrix().TransformPoint(p.X, p.Y)
	return geometry.Point{X: x, Y: y}
}

// SceneToScreen places a scene point on the host screen, for overlays such as
// the text entry box.
func (v Viewport) SceneToScreen(p geometry.Point) geometry.Point {
	s := v.SceneToSurface(p)
	return geometry.Point{X: s.X + v.OriginX, Y: s.Y + v.OriginY}
}

func snap(v float64) float64 {
	return math.Round(v/GridSize) * GridSize
}

// CanvasSize is the drawable extent for the current container and zoom.
func (v Viewport) CanvasSize() (float64, float64) {
	cw := max(minContainerSize, math.Floor(v.ContainerWidth))
	ch := max(minContainerSize, math.Floor(v.ContainerHeight))
	s := v.Scale()
	return max(cw, math.Floor(cw*s*canvasOverscan)), max(ch, math.Floor(ch*s*canvasOverscan))
}

// WithZoom clamps z into range. Zoom changes leave the pan offset alone,
// except that returning to 100% re-centers the surface.
func (v Viewport) WithZoom(z float64) Viewport {
	v.Zoom = min(MaxZoom, max(MinZoom, z))
	if v.Zoom == DefaultZoom {
		v.PanX, v.PanY = 0, 0
	}
	return v.clampPan()
}

// WithPan moves the surface, kept within the canvas extent.
func (v Viewport) WithPan(x, y float64) Viewport {
	v.PanX, v.PanY = x, y
	return v.clampPan()
}

// WithContainer records a new container size.
func (v Viewport) WithContainer(w, h float64) Viewport {
	v.ContainerWidth, v.ContainerHeight = w, h
	return v.clampPan()
}

func (v Viewport) clampPan() Viewport {
	w, h := v.CanvasSize()
	s := v.Scale()
	cw := max(minContainerSize, math.Floor(v.ContainerWidth))
	ch := max(minContainerSize, math.Floor(v.ContainerHeight))
	v.PanX = min(0, max(cw-w*s, v.PanX))
	v.PanY = min(0, max(ch-h*s, v.PanY))
	return v
}
