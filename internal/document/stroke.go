package document

import (
	"slices"

	"github.com/sketchcode/sketchcode/internal/geometry"
)

type StrokeTool string

const (
	StrokePen StrokeTool = "pen"
	// StrokeErase marks composite-erase strokes. They render with a
	// destination-out blend and are otherwise ordinary strokes.
	StrokeErase StrokeTool = "erase"
)

// DefaultStrokeWidth stands in for a stroke saved without a width.
const DefaultStrokeWidth = 5.0

// Stroke is a freehand polyline. Points are flattened x, y pairs.
type Stroke struct {
	ID     string     `json:"id"`
	Tool   StrokeTool `json:"tool"`
	Points []float64  `json:"points"`
	Color  string     `json:"color,omitempty"`
	Width  float64    `json:"width,omitempty"`
}

// PointCount is the number of x, y pairs.
func (s Stroke) PointCount() int { return len(s.Points) / 2 }

func (s Stroke) EffectiveWidth() float64 {
	if s.Width <= 0 {
		return DefaultStrokeWidth
	}
	return s.Width
}

// Bounds is the box around the stroke's points, grown by half its width.
func (s Stroke) Bounds() geometry.Rect {
	r := geometry.PolylineBounds(s.Points)
	pad := s.EffectiveWidth() / 2
	return geometry.Rect{X: r.X - pad, Y: r.Y - pad, Width: r.Width + 2*pad, Height: r.Height + 2*pad}
}

// HitTest is the delete-tool test: within LineHitTolerance plus half the
// stroke width of any segment.
func (s Stroke) HitTest(p geometry.Point) bool {
	return geometry.PolylineHit(p, s.Points, s.EffectiveWidth(), geometry.LineHitTolerance)
}

// WithinRadius is the eraser test: any segment within radius of p.
func (s Stroke) WithinRadius(p geometry.Point, radius float64) bool {
	return geometry.PolylineHit(p, s.Points, 0, radius)
}

// Clone copies the point slice so the copy can be appended to independently.
func (s Stroke) Clone() Stroke {
	s.Points = slices.Clone(s.Points)
	return s
}
