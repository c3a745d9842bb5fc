package document

import "github.com/sketchcode/sketchcode/internal/typeid"

// NewSampleScene returns a small login-form sketch used by the playground and
// as a fixture for the renderers.
func NewSampleScene() Scene {
	ink := Style{Stroke: "#000000", Fill: "transparent", StrokeWidth: 2}

	s := NewScene(DefaultWidth, DefaultHeight)
	s.Shapes = []Shape{
		{ID: typeid.NewShapeID(), X: 200, Y: 100, Geometry: Rectangle{Width: 400, Height: 360}, Style: ink},
		{ID: typeid.NewShapeID(), X: 250, Y: 130, Geometry: Text{Content: "Sign in"}, Style: Style{Stroke: "#000000", Fill: "#000000", StrokeWidth: 2}},
		{ID: typeid.NewShapeID(), X: 250, Y: 190, Geometry: Rectangle{Width: 300, Height: 40}, Style: ink},
		{ID: typeid.NewShapeID(), X: 250, Y: 260, Geometry: Rectangle{Width: 300, Height: 40}, Style: ink},
		{ID: typeid.NewShapeID(), X: 330, Y: 340, Geometry: Rectangle{Width: 140, Height: 50}, Style: Style{Stroke: "#000000", Fill: "#3b82f6", StrokeWidth: 2}},
		{ID: typeid.NewShapeID(), X: 570, Y: 130, Geometry: Circle{Radius: 12}, Style: ink},
	}
	s.Strokes = []Stroke{
		{ID: typeid.NewStrokeID(), Tool: StrokePen, Points: []float64{260, 420, 300, 418, 340, 421, 380, 419}, Color: "#000000", Width: 3},
	}
	return s
}
