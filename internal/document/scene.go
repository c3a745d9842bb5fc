// Package document defines the scene model: freehand strokes, vector shapes
// and the canvas extent, plus their JSON form.
package document

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/sketchcode/sketchcode/internal/geometry"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Scene is the unit handed to persistence, export and code generation.
// Paint order is slice order. Scenes are values: operations return new
// scenes and never write into the slices of the receiver.
type Scene struct {
	Strokes []Stroke `json:"strokes"`
	Shapes  []Shape  `json:"shapes"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
}

func NewScene(width, height float64) Scene {
	return Scene{
		Strokes: []Stroke{},
		Shapes:  []Shape{},
		Width:   width,
		Height:  height,
	}
}

// Parse decodes scene JSON. Missing extents fall back to the defaults.
func Parse(data []byte) (Scene, error) {
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return Scene{}, fmt.Errorf("parse scene: %w", err)
	}
	if s.Strokes == nil {
		s.Strokes = []Stroke{}
	}
	if s.Shapes == nil {
		s.Shapes = []Shape{}
	}
	if s.Width <= 0 {
		s.Width = DefaultWidth
	}
	if s.Height <= 0 {
		s.Height = DefaultHeight
	}
	return s, nil
}

// MarshalJSON writes empty lists as [] rather than null.
func (s Scene) MarshalJSON() ([]byte, error) {
	type plain Scene
	if s.Strokes == nil {
		s.Strokes = []Stroke{}
	}
	if s.Shapes == nil {
		s.Shapes = []Shape{}
	}
	return json.Marshal(plain(s))
}

// Clone returns a deep copy.
func (s Scene) Clone() Scene {
	out := s
	out.Strokes = make([]Stroke, len(s.Strokes))
	for i, st := range s.Strokes {
		out.Strokes[i] = st.Clone()
	}
	out.Shapes = slices.Clone(s.Shapes)
	if out.Shapes == nil {
		out.Shapes = []Shape{}
	}
	return out
}

func (s Scene) IsEmpty() bool {
	return len(s.Strokes) == 0 && len(s.Shapes) == 0
}

func (s Scene) ShapeIndex(id string) int {
	return slices.IndexFunc(s.Shapes, func(sh Shape) bool { return sh.ID == id })
}

func (s Scene) StrokeIndex(id string) int {
	return slices.IndexFunc(s.Strokes, func(st Stroke) bool { return st.ID == id })
}

// Shape looks up a shape by id.
func (s Scene) Shape(id string) (Shape, bool) {
	if i := s.ShapeIndex(id); i >= 0 {
		return s.Shapes[i], true
	}
	return Shape{}, false
}

// ShapeAt returns the topmost shape whose hit test contains p.
func (s Scene) ShapeAt(p geometry.Point) (Shape, bool) {
	for i := len(s.Shapes) - 1; i >= 0; i-- {
		if s.Shapes[i].HitTest(p) {
			return s.Shapes[i], true
		}
	}
	return Shape{}, false
}

// StrokeAt returns the topmost stroke hit by p.
func (s Scene) StrokeAt(p geometry.Point) (Stroke, bool) {
	for i := len(s.Strokes) - 1; i >= 0; i-- {
		if s.Strokes[i].HitTest(p) {
			return s.Strokes[i], true
		}
	}
	return Stroke{}, false
}

// Bounds is the union of every element's bounds. ok is false for an empty scene.
func (s Scene) Bounds() (geometry.Rect, bool) {
	shapes, shapesOK := geometry.UnionBounds(s.Shapes)
	strokes, strokesOK := geometry.UnionBounds(s.Strokes)
	switch {
	case shapesOK && strokesOK:
		return shapes.Union(strokes), true
	case shapesOK:
		return shapes, true
	default:
		return strokes, strokesOK
	}
}
