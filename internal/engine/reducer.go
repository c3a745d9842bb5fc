package engine

import (
	"slices"

	"github.com/sketchcode/sketchcode/internal/document"
)

// State is everything an editing gesture can change: the scene and the
// selected shape id ("" for none).
type State struct {
	Scene     document.Scene
	Selection string
}

// Action is one scene mutation. Reduce never modifies the slices of its input
// state, so states already handed to history stay intact.
type Action interface {
	apply(State) State
}

type (
	AddStroke struct{ Stroke document.Stroke }
	// AppendPoint extends the stroke with the given id by one point.
	AppendPoint struct {
		StrokeID string
		X, Y     float64
	}
	AddShape struct{ Shape document.Shape }
	// UpdateShape replaces the shape with the same id.
	UpdateShape  struct{ Shape document.Shape }
	RemoveShape  struct{ ID string }
	RemoveStroke struct{ ID string }
	SetSelection struct{ ID string }
	ClearScene   struct{}
	// InsertElements appends strokes and shapes as given.
	InsertElements struct {
		Strokes []document.Stroke
		Shapes  []document.Shape
	}
)

// Reduce applies a to s and returns the new state.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

func (a AddStroke) apply(s State) State {
	s.Scene.Strokes = append(slices.Clip(s.Scene.Strokes), a.Stroke.Clone())
	return s
}

func (a AppendPoint) apply(s State) State {
	i := s.Scene.StrokeIndex(a.StrokeID)
	if i < 0 {
		return s
	}
	strokes := slices.Clone(s.Scene.Strokes)
	st := strokes[i]
	st.Points = append(slices.Clip(st.Points), a.X, a.Y)
	strokes[i] = st
	s.Scene.Strokes = strokes
	return s
}

func (a AddShape) apply(s State) State {
	if a.Shape.Degenerate() {
		return s
	}
	s.Scene.Shapes = append(slices.Clip(s.Scene.Shapes), a.Shape)
	return s
}

func (a UpdateShape) apply(s State) State {
	i := s.Scene.ShapeIndex(a.Shape.ID)
	if i < 0 {
		return s
	}
	shapes := slices.Clone(s.Scene.Shapes)
	shapes[i] = a.Shape
	s.Scene.Shapes = shapes
	return s
}

func (a RemoveShape) apply(s State) State {
	i := s.Scene.ShapeIndex(a.ID)
	if i < 0 {
		return s
	}
	s.Scene.Shapes = slices.Delete(slices.Clone(s.Scene.Shapes), i, i+1)
	if s.Selection == a.ID {
		s.Selection = ""
	}
	return s
}

func (a RemoveStroke) apply(s State) State {
	i := s.Scene.StrokeIndex(a.ID)
	if i < 0 {
		return s
	}
	s.Scene.Strokes = slices.Delete(slices.Clone(s.Scene.Strokes), i, i+1)
	return s
}

func (a SetSelection) apply(s State) State {
	if a.ID != "" && s.Scene.ShapeIndex(a.ID) < 0 {
		return s
	}
	s.Selection = a.ID
	return s
}

func (ClearScene) apply(s State) State {
	s.Scene.Strokes = []document.Stroke{}
	s.Scene.Shapes = []document.Shape{}
	s.Selection = ""
	return s
}

func (a InsertElements) apply(s State) State {
	strokes := slices.Clip(s.Scene.Strokes)
	for _, st := range a.Strokes {
		strokes = append(strokes, st.Clone())
	}
	shapes := slices.Clip(s.Scene.Shapes)
	for _, sh := range a.Shapes {
		if !sh.Degenerate() {
			shapes = append(shapes, sh)
		}
	}
	s.Scene.Strokes = strokes
	s.Scene.Shapes = shapes
	return s
}
