package engine

import (
	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/geometry"
)

// Transform is the accumulated state of the manipulation widget attached to
// the selected shape: where it has been moved to, how far it has been scaled
// and its rotation in degrees.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Rotation float64 `json:"rotation"`
}

// TransformOf is the resting widget state for s.
func TransformOf(s document.Shape) Transform {
	return Transform{X: s.X, Y: s.Y, ScaleX: 1, ScaleY: 1, Rotation: s.Rotation}
}

// SelectAt hit-tests shapes topmost first. Strokes are not selectable.
func SelectAt(scene document.Scene, p geometry.Point) (string, bool) {
	s, ok := scene.ShapeAt(p)
	return s.ID, ok
}

// CommitDrag records the drop position of a dragged shape.
func CommitDrag(s document.Shape, x, y float64) document.Shape {
	return s.Moved(x, y)
}

// FoldTransform folds the widget's scale into the shape's own size fields and
// copies position and rotation. The returned widget state has its scale
// reset to 1 so the next manipulation starts from the folded size.
func FoldTransform(s document.Shape, t Transform) (document.Shape, Transform) {
	sx, sy := t.ScaleX, t.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	if s.Geometry != nil && (sx != 1 || sy != 1) {
		s.Geometry = s.Geometry.Scaled(sx, sy)
	}
	s.X, s.Y = t.X, t.Y
	s.Rotation = t.Rotation
	return s, TransformOf(s)
}

// Resizable reports whether handles are offered for s.
func Resizable(s document.Shape) bool {
	return s.Geometry != nil && s.Type() != document.ShapeText
}

// ResizeTransform turns a handle drag into widget state for s: the shape's
// bounds are resized with geometry.ResizeBounds and the result expressed as a
// scale plus a new anchor.
func ResizeTransform(s document.Shape, pos geometry.HandlePosition, delta geometry.Point) Transform {
	t := TransformOf(s)
	if !Resizable(s) {
		return t
	}

	orig := s.Bounds()
	nb := geometry.ResizeBounds(orig, pos, delta)
	if orig.Width > 0 {
		t.ScaleX = nb.Width / orig.Width
	}
	if orig.Height > 0 {
		t.ScaleY = nb.Height / orig.Height
	}

	switch g := s.Geometry.(type) {
	case document.Circle, document.Ellipse:
		t.X, t.Y = nb.Center()
	case document.Rectangle:
		t.X, t.Y = boxAnchor(nb, g.Width, g.Height)
	case document.Triangle:
		t.X, t.Y = boxAnchor(nb, g.Width, g.Height)
	case document.Arrow:
		t.X, t.Y = boxAnchor(nb, g.Width, g.Height)
	}
	// A flat arrow has nothing to scale along its flat axis.
	if orig.Width == 0 {
		t.X = s.X
	}
	if orig.Height == 0 {
		t.Y = s.Y
	}
	return t
}

// boxAnchor finds the anchor of a signed-extent box inside its resized bounds.
func boxAnchor(nb geometry.Rect, w, h float64) (float64, float64) {
	x, y := nb.X, nb.Y
	if w < 0 {
		x = nb.Right()
	}
	if h < 0 {
		y = nb.Bottom()
	}
	return x, y
}
