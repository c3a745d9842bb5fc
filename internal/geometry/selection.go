package geometry

import "slices"

// Bounded is anything with an axis-aligned bounding box.
type Bounded interface {
	Bounds() Rect
}

// UnionBounds returns the minimal box covering every element. ok is false for
// an empty input.
func UnionBounds[E Bounded](elements []E) (r Rect, ok bool) {
	for i, el := range elements {
		if i == 0 {
			r = el.Bounds()
			continue
		}
		r = r.Union(el.Bounds())
	}
	return r, len(elements) > 0
}

// ElementsInRectangle returns the elements whose bounds overlap rect.
func ElementsInRectangle[E Bounded](elements []E, rect Rect) []E {
	var out []E
	for _, el := range elements {
		if el.Bounds().Intersects(rect) {
			out = append(out, el)
		}
	}
	return out
}

// SelectMultiple toggles id in current when additive is set, otherwise
// replaces the selection with id alone. current is never modified.
func SelectMultiple(current []string, id string, additive bool) []string {
	if !additive {
		return []string{id}
	}
	if i := slices.Index(current, id); i >= 0 {
		return slices.Delete(slices.Clone(current), i, i+1)
	}
	return append(slices.Clone(current), id)
}
