package codegen

import (
	"math"
	"sort"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/geometry"
)

type ElementType string

const (
	ElementButton    ElementType = "button"
	ElementInput     ElementType = "input"
	ElementText      ElementType = "text"
	ElementContainer ElementType = "container"
)

type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Element struct {
	Type       ElementType `json:"type"`
	Bounds     Bounds      `json:"bounds"`
	Confidence int         `json:"confidence"`
	// Label is text written inside the element, if any.
	Label string `json:"label,omitempty"`
}

type detected struct {
	Element
	rect geometry.Rect
	text bool
}

// classify applies the size heuristic to a bounding box.
func classify(w, h float64) (ElementType, int) {
	aspect := w / h
	switch {
	case aspect > 2 && h < 50:
		return ElementInput, 85
	case aspect < 2 && aspect > 0.5 && w < 200 && h < 80:
		return ElementButton, 90
	case h < 30 && w > 100:
		return ElementText, 75
	}
	return ElementContainer, 80
}

func toBounds(r geometry.Rect) Bounds {
	return Bounds{
		X:      int(math.Round(r.X)),
		Y:      int(math.Round(r.Y)),
		Width:  int(math.Round(r.Width)),
		Height: int(math.Round(r.Height)),
	}
}

// Detect guesses UI elements from the strokes and shapes of a scene. Stroke
// boxes ignore pen width. Strokes with fewer than two points and erase strokes are skipped. A text shape
// inside a button or input becomes that element's label. The result is in
// reading order: top to bottom, then left to right.
func Detect(scene document.Scene) []Element {
	var found []detected

	for _, st := range scene.Strokes {
		if st.Tool == document.StrokeErase || st.PointCount() < 2 {
			continue
		}
		r := geometry.PolylineBounds(st.Points)
		typ, conf := classify(r.Width, r.Height)
		found = append(found, detected{Element: Element{Type: typ, Bounds: toBounds(r), Confidence: conf}, rect: r})
	}

	for _, sh := range scene.Shapes {
		if sh.Degenerate() {
			continue
		}
		r := sh.Bounds()
		if t, ok := sh.Geometry.(document.Text); ok {
			found = append(found, detected{
				Element: Element{Type: ElementText, Bounds: toBounds(r), Confidence: 95, Label: t.Content},
				rect:    r,
				text:    true,
			})
			continue
		}
		typ, conf := classify(r.Width, r.Height)
		found = append(found, detected{Element: Element{Type: typ, Bounds: toBounds(r), Confidence: conf}, rect: r})
	}

	found = attachLabels(found)

	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i].Bounds, found[j].Bounds
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	out := make([]Element, len(found))
	for i, d := range found {
		out[i] = d.Element
	}
	return out
}

// attachLabels folds each text element into the smallest unlabeled button or
// input containing its anchor.
func attachLabels(found []detected) []detected {
	consumed := make([]bool, len(found))
	for i, d := range found {
		if !d.text {
			continue
		}
		best := -1
		for j, c := range found {
			if c.text || c.Label != "" || (c.Type != ElementButton && c.Type != ElementInput) {
				continue
			}
			if !c.rect.Contains(d.rect.X, d.rect.Y) {
				continue
			}
			if best < 0 || c.rect.Width*c.rect.Height < found[best].rect.Width*found[best].rect.Height {
				best = j
			}
		}
		if best >= 0 {
			found[best].Label = d.Label
			consumed[i] = true
		}
	}

	out := found[:0:0]
	for i, d := range found {
		if !consumed[i] {
			out = append(out, d)
		}
	}
	return out
}
