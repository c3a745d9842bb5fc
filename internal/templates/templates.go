// Package templates serves the built-in catalogue of UI sketches that can be
// dropped onto the canvas.
package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sketchcode/sketchcode/internal/document"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

var ErrNotFound = errors.New("template not found")

type Category struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// Element is one primitive of a template. Type is a shape type or "line"
// for a freehand pen stroke.
type Element struct {
	Type   string    `yaml:"type" json:"type"`
	X      float64   `yaml:"x" json:"x,omitempty"`
	Y      float64   `yaml:"y" json:"y,omitempty"`
	Width  float64   `yaml:"width" json:"width,omitempty"`
	Height float64   `yaml:"height" json:"height,omitempty"`
	Radius float64   `yaml:"radius" json:"radius,omitempty"`
	Text   string    `yaml:"text" json:"text,omitempty"`
	Points []float64 `yaml:"points" json:"points,omitempty"`
}

type Template struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Category    string    `yaml:"category" json:"category"`
	Description string    `yaml:"description" json:"description"`
	Preview     string    `yaml:"preview" json:"preview"`
	Tags        []string  `yaml:"tags" json:"tags"`
	Elements    []Element `yaml:"elements" json:"elements"`
}

// Catalogue is an immutable, ordered set of templates.
type Catalogue struct {
	categories []Category
	templates  []Template
}

type catalogueFile struct {
	Categories []Category `yaml:"categories"`
	Templates  []Template `yaml:"templates"`
}

var builtin *Catalogue

func init() {
	c, err := Parse(catalogueYAML)
	if err != nil {
		panic(fmt.Sprintf("templates: embedded catalogue: %v", err))
	}
	builtin = c
}

// Builtin returns the embedded catalogue.
func Builtin() *Catalogue { return builtin }

// Parse decodes and validates a YAML catalogue.
func Parse(data []byte) (*Catalogue, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	known := make(map[string]bool, len(f.Categories))
	for _, c := range f.Categories {
		known[c.ID] = true
	}
	seen := make(map[string]bool, len(f.Templates))
	for i, t := range f.Templates {
		switch {
		case t.ID == "":
			return nil, fmt.Errorf("template %d: missing id", i)
		case seen[t.ID]:
			return nil, fmt.Errorf("template %s: duplicate id", t.ID)
		case !known[t.Category]:
			return nil, fmt.Errorf("template %s: unknown category %q", t.ID, t.Category)
		}
		seen[t.ID] = true
		for j, el := range t.Elements {
			if _, err := el.toScene(); err != nil {
				return nil, fmt.Errorf("template %s element %d: %w", t.ID, j, err)
			}
		}
	}
	return &Catalogue{categories: f.Categories, templates: f.Templates}, nil
}

func (c *Catalogue) Categories() []Category {
	return slices.Clone(c.categories)
}

func (c *Catalogue) All() []Template {
	return slices.Clone(c.templates)
}

func (c *Catalogue) ByCategory(category string) []Template {
	out := []Template{}
	for _, t := range c.templates {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Search matches query case-insensitively against name, description and tags.
// An empty query matches everything.
func (c *Catalogue) Search(query string) []Template {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Template{}
	for _, t := range c.templates {
		if q == "" || t.matches(q) {
			out = append(out, t)
		}
	}
	return out
}

func (c *Catalogue) Get(id string) (Template, error) {
	for _, t := range c.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (t Template) matches(q string) bool {
	if strings.Contains(strings.ToLower(t.Name), q) || strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Scene converts the template into a partial scene for insertion. Ids and
// styles are left empty so the editor fills them in.
func (t Template) Scene() document.Scene {
	s := document.NewScene(document.DefaultWidth, document.DefaultHeight)
	for _, el := range t.Elements {
		part, _ := el.toScene()
		s.Strokes = append(s.Strokes, part.Strokes...)
		s.Shapes = append(s.Shapes, part.Shapes...)
	}
	return s
}

func (el Element) toScene() (document.Scene, error) {
	var s document.Scene
	var g document.Geometry
	switch el.Type {
	case "line":
		if len(el.Points) < 2 || len(el.Points)%2 != 0 {
			return s, fmt.Errorf("line needs x, y pairs")
		}
		s.Strokes = []document.Stroke{{Tool: document.StrokePen, Points: slices.Clone(el.Points), Width: 2}}
		return s, nil
	case string(document.ShapeRectangle):
		g = document.Rectangle{Width: el.Width, Height: el.Height}
	case string(document.ShapeTriangle):
		g = document.Triangle{Width: el.Width, Height: el.Height}
	case string(document.ShapeArrow):
		g = document.Arrow{Width: el.Width, Height: el.Height}
	case string(document.ShapeCircle):
		g = document.Circle{Radius: el.Radius}
	case string(document.ShapeEllipse):
		g = document.Ellipse{RadiusX: el.Width / 2, RadiusY: el.Height / 2}
	case string(document.ShapeText):
		g = document.Text{Content: el.Text}
	default:
		return s, fmt.Errorf("unknown element type %q", el.Type)
	}
	s.Shapes = []document.Shape{{X: el.X, Y: el.Y, Geometry: g}}
	return s, nil
}
