package engine

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/typeid"
)

var ErrNoRasterizer = errors.New("no rasterizer configured")

// Controller is what the rest of the application holds to talk to a drawing
// surface: read the scene, replace parts of it, and sample it as an image.
type Controller interface {
	SceneSnapshot() document.Scene
	ClearScene()
	InsertIntoScene(partial document.Scene, label string) Insertion
	ExportRaster(mime string, quality float64) (string, error)

	Undo()
	Redo()
	SetTool(Tool)
	SetZoom(float64)
	ToggleGrid()
	ToggleSnap()
}

var _ Controller = (*Engine)(nil)

// Rasterizer turns draw commands into encoded image bytes. width and height
// are the scene extent; implementations pick their own pixel ratio.
type Rasterizer interface {
	Rasterize(commands []DrawCommand, width, height float64, mime string, quality float64) ([]byte, error)
}

// Insertion reports what InsertIntoScene added.
type Insertion struct {
	Label     string   `json:"label"`
	StrokeIDs []string `json:"strokeIds"`
	ShapeIDs  []string `json:"shapeIds"`
}

// SceneSnapshot is a deep copy of the live scene, sized to the canvas.
func (e *Engine) SceneSnapshot() document.Scene {
	s := e.state.Scene.Clone()
	s.Width, s.Height = e.view.CanvasSize()
	return s
}

// ClearScene empties strokes, shapes and selection. It is undoable.
func (e *Engine) ClearScene() {
	e.abandon()
	e.text = TextEntry{}
	e.dispatch(ClearScene{})
	e.commit()
}

// InsertIntoScene appends the strokes and shapes of partial as one undoable
// step. Missing ids are generated and missing shape styles default to the
// current stroke color, width 2 and a transparent fill. Degenerate shapes and
// empty strokes are skipped.
func (e *Engine) InsertIntoScene(partial document.Scene, label string) Insertion {
	ins := Insertion{Label: label, StrokeIDs: []string{}, ShapeIDs: []string{}}
	var act InsertElements

	for _, st := range partial.Strokes {
		if st.PointCount() == 0 {
			continue
		}
		st = st.Clone()
		if st.ID == "" {
			st.ID = typeid.NewStrokeID()
		}
		if st.Tool == "" {
			st.Tool = document.StrokePen
		}
		if st.Color == "" {
			st.Color = e.style.StrokeColor
		}
		act.Strokes = append(act.Strokes, st)
		ins.StrokeIDs = append(ins.StrokeIDs, st.ID)
	}

	def := document.Style{
		Stroke:      e.style.StrokeColor,
		Fill:        DefaultShapeFill,
		StrokeWidth: DefaultShapeWidth,
	}
	for _, sh := range partial.Shapes {
		if sh.Degenerate() {
			continue
		}
		if sh.ID == "" {
			sh.ID = typeid.NewShapeID()
		}
		sh.Style = sh.Style.WithDefaults(def)
		act.Shapes = append(act.Shapes, sh)
		ins.ShapeIDs = append(ins.ShapeIDs, sh.ID)
	}

	if len(act.Strokes) == 0 && len(act.Shapes) == 0 {
		return ins
	}
	e.finishGesture()
	e.dispatch(act)
	e.commit()
	return ins
}

// ExportRaster samples the scene as an image and returns it as a data URL.
// The selection is cleared while sampling so no handles end up in the image,
// then put back.
func (e *Engine) ExportRaster(mime string, quality float64) (string, error) {
	if e.rasterizer == nil {
		return "", ErrNoRasterizer
	}
	mime = normalizeMime(mime)

	sel := e.state.Selection
	e.state.Selection = ""
	defer func() { e.state.Selection = sel }()

	w, h := e.view.CanvasSize()
	scene := e.state.Scene
	scene.Width, scene.Height = w, h
	cmds := CompileDrawCommands(scene, RenderOptions{Grid: e.view.Grid})

	data, err := e.rasterizer.Rasterize(cmds, w, h, mime, quality)
	if err != nil {
		return "", fmt.Errorf("rasterize %s: %w", mime, err)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func normalizeMime(m string) string {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "image/jpeg", "image/jpg", "jpeg", "jpg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}
