package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/geometry"
)

func pt(x, y float64) geometry.Point { return geometry.Point{X: x, Y: y} }

func drag(e *Engine, points ...geometry.Point) {
	e.PointerDown(points[0])
	for _, p := range points[1:] {
		e.PointerMove(p)
	}
	e.PointerUp()
}

func rectShape(id string, x, y, w, h float64) document.Shape {
	return document.Shape{ID: id, X: x, Y: y, Geometry: document.Rectangle{Width: w, Height: h}}
}

func TestPenStroke(t *testing.T) {
	e := New()
	e.SetTool(ToolPen)
	drag(e, pt(0, 0), pt(10, 0), pt(10, 10))

	strokes := e.Scene().Strokes
	if len(strokes) != 1 {
		t.Fatalf("len(Strokes) = %d, want 1", len(strokes))
	}
	want := []float64{0, 0, 10, 0, 10, 10}
	got := strokes[0].Points
	if len(got) != len(want) {
		t.Fatalf("Points = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Points = %v, want %v", got, want)
		}
	}
	if strokes[0].Color != "#000000" || strokes[0].Width != 5 {
		t.Errorf("stroke style = %q/%v, want #000000/5", strokes[0].Color, strokes[0].Width)
	}
	if !strings.HasPrefix(strokes[0].ID, "stroke_") {
		t.Errorf("stroke id = %q, want stroke_ prefix", strokes[0].ID)
	}
	if got := e.history.Len(); got != 2 {
		t.Errorf("history.Len() = %d, want 2 (one snapshot per gesture)", got)
	}
}

func TestPenRespectsZoomAndSnap(t *testing.T) {
	e := New()
	e.SetTool(ToolPen)
	e.SetZoom(200)
	drag(e, pt(100, 60))
	if got := e.Scene().Strokes[0].Points; got[0] != 50 || got[1] != 30 {
		t.Fatalf("zoomed point = %v, want [50 30]", got)
	}

	e.ResetZoom()
	e.ToggleSnap()
	drag(e, pt(23, 38))
	if got := e.Scene().Strokes[1].Points; got[0] != 20 || got[1] != 40 {
		t.Fatalf("snapped point = %v, want [20 40]", got)
	}

	e.ToggleGrid()
	drag(e, pt(23, 38))
	if got := e.Scene().Strokes[2].Points; got[0] != 23 || got[1] != 38 {
		t.Fatalf("point with grid off = %v, want [23 38]", got)
	}
}

func TestRectangleDraft(t *testing.T) {
	e := New()
	e.SetTool(ToolRectangle)

	e.PointerDown(pt(10, 10))
	e.PointerMove(pt(110, 60))
	if len(e.Scene().Shapes) != 0 {
		t.Fatal("draft committed before pointer-up")
	}
	var sawDraft bool
	for _, c := range e.Frame().Commands {
		if c.Op == "path" && c.Stroke == "#000000" && len(c.Path) == 5 {
			sawDraft = true
		}
	}
	if !sawDraft {
		t.Error("Frame() does not draw the draft shape")
	}
	e.PointerUp()

	shapes := e.Scene().Shapes
	if len(shapes) != 1 {
		t.Fatalf("len(Shapes) = %d, want 1", len(shapes))
	}
	s := shapes[0]
	r, ok := s.Geometry.(document.Rectangle)
	if !ok {
		t.Fatalf("Geometry = %T, want Rectangle", s.Geometry)
	}
	if s.X != 10 || s.Y != 10 || r.Width != 100 || r.Height != 50 {
		t.Errorf("rect = (%v,%v %vx%v), want (10,10 100x50)", s.X, s.Y, r.Width, r.Height)
	}
}

func TestCircleAndEllipseDraft(t *testing.T) {
	e := New()
	e.SetTool(ToolCircle)
	drag(e, pt(100, 100), pt(103, 104))
	e.SetTool(ToolEllipse)
	drag(e, pt(200, 200), pt(170, 210))

	shapes := e.Scene().Shapes
	if c := shapes[0].Geometry.(document.Circle); c.Radius != 5 {
		t.Errorf("Radius = %v, want 5", c.Radius)
	}
	if el := shapes[1].Geometry.(document.Ellipse); el.RadiusX != 30 || el.RadiusY != 10 {
		t.Errorf("radii = %v,%v, want 30,10", el.RadiusX, el.RadiusY)
	}
	if shapes[1].X != 200 || shapes[1].Y != 200 {
		t.Errorf("ellipse center = %v,%v, want 200,200", shapes[1].X, shapes[1].Y)
	}
}

func TestDegenerateClickAddsNothing(t *testing.T) {
	for _, tool := range []Tool{ToolRectangle, ToolCircle, ToolEllipse, ToolTriangle, ToolArrow, ToolShape} {
		e := New()
		e.SetTool(tool)
		drag(e, pt(40, 40))
		if n := len(e.Scene().Shapes); n != 0 {
			t.Errorf("%s click: len(Shapes) = %d, want 0", tool, n)
		}
		if e.CanUndo() {
			t.Errorf("%s click pushed a history snapshot", tool)
		}
	}
}

func TestPointerLeaveCommitsDraft(t *testing.T) {
	e := New()
	e.SetTool(ToolTriangle)
	e.PointerDown(pt(0, 0))
	e.PointerMove(pt(50, 40))
	e.PointerLeave()

	if n := len(e.Scene().Shapes); n != 1 {
		t.Fatalf("len(Shapes) = %d, want 1", n)
	}
	e.PointerMove(pt(90, 90))
	if tri := e.Scene().Shapes[0].Geometry.(document.Triangle); tri.Width != 50 {
		t.Errorf("move after leave changed the shape: %+v", tri)
	}
}

func TestEraserRemovesWholeStroke(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Strokes = []document.Stroke{
		{ID: "a", Tool: document.StrokePen, Points: []float64{0, 50, 100, 50}, Width: 5},
		{ID: "b", Tool: document.StrokePen, Points: []float64{0, 200, 100, 200}, Width: 5},
	}
	e.Load(scene)
	e.SetTool(ToolErase)
	drag(e, pt(50, 50))

	strokes := e.Scene().Strokes
	if len(strokes) != 1 || strokes[0].ID != "b" {
		t.Fatalf("Strokes = %+v, want only b", strokes)
	}
	if !e.CanUndo() {
		t.Fatal("erase did not push a snapshot")
	}
	e.Undo()
	if n := len(e.Scene().Strokes); n != 2 {
		t.Errorf("after Undo() len(Strokes) = %d, want 2", n)
	}
}

func TestEraserSweep(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Strokes = []document.Stroke{
		{ID: "a", Points: []float64{0, 0, 0, 100}},
		{ID: "b", Points: []float64{200, 0, 200, 100}},
		{ID: "c", Points: []float64{400, 0, 400, 100}},
	}
	e.Load(scene)
	e.SetTool(ToolErase)
	// radius is 2 * stroke width = 10
	drag(e, pt(5, 50), pt(100, 50), pt(209, 50))

	strokes := e.Scene().Strokes
	if len(strokes) != 1 || strokes[0].ID != "c" {
		t.Fatalf("Strokes = %+v, want only c", strokes)
	}
	if got := e.history.Len(); got != 2 {
		t.Errorf("history.Len() = %d, want 2", got)
	}
}

func TestEraserMissIsNotAChange(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Strokes = []document.Stroke{{ID: "a", Points: []float64{0, 0, 100, 0}}}
	e.Load(scene)
	e.SetTool(ToolErase)
	drag(e, pt(50, 11))
	if len(e.Scene().Strokes) != 1 || e.CanUndo() {
		t.Fatal("eraser beyond its radius removed a stroke")
	}
}

func TestSelectAndDrag(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Shapes = []document.Shape{rectShape("r", 10, 10, 100, 50)}
	e.Load(scene)

	drag(e, pt(20, 20), pt(30, 35), pt(40, 50))

	if e.Selection() != "r" {
		t.Fatalf("Selection() = %q, want r", e.Selection())
	}
	s := e.Scene().Shapes[0]
	if s.X != 30 || s.Y != 40 {
		t.Errorf("position = %v,%v, want 30,40", s.X, s.Y)
	}
	if got := e.history.Len(); got != 2 {
		t.Errorf("history.Len() = %d, want 2", got)
	}

	// a click on empty scene deselects
	drag(e, pt(500, 500))
	if e.Selection() != "" {
		t.Errorf("Selection() = %q after clicking empty area, want empty", e.Selection())
	}
}

func TestSelectClickDoesNotSnapshot(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Shapes = []document.Shape{rectShape("r", 10, 10, 100, 50)}
	e.Load(scene)
	drag(e, pt(20, 20))
	if e.CanUndo() {
		t.Error("selecting a shape pushed a history snapshot")
	}
}

func TestSelectIgnoresStrokes(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Strokes = []document.Stroke{{ID: "s", Points: []float64{0, 0, 100, 100}}}
	e.Load(scene)
	drag(e, pt(50, 50))
	if e.Selection() != "" {
		t.Errorf("Selection() = %q, want empty", e.Selection())
	}
}

func TestResizeWithHandle(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Shapes = []document.Shape{rectShape("r", 100, 100, 100, 100)}
	e.Load(scene)

	drag(e, pt(150, 150))
	e.PointerMove(pt(200, 200))
	if got := e.Status().Cursor; got != "se-resize" {
		t.Errorf("hover cursor = %q, want se-resize", got)
	}
	drag(e, pt(200, 200), pt(250, 220))

	s := e.Scene().Shapes[0]
	r := s.Geometry.(document.Rectangle)
	if s.X != 100 || s.Y != 100 || r.Width != 150 || r.Height != 120 {
		t.Errorf("resized = (%v,%v %vx%v), want (100,100 150x120)", s.X, s.Y, r.Width, r.Height)
	}
	if tr, _ := e.SelectionTransform(); tr.ScaleX != 1 || tr.ScaleY != 1 {
		t.Errorf("widget scale = %v,%v after fold, want 1,1", tr.ScaleX, tr.ScaleY)
	}
}

func TestResizeFromLeftKeepsRightEdge(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Shapes = []document.Shape{rectShape("r", 100, 100, 100, 100)}
	e.Load(scene)

	drag(e, pt(150, 150))
	drag(e, pt(100, 150), pt(300, 150))

	s := e.Scene().Shapes[0]
	r := s.Geometry.(document.Rectangle)
	if r.Width != 10 || s.X+r.Width != 200 {
		t.Errorf("resized = x %v w %v, want right edge fixed at 200 with width 10", s.X, r.Width)
	}
}

func TestSelectionTransformFold(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Shapes = []document.Shape{{ID: "c", X: 50, Y: 50, Geometry: document.Circle{Radius: 10}}}
	e.Load(scene)
	e.Select(pt(50, 50))

	e.SetSelectionTransform(Transform{X: 60, Y: 70, ScaleX: 2, ScaleY: 3, Rotation: 45})
	e.EndSelectionTransform()

	s := e.Scene().Shapes[0]
	if c := s.Geometry.(document.Circle); c.Radius != 30 {
		t.Errorf("Radius = %v, want 30", c.Radius)
	}
	if s.X != 60 || s.Y != 70 || s.Rotation != 45 {
		t.Errorf("placement = %v,%v,%v, want 60,70,45", s.X, s.Y, s.Rotation)
	}
	tr, ok := e.SelectionTransform()
	if !ok || tr.ScaleX != 1 || tr.ScaleY != 1 {
		t.Errorf("SelectionTransform() = %+v, want unit scale", tr)
	}

	e.RotateSelection(90)
	if got := e.Scene().Shapes[0].Rotation; got != 90 {
		t.Errorf("Rotation = %v, want 90", got)
	}
}

func TestBinPrefersShapesThenStrokes(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Strokes = []document.Stroke{{ID: "s", Points: []float64{0, 50, 200, 50}}}
	scene.Shapes = []document.Shape{
		rectShape("under", 0, 0, 100, 100),
		rectShape("over", 40, 40, 20, 20),
	}
	e.Load(scene)
	e.SetTool(ToolBin)

	e.PointerDown(pt(50, 50))
	e.PointerUp()
	if ids := shapeIDs(e.Scene()); len(ids) != 1 || ids[0] != "under" {
		t.Fatalf("shapes = %v, want [under]", ids)
	}

	drag(e, pt(50, 50))
	drag(e, pt(50, 50))
	if len(e.Scene().Shapes) != 0 || len(e.Scene().Strokes) != 0 {
		t.Fatalf("scene not empty: %+v", e.Scene())
	}
	if got := e.history.Len(); got != 4 {
		t.Errorf("history.Len() = %d, want 4", got)
	}

	drag(e, pt(50, 50))
	if got := e.history.Len(); got != 4 {
		t.Errorf("miss pushed a snapshot: history.Len() = %d", got)
	}
}

func shapeIDs(s document.Scene) []string {
	var ids []string
	for _, sh := range s.Shapes {
		ids = append(ids, sh.ID)
	}
	return ids
}

func TestTextEntry(t *testing.T) {
	e := New()
	e.SetOrigin(10, 20)
	e.SetTool(ToolText)
	e.PointerDown(pt(100, 100))
	e.PointerUp()

	te := e.TextEntry()
	if !te.Open || te.Scene != pt(100, 100) || te.Screen != pt(110, 120) {
		t.Fatalf("TextEntry() = %+v", te)
	}
	e.SetTextValue("  Hello  ")
	e.CommitText()

	shapes := e.Scene().Shapes
	if len(shapes) != 1 {
		t.Fatalf("len(Shapes) = %d, want 1", len(shapes))
	}
	if txt := shapes[0].Geometry.(document.Text); txt.Content != "Hello" {
		t.Errorf("Content = %q, want Hello", txt.Content)
	}
	if shapes[0].Style.Fill != "#000000" {
		t.Errorf("Fill = %q, want stroke color", shapes[0].Style.Fill)
	}
	if e.TextEntry().Open {
		t.Error("affordance still open after commit")
	}
}

func TestTextEntryCancel(t *testing.T) {
	e := New()
	e.SetTool(ToolText)
	e.PointerDown(pt(10, 10))
	e.SetTextValue("draft")
	e.Escape()
	if e.TextEntry().Open || len(e.Scene().Shapes) != 0 {
		t.Fatal("Escape did not discard the text entry")
	}

	e.PointerDown(pt(10, 10))
	e.SetTextValue("   ")
	e.CommitText()
	if len(e.Scene().Shapes) != 0 || e.CanUndo() {
		t.Fatal("blank text was committed")
	}
}

func TestTextEntryReopenCommitsPending(t *testing.T) {
	e := New()
	e.SetTool(ToolText)
	e.PointerDown(pt(10, 10))
	e.SetTextValue("first")
	e.PointerDown(pt(200, 200))

	if n := len(e.Scene().Shapes); n != 1 {
		t.Fatalf("len(Shapes) = %d, want 1", n)
	}
	if te := e.TextEntry(); !te.Open || te.Scene != pt(200, 200) || te.Value != "" {
		t.Errorf("TextEntry() = %+v, want fresh entry at 200,200", te)
	}
}

func TestUndoRedoPerGesture(t *testing.T) {
	e := New()
	e.SetTool(ToolPen)
	drag(e, pt(0, 0), pt(10, 10), pt(20, 20))
	drag(e, pt(50, 0), pt(60, 10))

	e.Undo()
	if n := len(e.Scene().Strokes); n != 1 {
		t.Fatalf("after Undo() len(Strokes) = %d, want 1", n)
	}
	if got := e.Scene().Strokes[0].PointCount(); got != 3 {
		t.Errorf("first stroke has %d points, want 3", got)
	}
	e.Undo()
	if n := len(e.Scene().Strokes); n != 0 || e.CanUndo() {
		t.Fatalf("after second Undo() len(Strokes) = %d, CanUndo = %v", n, e.CanUndo())
	}
	e.Redo()
	e.Redo()
	if n := len(e.Scene().Strokes); n != 2 || e.CanRedo() {
		t.Fatalf("after Redo() x2 len(Strokes) = %d, CanRedo = %v", n, e.CanRedo())
	}
}

func TestUndoDropsStaleSelection(t *testing.T) {
	e := New()
	e.SetTool(ToolRectangle)
	drag(e, pt(0, 0), pt(50, 50))
	e.SetTool(ToolSelect)
	drag(e, pt(25, 25))
	if e.Selection() == "" {
		t.Fatal("shape not selected")
	}
	e.Undo()
	if e.Selection() != "" {
		t.Errorf("Selection() = %q after undoing its shape, want empty", e.Selection())
	}
}

func TestSetToolDeselects(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Shapes = []document.Shape{rectShape("r", 0, 0, 50, 50)}
	e.Load(scene)
	e.Select(pt(10, 10))
	e.SetTool(ToolSelect)
	if e.Selection() != "r" {
		t.Fatal("re-selecting the select tool dropped the selection")
	}
	e.SetTool(ToolPen)
	if e.Selection() != "" {
		t.Errorf("Selection() = %q, want empty", e.Selection())
	}
}

func TestDeleteAndEscapeKeys(t *testing.T) {
	e := New()
	release := e.Activate()
	defer release()

	scene := document.NewScene(800, 600)
	scene.Shapes = []document.Shape{rectShape("a", 0, 0, 50, 50), rectShape("b", 100, 0, 50, 50)}
	e.Load(scene)

	e.Select(pt(10, 10))
	if e.KeyDown(KeyEvent{Key: "Delete", InTextInput: true}) {
		t.Error("Delete fired inside a text input")
	}
	if !e.KeyDown(KeyEvent{Key: "Backspace"}) {
		t.Fatal("Backspace not handled")
	}
	if ids := shapeIDs(e.Scene()); len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("shapes = %v, want [b]", ids)
	}

	e.Select(pt(110, 10))
	e.KeyDown(KeyEvent{Key: "Escape"})
	if e.Selection() != "" {
		t.Errorf("Selection() = %q after Escape, want empty", e.Selection())
	}
}

func TestShortcuts(t *testing.T) {
	var saved, shortcuts int
	e := New(WithHooks(Hooks{
		Save:            func(document.Scene) { saved++ },
		ToggleShortcuts: func() { shortcuts++ },
	}))
	release := e.Activate()

	e.KeyDown(KeyEvent{Key: "r"})
	if e.Tool() != ToolRectangle {
		t.Fatalf("Tool() = %q, want rectangle", e.Tool())
	}
	e.KeyDown(KeyEvent{Key: "p", InTextInput: true})
	if e.Tool() != ToolRectangle {
		t.Error("tool key fired inside a text input")
	}
	e.KeyDown(KeyEvent{Key: "?", Shift: true})
	e.KeyDown(KeyEvent{Key: "s", Mod: true, InTextInput: true})
	if shortcuts != 1 || saved != 1 {
		t.Errorf("shortcuts = %d, saved = %d, want 1, 1", shortcuts, saved)
	}

	e.KeyDown(KeyEvent{Key: "=", Mod: true})
	if e.Viewport().Zoom != 110 {
		t.Errorf("Zoom = %v, want 110", e.Viewport().Zoom)
	}
	e.KeyDown(KeyEvent{Key: "0", Mod: true})
	if e.Viewport().Zoom != 100 {
		t.Errorf("Zoom = %v, want 100", e.Viewport().Zoom)
	}

	drag(e, pt(0, 0), pt(30, 30))
	e.KeyDown(KeyEvent{Key: "z", Mod: true})
	if len(e.Scene().Shapes) != 0 {
		t.Error("mod+z did not undo")
	}
	e.KeyDown(KeyEvent{Key: "Z", Mod: true, Shift: true})
	if len(e.Scene().Shapes) != 1 {
		t.Error("mod+shift+z did not redo")
	}

	release()
	if e.KeyDown(KeyEvent{Key: "v"}) {
		t.Error("binding still active after release")
	}
}

func TestSpacePan(t *testing.T) {
	e := New()
	e.SetTool(ToolPen)
	e.SetZoom(200)

	e.KeyDown(KeyEvent{Key: " "})
	drag(e, pt(100, 100), pt(50, 60))
	if n := len(e.Scene().Strokes); n != 0 {
		t.Fatalf("pen drew while space was held: %d strokes", n)
	}
	v := e.Viewport()
	if v.PanX != -50 || v.PanY != -40 {
		t.Errorf("pan = %v,%v, want -50,-40", v.PanX, v.PanY)
	}
	e.KeyUp(KeyEvent{Key: " "})
	if v := e.Viewport(); v.PanX != -50 {
		t.Errorf("pan reset at zoom 200: %v", v.PanX)
	}

	// pan is bounded by the canvas extent
	e.KeyDown(KeyEvent{Key: " "})
	drag(e, pt(0, 0), pt(5000, 5000))
	if v := e.Viewport(); v.PanX != 0 || v.PanY != 0 {
		t.Errorf("pan = %v,%v, want clamped to 0,0", v.PanX, v.PanY)
	}

	e.SetZoom(100)
	e.KeyUp(KeyEvent{Key: " "})
	if v := e.Viewport(); v.PanX != 0 || v.PanY != 0 {
		t.Errorf("pan = %v,%v after release at 100%%, want 0,0", v.PanX, v.PanY)
	}
	if e.CanUndo() {
		t.Error("panning pushed a history snapshot")
	}
}

func TestSpaceInTextInputIsIgnored(t *testing.T) {
	e := New()
	if e.KeyDown(KeyEvent{Key: " ", InTextInput: true}) {
		t.Fatal("space consumed inside a text input")
	}
	if e.Panning() {
		t.Fatal("pan mode entered while typing")
	}
}

func TestWheelZoom(t *testing.T) {
	e := New()
	if e.Wheel(-100, false) {
		t.Error("wheel without modifier zoomed")
	}
	e.Wheel(-100, true)
	e.Wheel(-100, true)
	if z := e.Viewport().Zoom; z != 110 {
		t.Errorf("Zoom = %v, want 110", z)
	}
	for i := 0; i < 10; i++ {
		e.Wheel(100, true)
	}
	if z := e.Viewport().Zoom; z != MinZoom {
		t.Errorf("Zoom = %v, want %v", z, MinZoom)
	}
}

func TestClearSceneIsUndoable(t *testing.T) {
	e := New()
	e.Load(document.NewSampleScene())
	before := len(e.Scene().Shapes)
	e.ClearScene()
	if !e.Scene().IsEmpty() {
		t.Fatal("ClearScene() left elements behind")
	}
	e.Undo()
	if got := len(e.Scene().Shapes); got != before {
		t.Errorf("after Undo() len(Shapes) = %d, want %d", got, before)
	}
}

func TestInsertIntoScene(t *testing.T) {
	e := New(WithToolStyle(ToolStyle{StrokeColor: "#ff0000", FillColor: "#00ff00", StrokeWidth: 3}))
	partial := document.Scene{
		Shapes: []document.Shape{
			{X: 10, Y: 10, Geometry: document.Rectangle{Width: 100, Height: 40}},
			{ID: "keep", X: 0, Y: 0, Geometry: document.Text{Content: "Sign in"}, Style: document.Style{Stroke: "#333333"}},
			{X: 5, Y: 5, Geometry: document.Rectangle{Width: 0, Height: 10}},
		},
		Strokes: []document.Stroke{
			{Points: []float64{0, 0, 10, 10}},
			{Points: nil},
		},
	}

	ins := e.InsertIntoScene(partial, "Login Form")
	if ins.Label != "Login Form" || len(ins.ShapeIDs) != 2 || len(ins.StrokeIDs) != 1 {
		t.Fatalf("Insertion = %+v", ins)
	}
	if ins.ShapeIDs[1] != "keep" {
		t.Errorf("existing id replaced: %v", ins.ShapeIDs)
	}

	shapes := e.Scene().Shapes
	if shapes[0].ID == "" {
		t.Error("missing id not generated")
	}
	want := document.Style{Stroke: "#ff0000", Fill: "transparent", StrokeWidth: 2}
	if shapes[0].Style != want {
		t.Errorf("default style = %+v, want %+v", shapes[0].Style, want)
	}
	if shapes[1].Style.Stroke != "#333333" {
		t.Errorf("explicit stroke overwritten: %+v", shapes[1].Style)
	}
	if got := e.history.Len(); got != 2 {
		t.Errorf("history.Len() = %d, want 2", got)
	}
	e.Undo()
	if !e.Scene().IsEmpty() {
		t.Error("insertion was not a single undo step")
	}

	if ins := e.InsertIntoScene(document.Scene{}, "empty"); len(ins.ShapeIDs) != 0 || e.CanRedo() == false {
		t.Errorf("empty insertion changed history: %+v", ins)
	}
}

type fakeRasterizer struct {
	sawSelection bool
	commands     []DrawCommand
	mime         string
	err          error
	engine       *Engine
}

func (f *fakeRasterizer) Rasterize(cmds []DrawCommand, w, h float64, mime string, quality float64) ([]byte, error) {
	f.commands = cmds
	f.mime = mime
	f.sawSelection = f.engine.Selection() != ""
	return []byte("img"), f.err
}

func TestExportRaster(t *testing.T) {
	r := &fakeRasterizer{}
	e := New(WithRasterizer(r))
	r.engine = e

	scene := document.NewScene(800, 600)
	scene.Shapes = []document.Shape{rectShape("r", 0, 0, 50, 50)}
	e.Load(scene)
	e.Select(pt(10, 10))

	url, err := e.ExportRaster("image/jpeg", 0.9)
	if err != nil {
		t.Fatalf("ExportRaster() error = %v", err)
	}
	if url != "data:image/jpeg;base64,aW1n" {
		t.Errorf("ExportRaster() = %q", url)
	}
	if r.sawSelection {
		t.Error("selection was set while sampling")
	}
	for _, c := range r.commands {
		if c.ObjectID == "selection" || strings.HasPrefix(c.ObjectID, "handle:") {
			t.Errorf("chrome command in export: %+v", c)
		}
	}
	if e.Selection() != "r" {
		t.Errorf("Selection() = %q after export, want r", e.Selection())
	}

	r.err = errors.New("boom")
	if _, err := e.ExportRaster("png", 1); err == nil {
		t.Error("ExportRaster() error = nil, want rasterizer error")
	}
	if e.Selection() != "r" {
		t.Error("selection not restored after a failed export")
	}
}

func TestExportRasterWithoutRasterizer(t *testing.T) {
	if _, err := New().ExportRaster("image/png", 1); !errors.Is(err, ErrNoRasterizer) {
		t.Fatalf("ExportRaster() error = %v, want ErrNoRasterizer", err)
	}
}

func TestSceneSnapshotIsDetached(t *testing.T) {
	e := New()
	e.SetTool(ToolPen)
	drag(e, pt(0, 0), pt(5, 5))
	snap := e.SceneSnapshot()
	snap.Strokes[0].Points[0] = 999
	if e.Scene().Strokes[0].Points[0] == 999 {
		t.Fatal("snapshot shares memory with the live scene")
	}
	if snap.Width != 1200 || snap.Height != 900 {
		t.Errorf("snapshot extent = %vx%v, want 1200x900", snap.Width, snap.Height)
	}
}

func TestCommitHook(t *testing.T) {
	var commits int
	e := New(WithHooks(Hooks{Commit: func(document.Scene) { commits++ }}))
	e.SetTool(ToolPen)
	drag(e, pt(0, 0), pt(5, 5))
	e.SetTool(ToolSelect)
	drag(e, pt(400, 400))
	if commits != 1 {
		t.Errorf("commits = %d, want 1", commits)
	}
}

func TestFrameChrome(t *testing.T) {
	e := New()
	scene := document.NewScene(800, 600)
	scene.Shapes = []document.Shape{rectShape("r", 0, 0, 50, 50)}
	e.Load(scene)
	e.Select(pt(10, 10))

	var handles int
	for _, c := range e.Frame().Commands {
		if strings.HasPrefix(c.ObjectID, "handle:") {
			handles++
			if !c.Screen {
				t.Errorf("handle %s not in screen space", c.ObjectID)
			}
		}
	}
	if handles != 8 {
		t.Errorf("handles = %d, want 8", handles)
	}
}
