package engine

import (
	"strings"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/geometry"
	"github.com/sketchcode/sketchcode/internal/history"
	"github.com/sketchcode/sketchcode/internal/typeid"
)

// Engine is the drawing surface. It owns the scene, the selection, the
// viewport and the undo history, and interprets pointer and key events
// against the active tool.
//
// An Engine is not safe for concurrent use. Hosts deliver events from one
// goroutine (the browser event loop, or a session's run loop).
type Engine struct {
	state   State
	history *history.Store[document.Scene]
	view    Viewport
	tool    Tool
	style   ToolStyle

	g gesture
	// preview is the widget state of the selected shape while it is being
	// dragged, resized or transformed. nil at rest.
	preview *Transform
	text    TextEntry
	cursor  string

	spaceHeld bool

	commands   *CommandTable
	hooks      Hooks
	rasterizer Rasterizer
	maxHistory int
	revision   uint64
}

type gestureKind int

const (
	gestureIdle gestureKind = iota
	gestureDraw
	gestureDraft
	gestureErase
	gesturePan
	gestureDrag
	gestureResize
)

type gesture struct {
	kind gestureKind
	// origin is the scene position of the pointer-down.
	origin geometry.Point
	// surface and panX/panY record where a pan started.
	surface    geometry.Point
	panX, panY float64

	strokeID string
	draft    document.Shape
	target   document.Shape
	handle   geometry.HandlePosition
	changed  bool
}

// TextEntry is the inline text affordance. Scene is where the text will be
// placed, Screen where the host should float its input box.
type TextEntry struct {
	Open   bool           `json:"open"`
	Scene  geometry.Point `json:"scene"`
	Screen geometry.Point `json:"screen"`
	Value  string         `json:"value"`
}

// Hooks are host actions triggered from the keyboard. Nil hooks are skipped.
type Hooks struct {
	Save             func(document.Scene)
	ToggleShortcuts  func()
	ToggleProperties func()
	ToggleCode       func()
	// Commit runs after every history snapshot.
	Commit func(document.Scene)
}

type Option func(*Engine)

func WithMaxHistory(n int) Option {
	return func(e *Engine) { e.maxHistory = n }
}

func WithRasterizer(r Rasterizer) Option {
	return func(e *Engine) { e.rasterizer = r }
}

func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

func WithToolStyle(s ToolStyle) Option {
	return func(e *Engine) { e.style = s }
}

func WithViewport(v Viewport) Option {
	return func(e *Engine) { e.view = v.WithZoom(v.Zoom) }
}

// WithCommandTable shares a host's command table instead of a private one.
func WithCommandTable(t *CommandTable) Option {
	return func(e *Engine) { e.commands = t }
}

// New creates an engine with an empty scene and the select tool active.
func New(opts ...Option) *Engine {
	e := &Engine{
		view:       NewViewport(),
		tool:       ToolSelect,
		style:      DefaultToolStyle(),
		maxHistory: history.DefaultMaxHistory,
		cursor:     "default",
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.commands == nil {
		e.commands = NewCommandTable()
	}
	w, h := e.view.CanvasSize()
	e.state = State{Scene: document.NewScene(w, h)}
	e.history = history.New(e.state.Scene, e.maxHistory)
	return e
}

// Load replaces the scene and starts a fresh history from it.
func (e *Engine) Load(scene document.Scene) {
	e.abandon()
	e.text = TextEntry{}
	e.state = State{Scene: scene.Clone()}
	e.history.Reset(e.state.Scene)
	e.revision++
}

// --- Queries ---

func (e *Engine) Scene() document.Scene { return e.state.Scene }
func (e *Engine) Selection() string     { return e.state.Selection }
func (e *Engine) Tool() Tool            { return e.tool }
func (e *Engine) Style() ToolStyle      { return e.style }
func (e *Engine) Viewport() Viewport    { return e.view }
func (e *Engine) TextEntry() TextEntry  { return e.text }
func (e *Engine) CanUndo() bool         { return e.history.CanUndo() }
func (e *Engine) CanRedo() bool         { return e.history.CanRedo() }
func (e *Engine) Commands() *CommandTable {
	return e.commands
}

// Revision increases whenever the scene, selection or preview changes.
func (e *Engine) Revision() uint64 { return e.revision }

// Panning reports whether pointer gestures currently pan the surface.
func (e *Engine) Panning() bool { return e.spaceHeld || e.tool == ToolHand }

// Status is the host-facing summary of the engine's UI state.
type Status struct {
	Tool       Tool      `json:"tool"`
	Style      ToolStyle `json:"style"`
	Viewport   Viewport  `json:"viewport"`
	Selection  string    `json:"selection,omitempty"`
	CanUndo    bool      `json:"canUndo"`
	CanRedo    bool      `json:"canRedo"`
	Text       TextEntry `json:"text"`
	Panning    bool      `json:"panning"`
	Cursor     string    `json:"cursor"`
	HistoryLen int       `json:"historyLength"`
}

func (e *Engine) Status() Status {
	return Status{
		Tool:       e.tool,
		Style:      e.style,
		Viewport:   e.view,
		Selection:  e.state.Selection,
		CanUndo:    e.history.CanUndo(),
		CanRedo:    e.history.CanRedo(),
		Text:       e.text,
		Panning:    e.Panning(),
		Cursor:     e.cursor,
		HistoryLen: e.history.Len(),
	}
}

// --- Tool and style ---

// SetTool switches tools. Any gesture in flight is finished first and
// switching away from select clears the selection.
func (e *Engine) SetTool(t Tool) {
	e.finishGesture()
	if t != ToolSelect {
		e.deselect()
	}
	e.tool = t
	e.cursor = e.restingCursor()
}

func (e *Engine) SetStyle(s ToolStyle) {
	if s.StrokeWidth <= 0 {
		s.StrokeWidth = e.style.StrokeWidth
	}
	e.style = s
}

func (e *Engine) shapeStyle() document.Style {
	return document.Style{
		Stroke:      e.style.StrokeColor,
		Fill:        e.style.FillColor,
		StrokeWidth: e.style.StrokeWidth,
	}
}

// --- Viewport ---

func (e *Engine) SetZoom(z float64) {
	e.view = e.view.WithZoom(z)
	e.syncExtent()
}

func (e *Engine) ZoomIn()    { e.SetZoom(e.view.Zoom + ZoomStep) }
func (e *Engine) ZoomOut()   { e.SetZoom(e.view.Zoom - ZoomStep) }
func (e *Engine) ResetZoom() { e.SetZoom(DefaultZoom) }

// Wheel zooms by WheelZoomStep when the modifier is held and reports whether
// the event was used. Scrolling up zooms in.
func (e *Engine) Wheel(deltaY float64, mod bool) bool {
	if !mod || deltaY == 0 {
		return false
	}
	if deltaY < 0 {
		e.SetZoom(e.view.Zoom + WheelZoomStep)
	} else {
		e.SetZoom(e.view.Zoom - WheelZoomStep)
	}
	return true
}

func (e *Engine) SetPan(x, y float64) {
	e.view = e.view.WithPan(x, y)
	e.revision++
}

func (e *Engine) SetContainer(w, h float64) {
	e.view = e.view.WithContainer(w, h)
	e.syncExtent()
}

// SetOrigin records where the surface sits on the host screen.
func (e *Engine) SetOrigin(x, y float64) {
	e.view.OriginX, e.view.OriginY = x, y
	if e.text.Open {
		e.text.Screen = e.view.SceneToScreen(e.text.Scene)
	}
}

func (e *Engine) ToggleGrid() {
	e.view.Grid = !e.view.Grid
	e.revision++
}

func (e *Engine) ToggleSnap() { e.view.Snap = !e.view.Snap }

// syncExtent keeps the scene extent equal to the canvas size. The extent is
// presentation state and does not go through history.
func (e *Engine) syncExtent() {
	w, h := e.view.CanvasSize()
	e.state.Scene.Width, e.state.Scene.Height = w, h
	if e.text.Open {
		e.text.Screen = e.view.SceneToScreen(e.text.Scene)
	}
	e.revision++
}

// --- Pointer input ---

// PointerDown starts a gesture at p, given in surface coordinates.
func (e *Engine) PointerDown(p geometry.Point) {
	e.finishGesture()

	if e.Panning() {
		e.g = gesture{kind: gesturePan, surface: p, panX: e.view.PanX, panY: e.view.PanY}
		e.cursor = "grabbing"
		return
	}

	pos := e.view.PointerToScene(p)
	switch e.tool {
	case ToolPen:
		id := typeid.NewStrokeID()
		e.dispatch(AddStroke{Stroke: document.Stroke{
			ID:     id,
			Tool:   document.StrokePen,
			Points: []float64{pos.X, pos.Y},
			Color:  e.style.StrokeColor,
			Width:  e.style.StrokeWidth,
		}})
		e.g = gesture{kind: gestureDraw, origin: pos, strokeID: id, changed: true}
	case ToolErase:
		e.g = gesture{kind: gestureErase, origin: pos}
		e.eraseAt(pos)
	case ToolBin:
		e.deleteAt(pos)
	case ToolText:
		e.OpenText(pos)
	case ToolSelect:
		e.selectDown(p, pos)
	default:
		kind, ok := e.tool.ShapeType()
		if !ok {
			return
		}
		e.g = gesture{
			kind:   gestureDraft,
			origin: pos,
			draft: document.Shape{
				ID:       typeid.NewShapeID(),
				X:        pos.X,
				Y:        pos.Y,
				Geometry: draftGeometry(kind, 0, 0),
				Style:    e.shapeStyle(),
			},
		}
		e.revision++
	}
}

// PointerMove continues the current gesture. With no gesture it only updates
// the hover cursor.
func (e *Engine) PointerMove(p geometry.Point) {
	switch e.g.kind {
	case gestureIdle:
		e.cursor = e.hoverCursor(p)
	case gesturePan:
		e.view = e.view.WithPan(e.g.panX+p.X-e.g.surface.X, e.g.panY+p.Y-e.g.surface.Y)
		if e.text.Open {
			e.text.Screen = e.view.SceneToScreen(e.text.Scene)
		}
		e.revision++
	case gestureDraw:
		pos := e.view.PointerToScene(p)
		e.dispatch(AppendPoint{StrokeID: e.g.strokeID, X: pos.X, Y: pos.Y})
	case gestureErase:
		e.eraseAt(e.view.PointerToScene(p))
	case gestureDraft:
		pos := e.view.PointerToScene(p)
		kind := e.g.draft.Type()
		e.g.draft.Geometry = draftGeometry(kind, pos.X-e.g.origin.X, pos.Y-e.g.origin.Y)
		e.revision++
	case gestureDrag:
		pos := e.view.PointerToScene(p)
		t := TransformOf(e.g.target)
		t.X += pos.X - e.g.origin.X
		t.Y += pos.Y - e.g.origin.Y
		e.preview = &t
		e.revision++
	case gestureResize:
		pos := e.view.PointerToScene(p)
		delta := geometry.Point{X: pos.X - e.g.origin.X, Y: pos.Y - e.g.origin.Y}
		t := ResizeTransform(e.g.target, e.g.handle, delta)
		e.preview = &t
		e.revision++
	}
}

// PointerUp completes the gesture and records one history snapshot if it
// changed the scene.
func (e *Engine) PointerUp() { e.finishGesture() }

// PointerLeave completes the gesture exactly like PointerUp so no draft is
// left behind.
func (e *Engine) PointerLeave() { e.finishGesture() }

func (e *Engine) finishGesture() {
	g := e.g
	e.g = gesture{}
	switch g.kind {
	case gestureIdle:
		return
	case gesturePan:
		e.cursor = e.restingCursor()
	case gestureDraw, gestureErase:
		if g.changed {
			e.commit()
		}
	case gestureDraft:
		e.revision++
		if g.draft.Degenerate() {
			return
		}
		e.dispatch(AddShape{Shape: g.draft})
		e.commit()
	case gestureDrag:
		p := e.preview
		e.preview = nil
		e.revision++
		if p == nil || (p.X == g.target.X && p.Y == g.target.Y) {
			return
		}
		e.dispatch(UpdateShape{Shape: CommitDrag(g.target, p.X, p.Y)})
		e.commit()
	case gestureResize:
		p := e.preview
		e.preview = nil
		e.revision++
		if p == nil || (p.ScaleX == 1 && p.ScaleY == 1 && p.X == g.target.X && p.Y == g.target.Y) {
			return
		}
		folded, _ := FoldTransform(g.target, *p)
		e.dispatch(UpdateShape{Shape: folded})
		e.commit()
	}
}

// abandon drops the gesture in flight without committing it.
func (e *Engine) abandon() {
	e.g = gesture{}
	e.preview = nil
}

func (e *Engine) selectDown(surface, pos geometry.Point) {
	if sel, ok := e.state.Scene.Shape(e.state.Selection); ok && Resizable(sel) {
		b := e.view.Matrix().TransformRect(sel.Bounds())
		if h, hit := geometry.HandleAtPoint(surface, geometry.ResizeHandles(b)); hit {
			e.g = gesture{kind: gestureResize, origin: pos, target: sel, handle: h.Position}
			return
		}
	}

	id, ok := SelectAt(e.state.Scene, pos)
	if !ok {
		e.deselect()
		return
	}
	e.setSelection(id)
	target, _ := e.state.Scene.Shape(id)
	e.g = gesture{kind: gestureDrag, origin: pos, target: target}
	e.cursor = "move"
}

func (e *Engine) eraseAt(pos geometry.Point) {
	r := e.style.EraseRadius()
	for _, st := range e.state.Scene.Strokes {
		if st.WithinRadius(pos, r) {
			e.dispatch(RemoveStroke{ID: st.ID})
			e.g.changed = true
		}
	}
}

// deleteAt removes the topmost shape under pos, or failing that the topmost
// stroke. It is a single-click gesture and commits immediately.
func (e *Engine) deleteAt(pos geometry.Point) {
	if sh, ok := e.state.Scene.ShapeAt(pos); ok {
		e.dispatch(RemoveShape{ID: sh.ID})
		e.commit()
		return
	}
	if st, ok := e.state.Scene.StrokeAt(pos); ok {
		e.dispatch(RemoveStroke{ID: st.ID})
		e.commit()
	}
}

func (e *Engine) hoverCursor(p geometry.Point) string {
	if e.tool == ToolSelect {
		if sel, ok := e.state.Scene.Shape(e.state.Selection); ok && Resizable(sel) {
			b := e.view.Matrix().TransformRect(sel.Bounds())
			if h, hit := geometry.HandleAtPoint(p, geometry.ResizeHandles(b)); hit {
				return h.Cursor
			}
		}
		if _, ok := e.state.Scene.ShapeAt(e.view.SurfaceToScene(p)); ok {
			return "move"
		}
	}
	return e.restingCursor()
}

func (e *Engine) restingCursor() string {
	if e.Panning() {
		return "grab"
	}
	switch e.tool {
	case ToolSelect:
		return "default"
	case ToolText:
		return "text"
	case ToolBin:
		return "pointer"
	default:
		return "crosshair"
	}
}

// --- Keyboard ---

// KeyDown routes a key press. Space enters pan mode, everything else goes to
// the command table. It reports whether the key was consumed.
func (e *Engine) KeyDown(ev KeyEvent) bool {
	if isSpace(ev.Key) {
		if ev.InTextInput {
			return false
		}
		if !e.spaceHeld {
			e.finishGesture()
			e.spaceHeld = true
			e.cursor = "grab"
		}
		return true
	}
	return e.commands.Dispatch(ev)
}

// KeyUp leaves pan mode when space is released. At 100% zoom the pan offset
// is reset.
func (e *Engine) KeyUp(ev KeyEvent) {
	if !isSpace(ev.Key) || !e.spaceHeld {
		return
	}
	if e.g.kind == gesturePan {
		e.finishGesture()
	}
	e.spaceHeld = false
	if e.view.Zoom == DefaultZoom {
		e.view = e.view.WithPan(0, 0)
		e.revision++
	}
	e.cursor = e.restingCursor()
}

func isSpace(key string) bool {
	return key == " " || strings.EqualFold(key, "space") || strings.EqualFold(key, "spacebar")
}

// Activate binds the editor's shortcuts on the command table and returns the
// function that removes them again.
func (e *Engine) Activate() (release func()) {
	return e.commands.Bind(e.DefaultCommands()...)
}

// DefaultCommands is the editor's shortcut table.
func (e *Engine) DefaultCommands() []Command {
	tool := func(t Tool) func() { return func() { e.SetTool(t) } }
	hook := func(fn func()) func() {
		return func() {
			if fn != nil {
				fn()
			}
		}
	}
	return []Command{
		{Chord: "v", Run: tool(ToolSelect)},
		{Chord: "h", Run: tool(ToolHand)},
		{Chord: "p", Run: tool(ToolPen)},
		{Chord: "r", Run: tool(ToolRectangle)},
		{Chord: "o", Run: tool(ToolCircle)},
		{Chord: "l", Run: tool(ToolEllipse)},
		{Chord: "g", Run: tool(ToolTriangle)},
		{Chord: "a", Run: tool(ToolArrow)},
		{Chord: "t", Run: tool(ToolText)},
		{Chord: "e", Run: tool(ToolErase)},
		{Chord: "x", Run: tool(ToolBin)},
		{Chord: "?", Run: hook(e.hooks.ToggleShortcuts)},

		{Chord: "mod+z", Run: e.Undo},
		{Chord: "mod+shift+z", Run: e.Redo},
		{Chord: "mod+y", Run: e.Redo},
		{Chord: "mod+=", Run: e.ZoomIn},
		{Chord: "mod++", Run: e.ZoomIn},
		{Chord: "mod+-", Run: e.ZoomOut},
		{Chord: "mod+0", Run: e.ResetZoom},
		{Chord: "mod+s", Run: e.save, InTextInput: true},
		{Chord: `mod+\`, Run: hook(e.hooks.ToggleProperties)},
		{Chord: "mod+`", Run: hook(e.hooks.ToggleCode)},

		{Chord: "delete", Run: e.DeleteSelection},
		{Chord: "backspace", Run: e.DeleteSelection},
		{Chord: "escape", Run: e.Escape, InTextInput: true},
	}
}

func (e *Engine) save() {
	if e.hooks.Save != nil {
		e.hooks.Save(e.SceneSnapshot())
	}
}

// DeleteSelection removes the selected shape.
func (e *Engine) DeleteSelection() {
	id := e.state.Selection
	if id == "" {
		return
	}
	e.finishGesture()
	e.dispatch(RemoveShape{ID: id})
	e.commit()
}

// Escape cancels an open text entry, otherwise clears the selection.
func (e *Engine) Escape() {
	if e.text.Open {
		e.CancelText()
		return
	}
	e.finishGesture()
	e.deselect()
}

// --- Text entry ---

// OpenText opens the text affordance at a scene position. A pending entry is
// committed first.
func (e *Engine) OpenText(pos geometry.Point) {
	if e.text.Open {
		e.CommitText()
	}
	e.text = TextEntry{Open: true, Scene: pos, Screen: e.view.SceneToScreen(pos)}
	e.revision++
}

func (e *Engine) SetTextValue(v string) {
	if e.text.Open {
		e.text.Value = v
	}
}

// CommitText places the entered text and closes the affordance. Blank
// entries are discarded.
func (e *Engine) CommitText() {
	if !e.text.Open {
		return
	}
	entry := e.text
	e.text = TextEntry{}
	e.revision++

	content := strings.TrimSpace(entry.Value)
	if content == "" {
		return
	}
	e.dispatch(AddShape{Shape: document.Shape{
		ID:       typeid.NewShapeID(),
		X:        entry.Scene.X,
		Y:        entry.Scene.Y,
		Geometry: document.Text{Content: content},
		Style: document.Style{
			Stroke:      e.style.StrokeColor,
			Fill:        e.style.StrokeColor,
			StrokeWidth: e.style.StrokeWidth,
		},
	}})
	e.commit()
}

func (e *Engine) CancelText() {
	if e.text.Open {
		e.text = TextEntry{}
		e.revision++
	}
}

// --- Selection and transform widget ---

// Select sets the selection to the topmost shape at a scene position, or
// clears it on a miss.
func (e *Engine) Select(pos geometry.Point) (string, bool) {
	id, ok := SelectAt(e.state.Scene, pos)
	if !ok {
		e.deselect()
		return "", false
	}
	e.setSelection(id)
	return id, true
}

func (e *Engine) setSelection(id string) {
	if e.state.Selection == id {
		return
	}
	e.preview = nil
	e.dispatch(SetSelection{ID: id})
}

func (e *Engine) deselect() {
	if e.state.Selection == "" {
		return
	}
	e.preview = nil
	e.dispatch(SetSelection{})
}

// SelectionTransform is the widget state of the selected shape.
func (e *Engine) SelectionTransform() (Transform, bool) {
	if e.preview != nil {
		return *e.preview, true
	}
	sh, ok := e.state.Scene.Shape(e.state.Selection)
	if !ok {
		return Transform{}, false
	}
	return TransformOf(sh), true
}

// SetSelectionTransform previews widget state for the selected shape, as a
// host-side transform widget reports it during a manipulation.
func (e *Engine) SetSelectionTransform(t Transform) {
	if e.state.Selection == "" {
		return
	}
	e.preview = &t
	e.revision++
}

// EndSelectionTransform folds the previewed widget state into the selected
// shape and resets the widget scale.
func (e *Engine) EndSelectionTransform() {
	p := e.preview
	e.preview = nil
	sh, ok := e.state.Scene.Shape(e.state.Selection)
	if p == nil || !ok {
		return
	}
	folded, _ := FoldTransform(sh, *p)
	e.dispatch(UpdateShape{Shape: folded})
	e.commit()
}

// RotateSelection sets the rotation of the selected shape in degrees.
func (e *Engine) RotateSelection(deg float64) {
	t, ok := e.SelectionTransform()
	if !ok {
		return
	}
	t.Rotation = deg
	e.SetSelectionTransform(t)
	e.EndSelectionTransform()
}

// previewed is the selected shape with any widget preview applied.
func (e *Engine) previewed() (document.Shape, bool) {
	sh, ok := e.state.Scene.Shape(e.state.Selection)
	if !ok {
		return document.Shape{}, false
	}
	if e.preview != nil {
		sh, _ = FoldTransform(sh, *e.preview)
	}
	return sh, true
}

// --- History ---

func (e *Engine) Undo() {
	e.finishGesture()
	if !e.history.CanUndo() {
		return
	}
	e.history.Undo()
	e.restore()
}

func (e *Engine) Redo() {
	e.finishGesture()
	if !e.history.CanRedo() {
		return
	}
	e.history.Redo()
	e.restore()
}

// restore loads the current history snapshot, keeping the live extent and
// dropping a selection whose shape no longer exists.
func (e *Engine) restore() {
	scene := e.history.State()
	scene.Width, scene.Height = e.state.Scene.Width, e.state.Scene.Height
	sel := e.state.Selection
	if scene.ShapeIndex(sel) < 0 {
		sel = ""
	}
	e.preview = nil
	e.state = State{Scene: scene, Selection: sel}
	e.revision++
}

func (e *Engine) dispatch(a Action) {
	e.state = Reduce(e.state, a)
	e.revision++
}

// commit records the live scene as one history snapshot. Reduce never
// writes into slices it was given, so the snapshot can share them.
func (e *Engine) commit() {
	e.history.Set(e.state.Scene)
	if e.hooks.Commit != nil {
		e.hooks.Commit(e.SceneSnapshot())
	}
}

// --- Rendering ---

// Frame compiles the live view: scene, draft, and selection chrome.
func (e *Engine) Frame() Frame {
	opts := RenderOptions{Grid: e.view.Grid, View: &e.view}
	if e.g.kind == gestureDraft {
		d := e.g.draft
		opts.Draft = &d
	}
	if sh, ok := e.previewed(); ok {
		opts.Selected = &sh
	}
	w, h := e.view.CanvasSize()
	return Frame{
		View:     e.view.Matrix().ToSlice(),
		Width:    w,
		Height:   h,
		Commands: CompileDrawCommands(e.state.Scene, opts),
	}
}
