package engine

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/geometry"
)

// PathCommand is one path verb followed by its coordinates, for example
// {"M", 0.0, 0.0} or {"C", x1, y1, x2, y2, x, y}. "Z" closes the subpath.
type PathCommand []interface{}

// DrawCommand represents a single drawing operation for the host to execute
// on a Canvas2D-like context. Coordinates are scene space unless Screen is
// set, in which case the view transform must not be applied.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "path", "text", "save", "restore"
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Opacity     float64       `json:"opacity,omitempty"`     // Global alpha
	LineCap     string        `json:"lineCap,omitempty"`
	LineJoin    string        `json:"lineJoin,omitempty"`
	Dash        []float64     `json:"dash,omitempty"`
	Composite   string        `json:"composite,omitempty"` // globalCompositeOperation
	Text        string        `json:"text,omitempty"`
	FontSize    float64       `json:"fontSize,omitempty"`
	FontFamily  string        `json:"fontFamily,omitempty"`
	Screen      bool          `json:"screen,omitempty"`
}

// Frame is a compiled view: the scene-to-surface matrix plus commands.
type Frame struct {
	View     []float64     `json:"view"`
	Width    float64       `json:"width"`
	Height   float64       `json:"height"`
	Commands []DrawCommand `json:"commands"`
}

const (
	GridColor = "rgba(46, 46, 46, 0.3)"

	FontSize   = 16.0
	FontFamily = "Inter, sans-serif"

	// SelectionColor outlines the selected shape and its handles.
	SelectionColor = "#00a1ff"

	DefaultShapeStroke = "#000000"
	DefaultShapeFill   = "transparent"
	DefaultShapeWidth  = 2.0

	arrowPointerLength = 10.0
	arrowPointerWidth  = 10.0

	// bezier approximation of a quarter circle, 4 * (sqrt(2) - 1) / 3
	kappa = 0.5522847498
)

var defaultShapeStyle = document.Style{
	Stroke:      DefaultShapeStroke,
	Fill:        DefaultShapeFill,
	StrokeWidth: DefaultShapeWidth,
}

// RenderOptions selects what goes into a command list besides the scene.
type RenderOptions struct {
	Grid bool
	// Draft is the in-progress shape of a drawing gesture.
	Draft *document.Shape
	// Selected is the selected shape as currently previewed, outlined with
	// handles when View is non-nil.
	Selected *document.Shape
	// View places the handles, which keep a fixed on-screen size.
	View *Viewport
}

// CompileDrawCommands generates a draw command buffer for scene.
// Commands are in painter's order (back to front): grid, strokes, shapes,
// the draft shape, then selection chrome.
func CompileDrawCommands(scene document.Scene, opts RenderOptions) []DrawCommand {
	var commands []DrawCommand
	if opts.Grid {
		commands = append(commands, gridCommand(scene.Width, scene.Height))
	}
	for _, st := range scene.Strokes {
		if cmd, ok := strokeCommand(st); ok {
			commands = append(commands, cmd)
		}
	}
	for _, sh := range scene.Shapes {
		if opts.Selected != nil && sh.ID == opts.Selected.ID {
			sh = *opts.Selected
		}
		commands = append(commands, shapeCommands(sh)...)
	}
	if opts.Draft != nil && opts.Draft.Geometry != nil {
		commands = append(commands, shapeCommands(*opts.Draft)...)
	}
	if opts.Selected != nil && opts.View != nil {
		commands = append(commands, selectionChrome(*opts.Selected, *opts.View)...)
	}
	return commands
}

func gridCommand(w, h float64) DrawCommand {
	var path []PathCommand
	for x := 0.0; x <= w; x += GridSize {
		path = append(path, PathCommand{"M", x, 0.0}, PathCommand{"L", x, h})
	}
	for y := 0.0; y <= h; y += GridSize {
		path = append(path, PathCommand{"M", 0.0, y}, PathCommand{"L", w, y})
	}
	return DrawCommand{
		Op:          "path",
		ObjectID:    "grid",
		Path:        path,
		Stroke:      GridColor,
		StrokeWidth: 1,
	}
}

func strokeCommand(st document.Stroke) (DrawCommand, bool) {
	n := st.PointCount()
	if n == 0 {
		return DrawCommand{}, false
	}
	path := make([]PathCommand, 0, n+1)
	path = append(path, PathCommand{"M", st.Points[0], st.Points[1]})
	if n == 1 {
		// a dot still needs a segment for the round cap to show
		path = append(path, PathCommand{"L", st.Points[0], st.Points[1]})
	}
	for i := 1; i < n; i++ {
		path = append(path, PathCommand{"L", st.Points[2*i], st.Points[2*i+1]})
	}
	cmd := DrawCommand{
		Op:          "path",
		ObjectID:    st.ID,
		Path:        path,
		Stroke:      orDefault(st.Color, DefaultShapeStroke),
		StrokeWidth: st.EffectiveWidth(),
		LineCap:     "round",
		LineJoin:    "round",
	}
	if st.Tool == document.StrokeErase {
		cmd.Composite = "destination-out"
	}
	return cmd, true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// shapeCommands emits the commands for one shape in its local frame.
func shapeCommands(sh document.Shape) []DrawCommand {
	style := sh.Style.WithDefaults(defaultShapeStyle)
	base := DrawCommand{
		Op:          "path",
		ObjectID:    sh.ID,
		Transform:   geometry.Placement(sh.X, sh.Y, sh.Rotation).ToSlice(),
		Fill:        paintOrEmpty(style.Fill),
		Stroke:      style.Stroke,
		StrokeWidth: style.StrokeWidth,
	}

	switch g := sh.Geometry.(type) {
	case document.Rectangle:
		base.Path = rectPath(0, 0, g.Width, g.Height)
	case document.Circle:
		base.Path = ellipsePath(g.Radius, g.Radius)
	case document.Ellipse:
		base.Path = ellipsePath(g.RadiusX, g.RadiusY)
	case document.Triangle:
		base.Path = trianglePath(g.Width, g.Height)
	case document.Arrow:
		base.Fill = ""
		base.LineCap = "round"
		base.Path = []PathCommand{{"M", 0.0, 0.0}, {"L", g.Width, g.Height}}
		head, ok := arrowHead(g.Width, g.Height)
		if !ok {
			return []DrawCommand{base}
		}
		tip := base
		tip.Path = head
		tip.Fill = style.Stroke
		tip.LineCap = ""
		return []DrawCommand{base, tip}
	case document.Text:
		return []DrawCommand{{
			Op:         "text",
			ObjectID:   sh.ID,
			Transform:  base.Transform,
			Fill:       orDefault(paintOrEmpty(sh.Style.Fill), style.Stroke),
			Text:       g.Content,
			FontSize:   FontSize,
			FontFamily: FontFamily,
		}}
	default:
		return nil
	}
	return []DrawCommand{base}
}

// paintOrEmpty maps "transparent" and "none" to no paint at all.
func paintOrEmpty(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "", "transparent", "none":
		return ""
	}
	return c
}

func rectPath(x, y, w, h float64) []PathCommand {
	return []PathCommand{
		{"M", x, y},
		{"L", x + w, y},
		{"L", x + w, y + h},
		{"L", x, y + h},
		{"Z"},
	}
}

// ellipsePath approximates an ellipse centered on the origin with four
// bezier curves.
func ellipsePath(rx, ry float64) []PathCommand {
	kx, ky := rx*kappa, ry*kappa
	return []PathCommand{
		{"M", rx, 0.0},
		{"C", rx, ky, kx, ry, 0.0, ry},
		{"C", -kx, ry, -rx, ky, -rx, 0.0},
		{"C", -rx, -ky, -kx, -ry, 0.0, -ry},
		{"C", kx, -ry, rx, -ky, rx, 0.0},
		{"Z"},
	}
}

// trianglePath puts the apex at the top middle of the box spanned by (w, h).
func trianglePath(w, h float64) []PathCommand {
	minX, maxX := min(0, w), max(0, w)
	minY, maxY := min(0, h), max(0, h)
	return []PathCommand{
		{"M", (minX + maxX) / 2, minY},
		{"L", minX, maxY},
		{"L", maxX, maxY},
		{"Z"},
	}
}

func arrowHead(w, h float64) ([]PathCommand, bool) {
	length := math.Hypot(w, h)
	if length == 0 {
		return nil, false
	}
	ux, uy := w/length, h/length
	bx, by := w-ux*arrowPointerLength, h-uy*arrowPointerLength
	nx, ny := -uy*arrowPointerWidth/2, ux*arrowPointerWidth/2
	return []PathCommand{
		{"M", w, h},
		{"L", bx + nx, by + ny},
		{"L", bx - nx, by - ny},
		{"Z"},
	}, true
}

// selectionChrome outlines sh and draws its resize handles in surface space
// so they keep their size at every zoom.
func selectionChrome(sh document.Shape, view Viewport) []DrawCommand {
	b := view.Matrix().TransformRect(sh.Bounds())
	commands := []DrawCommand{{
		Op:          "path",
		ObjectID:    "selection",
		Path:        rectPath(b.X, b.Y, b.Width, b.Height),
		Stroke:      SelectionColor,
		StrokeWidth: 1,
		Dash:        []float64{4, 4},
		Screen:      true,
	}}
	if !Resizable(sh) {
		return commands
	}
	for _, h := range geometry.ResizeHandles(b) {
		hb := h.Bounds()
		commands = append(commands, DrawCommand{
			Op:          "path",
			ObjectID:    "handle:" + string(h.Position),
			Path:        rectPath(hb.X, hb.Y, hb.Width, hb.Height),
			Fill:        "#ffffff",
			Stroke:      SelectionColor,
			StrokeWidth: 1,
			Screen:      true,
		})
	}
	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// ToFloat64 reads a path coordinate. JSON-decoded paths carry float64, paths
// built in Go may carry ints.
func ToFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
