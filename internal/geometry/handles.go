package geometry

const (
	// HandleSize is the edge length of a resize handle square.
	HandleSize = 8.0
	// MinResizeSize is the smallest width or height a resize can produce.
	MinResizeSize = 10.0
)

// HandlePosition names a compass point on a bounding box.
type HandlePosition string

const (
	HandleNW HandlePosition = "nw"
	HandleN  HandlePosition = "n"
	HandleNE HandlePosition = "ne"
	HandleE  HandlePosition = "e"
	HandleSE HandlePosition = "se"
	HandleS  HandlePosition = "s"
	HandleSW HandlePosition = "sw"
	HandleW  HandlePosition = "w"
)

// Handle is a resize grip. X and Y are the top-left corner of its square.
type Handle struct {
	Position HandlePosition `json:"name"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Cursor   string         `json:"cursor"`
}

// Bounds returns the handle's square.
func (h Handle) Bounds() Rect {
	return Rect{X: h.X, Y: h.Y, Width: HandleSize, Height: HandleSize}
}

func (p HandlePosition) movesLeft() bool   { return p == HandleNW || p == HandleW || p == HandleSW }
func (p HandlePosition) movesRight() bool  { return p == HandleNE || p == HandleE || p == HandleSE }
func (p HandlePosition) movesTop() bool    { return p == HandleNW || p == HandleN || p == HandleNE }
func (p HandlePosition) movesBottom() bool { return p == HandleSW || p == HandleS || p == HandleSE }

// ResizeHandles returns the eight handles of b, in nw, n, ne, e, se, s, sw, w order,
// each centered on its corner or edge midpoint.
func ResizeHandles(b Rect) []Handle {
	const half = HandleSize / 2
	midX := b.X + b.Width/2
	midY := b.Y + b.Height/2

	handle := func(pos HandlePosition, cx, cy float64) Handle {
		return Handle{Position: pos, X: cx - half, Y: cy - half, Cursor: string(pos) + "-resize"}
	}

	return []Handle{
		handle(HandleNW, b.X, b.Y),
		handle(HandleN, midX, b.Y),
		handle(HandleNE, b.Right(), b.Y),
		handle(HandleE, b.Right(), midY),
		handle(HandleSE, b.Right(), b.Bottom()),
		handle(HandleS, midX, b.Bottom()),
		handle(HandleSW, b.X, b.Bottom()),
		handle(HandleW, b.X, midY),
	}
}

// PointInBounds is an inclusive containment test.
func PointInBounds(p Point, b Rect) bool {
	return b.Contains(p.X, p.Y)
}

// HandleAtPoint returns the first handle in list order whose square contains p.
func HandleAtPoint(p Point, handles []Handle) (Handle, bool) {
	for _, h := range handles {
		if h.Bounds().Contains(p.X, p.Y) {
			return h, true
		}
	}
	return Handle{}, false
}

// ResizeBounds drags the given handle of original by delta. Edges not owned by
// the handle stay put. Width and height are clamped to MinResizeSize; when a
// clamp happens on a moving left or top edge, that edge is re-anchored so the
// opposite edge is unchanged.
func ResizeBounds(original Rect, pos HandlePosition, delta Point) Rect {
	out := original

	switch {
	case pos.movesLeft():
		out.X += delta.X
		out.Width -= delta.X
	case pos.movesRight():
		out.Width += delta.X
	}
	switch {
	case pos.movesTop():
		out.Y += delta.Y
		out.Height -= delta.Y
	case pos.movesBottom():
		out.Height += delta.Y
	}

	if out.Width < MinResizeSize {
		out.Width = MinResizeSize
		if pos.movesLeft() {
			out.X = original.Right() - MinResizeSize
		}
	}
	if out.Height < MinResizeSize {
		out.Height = MinResizeSize
		if pos.movesTop() {
			out.Y = original.Bottom() - MinResizeSize
		}
	}

	return out
}
