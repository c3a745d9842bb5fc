package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/export"
	"github.com/sketchcode/sketchcode/internal/project"
	"github.com/sketchcode/sketchcode/internal/store"
)

const waitFor = 2 * time.Second

type fakeSaver struct {
	saved chan document.Scene

	mu  sync.Mutex
	err error
}

func newFakeSaver() *fakeSaver { return &fakeSaver{saved: make(chan document.Scene, 16)} }

func (f *fakeSaver) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSaver) SaveScene(ctx context.Context, projectID, userID string, scene document.Scene) error {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.saved <- scene
	return nil
}

type harness struct {
	t      *testing.T
	s      *Session
	out    chan *Message
	cancel context.CancelFunc
	seq    int64
}

func start(t *testing.T, saver Saver, opts Options) *harness {
	t.Helper()
	out := make(chan *Message, 512)
	s := New("proj_1", "user_1", "client_1", document.NewScene(800, 600), saver, func(m *Message) { out <- m }, opts)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	h := &harness{t: t, s: s, out: out, cancel: cancel}
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	h.expect(TypeWelcome)
	h.expect(TypeFrame)
	return h
}

func (h *harness) send(typ string, payload any) int64 {
	h.t.Helper()
	h.seq++
	msg := Message{Type: typ, Seq: h.seq}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			h.t.Fatalf("Marshal() error = %v", err)
		}
		msg.Payload = data
	}
	if err := h.s.Deliver(context.Background(), msg); err != nil {
		h.t.Fatalf("Deliver(%s) error = %v", typ, err)
	}
	return h.seq
}

// expect reads messages until one of type typ arrives.
func (h *harness) expect(typ string) *Message {
	h.t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case m := <-h.out:
			if m.Type == typ {
				return m
			}
		case <-timeout:
			h.t.Fatalf("timed out waiting for %q", typ)
			return nil
		}
	}
}

func payload[T any](t *testing.T, m *Message) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(m.Payload, &v); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", m.Type, err)
	}
	return v
}

func (h *harness) drawStroke() {
	h.send(TypeSetTool, ToolPayload{Tool: "pen"})
	h.send(TypePointerDown, PointerPayload{X: 10, Y: 10})
	h.send(TypePointerMove, PointerPayload{X: 60, Y: 40})
	h.send(TypePointerUp, nil)
}

func waitSaved(t *testing.T, f *fakeSaver) document.Scene {
	t.Helper()
	select {
	case sc := <-f.saved:
		return sc
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for save")
		return document.Scene{}
	}
}

func TestWelcome(t *testing.T) {
	out := make(chan *Message, 8)
	scene := document.NewSampleScene()
	s := New("proj_1", "user_1", "client_1", scene, nil, func(m *Message) { out <- m }, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	defer func() { cancel(); <-s.Done() }()

	m := <-out
	if m.Type != TypeWelcome {
		t.Fatalf("first message = %q, want welcome", m.Type)
	}
	w := payload[WelcomePayload](t, m)
	if !strings.HasPrefix(w.SessionID, "sess_") || w.ProjectID != "proj_1" || w.ClientID != "client_1" {
		t.Errorf("welcome = %+v", w)
	}
	if len(w.Scene.Shapes) != len(scene.Shapes) || len(w.Scene.Strokes) != len(scene.Strokes) {
		t.Errorf("welcome scene has %d shapes, %d strokes", len(w.Scene.Shapes), len(w.Scene.Strokes))
	}
	if w.Status.CanUndo {
		t.Error("loaded scene should not be undoable")
	}
	if f := <-out; f.Type != TypeFrame {
		t.Errorf("second message = %q, want frame", f.Type)
	}
}

func TestEventsAnsweredInOrder(t *testing.T) {
	h := start(t, nil, Options{})

	seq := h.send(TypeSetTool, ToolPayload{Tool: "pen"})
	st := h.expect(TypeState)
	if st.Seq != seq {
		t.Errorf("state seq = %d, want %d", st.Seq, seq)
	}
	if got := payload[map[string]any](t, st)["tool"]; got != "pen" {
		t.Errorf("tool = %v, want pen", got)
	}

	seq = h.send(TypePointerDown, PointerPayload{X: 10, Y: 10})
	h.expect(TypeState)
	if f := h.expect(TypeFrame); f.Seq != seq {
		t.Errorf("frame seq = %d, want %d", f.Seq, seq)
	}
	h.send(TypePointerMove, PointerPayload{X: 50, Y: 50})
	h.send(TypePointerUp, nil)
	h.send(TypeUndo, nil)
	st = h.expect(TypeState)
	for st.Seq != h.seq {
		st = h.expect(TypeState)
	}
	if got := payload[map[string]any](t, st)["canRedo"]; got != true {
		t.Errorf("canRedo after undo = %v, want true", got)
	}
}

func TestBadEventsReportError(t *testing.T) {
	h := start(t, nil, Options{})

	tests := []struct {
		typ     string
		payload any
	}{
		{"teleport", nil},
		{TypeSetTool, ToolPayload{Tool: "laser"}},
		{TypePointerDown, nil},
		{TypeInsertTemplate, TemplatePayload{ID: "nope"}},
		{TypeExport, ExportPayload{Mime: "image/png"}},
	}
	for _, tt := range tests {
		seq := h.send(tt.typ, tt.payload)
		e := h.expect(TypeError)
		if e.Seq != seq {
			t.Errorf("%s: error seq = %d, want %d", tt.typ, e.Seq, seq)
		}
		// The session keeps answering with state after a failure.
		if st := h.expect(TypeState); st.Seq != seq {
			t.Errorf("%s: state seq = %d, want %d", tt.typ, st.Seq, seq)
		}
	}
}

func TestInsertTemplate(t *testing.T) {
	h := start(t, nil, Options{})

	seq := h.send(TypeInsertTemplate, TemplatePayload{ID: "login-form"})
	m := h.expect(TypeInserted)
	if m.Seq != seq {
		t.Errorf("inserted seq = %d, want %d", m.Seq, seq)
	}
	ins := payload[struct {
		Label    string   `json:"label"`
		ShapeIDs []string `json:"shapeIds"`
	}](t, m)
	if ins.Label == "" || len(ins.ShapeIDs) == 0 {
		t.Errorf("insertion = %+v", ins)
	}
	h.expect(TypeFrame)
}

func TestExport(t *testing.T) {
	h := start(t, nil, Options{Rasterizer: export.NewRasterizer(1)})
	h.drawStroke()

	seq := h.send(TypeExport, ExportPayload{Mime: "image/png"})
	m := h.expect(TypeExported)
	if m.Seq != seq {
		t.Errorf("exported seq = %d, want %d", m.Seq, seq)
	}
	if got := payload[ExportedPayload](t, m).DataURL; !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("DataURL = %.40q", got)
	}
}

func TestAutosaveAfterCommit(t *testing.T) {
	saver := newFakeSaver()
	h := start(t, saver, Options{AutosaveDelay: 20 * time.Millisecond})

	h.drawStroke()
	scene := waitSaved(t, saver)
	if len(scene.Strokes) != 1 {
		t.Fatalf("saved %d strokes, want 1", len(scene.Strokes))
	}
	saved := payload[SavedPayload](t, h.expect(TypeSaved))
	if saved.Reason != reasonAutosave {
		t.Errorf("reason = %q, want %q", saved.Reason, reasonAutosave)
	}
}

func TestAutosaveDebounces(t *testing.T) {
	saver := newFakeSaver()
	h := start(t, saver, Options{AutosaveDelay: 100 * time.Millisecond})

	h.drawStroke()
	h.drawStroke()
	h.drawStroke()

	scene := waitSaved(t, saver)
	if len(scene.Strokes) != 3 {
		t.Errorf("saved %d strokes, want 3", len(scene.Strokes))
	}
	select {
	case extra := <-saver.saved:
		t.Errorf("unexpected second save with %d strokes", len(extra.Strokes))
	case <-time.After(250 * time.Millisecond):
	}
}

func TestSaveShortcut(t *testing.T) {
	saver := newFakeSaver()
	h := start(t, saver, Options{AutosaveDelay: time.Hour})

	h.drawStroke()
	h.send(TypeKeyDown, map[string]any{"key": "s", "mod": true})
	waitSaved(t, saver)
	saved := payload[SavedPayload](t, h.expect(TypeSaved))
	if saved.Reason != reasonExplicit {
		t.Errorf("reason = %q, want %q", saved.Reason, reasonExplicit)
	}
}

func TestHostShortcuts(t *testing.T) {
	h := start(t, nil, Options{})

	h.send(TypeKeyDown, map[string]any{"key": "?", "shift": true})
	if got := payload[HostPayload](t, h.expect(TypeHost)); got.Action != HostToggleShortcuts {
		t.Errorf("action = %q, want %q", got.Action, HostToggleShortcuts)
	}
	h.send(TypeKeyDown, map[string]any{"key": "`", "mod": true})
	if got := payload[HostPayload](t, h.expect(TypeHost)); got.Action != HostToggleCode {
		t.Errorf("action = %q, want %q", got.Action, HostToggleCode)
	}
}

func TestFlushOnClose(t *testing.T) {
	saver := newFakeSaver()
	out := make(chan *Message, 512)
	s := New("proj_1", "user_1", "client_1", document.NewScene(800, 600), saver, func(m *Message) { out <- m }, Options{AutosaveDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	h := &harness{t: t, s: s, out: out, cancel: cancel}
	h.drawStroke()
	h.send(TypeClear, nil)
	h.expect(TypeFrame)
	for st := h.expect(TypeState); st.Seq != h.seq; st = h.expect(TypeState) {
	}

	cancel()
	<-s.Done()
	select {
	case sc := <-saver.saved:
		if !sc.IsEmpty() {
			t.Errorf("final save = %+v, want cleared scene", sc)
		}
	default:
		t.Fatal("no save on close")
	}
	if err := s.Deliver(context.Background(), Message{Type: TypeUndo}); !errors.Is(err, ErrClosed) {
		t.Errorf("Deliver() after close error = %v, want ErrClosed", err)
	}
}

func TestSaveFailureReported(t *testing.T) {
	saver := newFakeSaver()
	saver.setErr(errors.New("disk full"))
	h := start(t, saver, Options{})

	h.drawStroke()
	e := payload[ErrorPayload](t, h.expect(TypeError))
	if !strings.Contains(e.Message, "disk full") {
		t.Errorf("error = %q", e.Message)
	}
}

func TestFailedSaveFlushedOnClose(t *testing.T) {
	saver := newFakeSaver()
	saver.setErr(errors.New("db down"))
	out := make(chan *Message, 512)
	s := New("proj_1", "user_1", "client_1", document.NewScene(800, 600), saver, func(m *Message) { out <- m }, Options{AutosaveDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	h := &harness{t: t, s: s, out: out, cancel: cancel}
	h.drawStroke()
	h.send(TypeSave, nil)
	if e := payload[ErrorPayload](t, h.expect(TypeError)); !strings.Contains(e.Message, "db down") {
		t.Fatalf("error = %q", e.Message)
	}

	saver.setErr(nil)
	cancel()
	<-s.Done()
	select {
	case sc := <-saver.saved:
		if len(sc.Strokes) != 1 {
			t.Errorf("final save has %d strokes, want 1", len(sc.Strokes))
		}
	default:
		t.Fatal("failed save was not retried on close")
	}
	saved := payload[SavedPayload](t, h.expect(TypeSaved))
	if saved.Reason != reasonClose {
		t.Errorf("reason = %q, want %q", saved.Reason, reasonClose)
	}
}

func TestFailedAutosaveRetried(t *testing.T) {
	saver := newFakeSaver()
	saver.setErr(errors.New("db down"))
	h := start(t, saver, Options{AutosaveDelay: 20 * time.Millisecond})

	h.drawStroke()
	h.expect(TypeError)
	saver.setErr(nil)

	if sc := waitSaved(t, saver); len(sc.Strokes) != 1 {
		t.Errorf("retried save has %d strokes, want 1", len(sc.Strokes))
	}
}

func TestDeliverAfterClose(t *testing.T) {
	s := New("proj_1", "user_1", "client_1", document.NewScene(800, 600), nil, func(*Message) {}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	cancel()
	<-s.Done()

	for i := range eventBuffer * 2 {
		if err := s.Deliver(context.Background(), Message{Type: TypeUndo, Seq: int64(i)}); !errors.Is(err, ErrClosed) {
			t.Fatalf("Deliver() #%d after close error = %v, want ErrClosed", i, err)
		}
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	saver := newFakeSaver()
	h := start(t, saver, Options{Metrics: metrics})

	if got := testutil.ToFloat64(metrics.active); got != 1 {
		t.Errorf("active = %v, want 1", got)
	}
	h.drawStroke()
	waitSaved(t, saver)
	h.expect(TypeSaved)

	if got := testutil.ToFloat64(metrics.events.WithLabelValues(TypePointerDown, "ok")); got != 1 {
		t.Errorf("pointer.down events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.autosaves.WithLabelValues(reasonAutosave, "ok")); got != 1 {
		t.Errorf("autosaves = %v, want 1", got)
	}
}

func TestManager(t *testing.T) {
	m := NewManager(nil, Options{})
	discard := func(*Message) {}
	scene := document.NewScene(800, 600)

	s, err := m.Start(context.Background(), "proj_1", "user_1", "c1", scene, discard)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := m.Start(context.Background(), "proj_1", "user_1", "c2", scene, discard); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}
	if _, err := m.Start(context.Background(), "proj_2", "user_1", "c3", scene, discard); err != nil {
		t.Errorf("Start(other project) error = %v", err)
	}
	if got, ok := m.Session("proj_1"); !ok || got != s {
		t.Error("Session(proj_1) did not return the live session")
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after shutdown, want 0", m.Len())
	}
}

type headerAuth struct{}

func (headerAuth) Authenticate(r *http.Request) (string, error) {
	if u := r.URL.Query().Get("token"); u != "" {
		return u, nil
	}
	return "", errors.New("missing token")
}

func TestHandlerEndToEnd(t *testing.T) {
	ctx := context.Background()
	projects := project.NewService(store.NewMemoryStore())
	p, err := projects.Create(ctx, "user_1", "ws", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	m := NewManager(projects, Options{AutosaveDelay: time.Hour})
	r := mux.NewRouter()
	r.Handle("/ws/project/{projectId}", NewHandler(m, headerAuth{}, projects, []string{"http://localhost:5173"}))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/project/"

	for _, tt := range []struct {
		name, path string
		status     int
	}{
		{"no token", p.ID, http.StatusUnauthorized},
		{"not owner", p.ID + "?token=user_2", http.StatusForbidden},
		{"missing project", "proj_missing?token=user_1", http.StatusNotFound},
	} {
		_, resp, err := websocket.Dial(ctx, base+tt.path, nil)
		if err == nil {
			t.Errorf("%s: Dial() succeeded", tt.name)
			continue
		}
		if resp == nil || resp.StatusCode != tt.status {
			t.Errorf("%s: status = %v, want %d", tt.name, resp, tt.status)
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, waitFor)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, base+p.ID+"?token=user_1", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	read := func(typ string) Message {
		t.Helper()
		for {
			_, data, err := conn.Read(dialCtx)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if msg.Type == typ {
				return msg
			}
		}
	}
	write := func(typ string, v any) {
		t.Helper()
		data, _ := json.Marshal(v)
		raw, _ := json.Marshal(Message{Type: typ, Payload: data})
		if err := conn.Write(dialCtx, websocket.MessageText, raw); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	read(TypeWelcome)
	if _, resp, err := websocket.Dial(ctx, base+p.ID+"?token=user_1", nil); err == nil || resp == nil || resp.StatusCode != http.StatusConflict {
		t.Errorf("second client: err = %v, resp = %v, want 409", err, resp)
	}

	write(TypeSetTool, ToolPayload{Tool: "rectangle"})
	write(TypePointerDown, PointerPayload{X: 100, Y: 100})
	write(TypePointerMove, PointerPayload{X: 200, Y: 160})
	write(TypePointerUp, map[string]any{})
	write(TypeSave, map[string]any{})
	read(TypeSaved)

	conn.Close(websocket.StatusNormalClosure, "")

	scene, err := projects.Scene(ctx, p.ID, "user_1")
	if err != nil {
		t.Fatalf("Scene() error = %v", err)
	}
	if len(scene.Shapes) != 1 {
		t.Errorf("persisted %d shapes, want 1", len(scene.Shapes))
	}
}
