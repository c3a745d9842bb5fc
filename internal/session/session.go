// Package session hosts live editing sessions: one websocket client drives
// one engine, and committed changes are saved back to the project.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/engine"
	"github.com/sketchcode/sketchcode/internal/geometry"
	"github.com/sketchcode/sketchcode/internal/templates"
	"github.com/sketchcode/sketchcode/internal/typeid"
)

var (
	ErrClosed         = errors.New("session closed")
	ErrUnknownMessage = errors.New("unknown message type")
)

const (
	eventBuffer = 64
	failBuffer  = 16
	saveTimeout = 10 * time.Second

	reasonAutosave = "autosave"
	reasonExplicit = "explicit"
	reasonClose    = "close"
)

// Saver persists a project's scene.
type Saver interface {
	SaveScene(ctx context.Context, projectID, userID string, scene document.Scene) error
}

type Options struct {
	// AutosaveDelay is how long the scene must be idle after a commit
	// before it is saved.
	AutosaveDelay time.Duration
	HistoryLimit  int
	Rasterizer    engine.Rasterizer
	Templates     *templates.Catalogue
	Metrics       *Metrics
}

// Session owns an engine. All engine access happens on the goroutine
// running Run; other goroutines talk to it through Deliver.
type Session struct {
	ID        string
	ProjectID string
	UserID    string
	ClientID  string

	opts   Options
	saver  Saver
	emit   func(*Message)
	engine *engine.Engine

	events   chan Message
	flush    chan struct{}
	failed   chan uint64
	stopping chan struct{}
	done     chan struct{}

	// stopMu orders Deliver against shutdown so no event is queued after
	// the final drain.
	stopMu  sync.RWMutex
	stopped bool

	// Owned by the run goroutine.
	lastRev uint64
	dirty   bool
	pending document.Scene
	reason  string
	timer   *time.Timer
	gen     uint64

	saveMu   sync.Mutex
	savedGen uint64
	saves    sync.WaitGroup
}

// New creates a session over scene. emit receives every outgoing message
// and must not block.
func New(projectID, userID, clientID string, scene document.Scene, saver Saver, emit func(*Message), opts Options) *Session {
	if opts.Templates == nil {
		opts.Templates = templates.Builtin()
	}
	s := &Session{
		ID:        typeid.NewSessionID(),
		ProjectID: projectID,
		UserID:    userID,
		ClientID:  clientID,
		opts:      opts,
		saver:     saver,
		emit:      emit,
		events:    make(chan Message, eventBuffer),
		flush:     make(chan struct{}, 1),
		failed:    make(chan uint64, failBuffer),
		stopping:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	engineOpts := []engine.Option{
		engine.WithHooks(engine.Hooks{
			Save:             func(sc document.Scene) { s.requestSave(sc, reasonExplicit) },
			ToggleShortcuts:  func() { s.host(HostToggleShortcuts) },
			ToggleProperties: func() { s.host(HostToggleProperties) },
			ToggleCode:       func() { s.host(HostToggleCode) },
			Commit:           s.committed,
		}),
	}
	if opts.HistoryLimit > 0 {
		engineOpts = append(engineOpts, engine.WithMaxHistory(opts.HistoryLimit))
	}
	if opts.Rasterizer != nil {
		engineOpts = append(engineOpts, engine.WithRasterizer(opts.Rasterizer))
	}
	s.engine = engine.New(engineOpts...)
	s.engine.Load(scene)
	s.engine.Activate()
	return s
}

// Deliver queues a client event. It blocks while the queue is full and
// fails once the session has stopped.
func (s *Session) Deliver(ctx context.Context, msg Message) error {
	s.stopMu.RLock()
	defer s.stopMu.RUnlock()
	if s.stopped {
		return ErrClosed
	}
	select {
	case s.events <- msg:
		return nil
	case <-s.stopping:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed after Run returns and the final save has finished.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run applies events in arrival order until ctx is cancelled. Unsaved
// changes are flushed before it returns.
func (s *Session) Run(ctx context.Context) {
	s.opts.Metrics.opened()
	defer s.shutdown()

	s.welcome()
	for {
		select {
		case msg := <-s.events:
			s.apply(msg)
		case <-s.flush:
			s.startSave()
		case gen := <-s.failed:
			s.saveFailed(gen)
		case <-ctx.Done():
			return
		}
	}
}

// shutdown applies events that were already accepted, then flushes the
// scene if it has unsaved changes, including ones whose save failed.
func (s *Session) shutdown() {
	close(s.stopping)
	s.stopMu.Lock()
	s.stopped = true
	s.stopMu.Unlock()
queued:
	for {
		select {
		case msg := <-s.events:
			s.apply(msg)
		default:
			break queued
		}
	}

	s.saves.Wait()
failures:
	for {
		select {
		case gen := <-s.failed:
			s.saveFailed(gen)
		default:
			break failures
		}
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.dirty {
		s.reason = reasonClose
		s.startSave()
		s.saves.Wait()
	}
	s.opts.Metrics.closed()
	slog.Info("session closed", "session", s.ID, "project", s.ProjectID, "user", s.UserID)
	close(s.done)
}

func (s *Session) welcome() {
	s.lastRev = s.engine.Revision()
	s.emit(newMessage(TypeWelcome, 0, WelcomePayload{
		SessionID: s.ID,
		ProjectID: s.ProjectID,
		ClientID:  s.ClientID,
		Scene:     s.engine.SceneSnapshot(),
		Status:    s.engine.Status(),
	}))
	s.emit(newMessage(TypeFrame, 0, FramePayload{Revision: s.lastRev, Frame: s.engine.Frame()}))
}

// apply runs one event and answers with the resulting state, plus a frame
// when the view changed.
func (s *Session) apply(msg Message) {
	err := s.handle(msg)
	s.opts.Metrics.event(msg.Type, err)
	if err != nil {
		slog.Debug("session event failed", "session", s.ID, "type", msg.Type, "error", err)
		s.emit(newMessage(TypeError, msg.Seq, ErrorPayload{Message: err.Error()}))
	}

	s.emit(newMessage(TypeState, msg.Seq, s.engine.Status()))
	if rev := s.engine.Revision(); rev != s.lastRev {
		s.lastRev = rev
		s.emit(newMessage(TypeFrame, msg.Seq, FramePayload{Revision: rev, Frame: s.engine.Frame()}))
	}
}

func (s *Session) handle(msg Message) error {
	e := s.engine
	switch msg.Type {
	case TypePointerDown, TypePointerMove:
		var p PointerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		pt := geometry.Point{X: p.X, Y: p.Y}
		if msg.Type == TypePointerDown {
			e.PointerDown(pt)
		} else {
			e.PointerMove(pt)
		}
	case TypePointerUp:
		e.PointerUp()
	case TypePointerLeave:
		e.PointerLeave()
	case TypeWheel:
		var p WheelPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.Wheel(p.DeltaY, p.Mod)
	case TypeKeyDown, TypeKeyUp:
		var ev engine.KeyEvent
		if err := decode(msg, &ev); err != nil {
			return err
		}
		if msg.Type == TypeKeyDown {
			e.KeyDown(ev)
		} else {
			e.KeyUp(ev)
		}
	case TypeSetTool:
		var p ToolPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		t, err := engine.ParseTool(p.Tool)
		if err != nil {
			return err
		}
		e.SetTool(t)
	case TypeSetStyle:
		var st engine.ToolStyle
		if err := decode(msg, &st); err != nil {
			return err
		}
		e.SetStyle(st)
	case TypeSetZoom:
		var p ZoomPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.SetZoom(p.Zoom)
	case TypeSetContainer:
		var p ContainerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.SetContainer(p.Width, p.Height)
	case TypeToggleGrid:
		e.ToggleGrid()
	case TypeToggleSnap:
		e.ToggleSnap()
	case TypeTextOpen:
		var p PointerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.OpenText(geometry.Point{X: p.X, Y: p.Y})
	case TypeTextValue:
		var p TextPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.SetTextValue(p.Value)
	case TypeTextCommit:
		e.CommitText()
	case TypeTextCancel:
		e.CancelText()
	case TypeInsert:
		var p InsertPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		partial, err := document.Parse(p.Scene)
		if err != nil {
			return err
		}
		s.emit(newMessage(TypeInserted, msg.Seq, e.InsertIntoScene(partial, p.Label)))
	case TypeInsertTemplate:
		var p TemplatePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		tpl, err := s.opts.Templates.Get(p.ID)
		if err != nil {
			return err
		}
		s.emit(newMessage(TypeInserted, msg.Seq, e.InsertIntoScene(tpl.Scene(), tpl.Name)))
	case TypeClear:
		e.ClearScene()
	case TypeUndo:
		e.Undo()
	case TypeRedo:
		e.Redo()
	case TypeExport:
		var p ExportPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		url, err := e.ExportRaster(p.Mime, p.Quality)
		if err != nil {
			return err
		}
		s.emit(newMessage(TypeExported, msg.Seq, ExportedPayload{DataURL: url}))
	case TypeSave:
		s.requestSave(e.SceneSnapshot(), reasonExplicit)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return nil
}

func decode(msg Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", msg.Type, err)
	}
	return nil
}

func (s *Session) host(action string) {
	s.emit(newMessage(TypeHost, 0, HostPayload{Action: action}))
}

// committed is the engine's commit hook. It restarts the autosave timer.
func (s *Session) committed(scene document.Scene) {
	s.dirty = true
	s.pending = scene
	s.reason = reasonAutosave
	if s.opts.AutosaveDelay <= 0 {
		s.startSave()
		return
	}
	s.armAutosave()
}

func (s *Session) armAutosave() {
	if s.timer == nil {
		s.timer = time.AfterFunc(s.opts.AutosaveDelay, s.autosaveDue)
		return
	}
	s.timer.Reset(s.opts.AutosaveDelay)
}

// saveFailed marks the scene dirty again when the failed save was the
// latest one started. Newer saves carry a newer scene and report their own
// outcome. With a positive autosave delay the save is retried after it.
func (s *Session) saveFailed(gen uint64) {
	if gen != s.gen || s.dirty {
		return
	}
	s.dirty = true
	if s.opts.AutosaveDelay > 0 {
		s.armAutosave()
	}
}

// autosaveDue runs on the timer goroutine and hands the save back to Run.
func (s *Session) autosaveDue() {
	select {
	case s.flush <- struct{}{}:
	default:
	}
}

func (s *Session) requestSave(scene document.Scene, reason string) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.dirty = true
	s.pending = scene
	s.reason = reason
	s.startSave()
}

// startSave persists the pending scene on its own goroutine. Saves may
// overlap; one that finishes behind a newer save is dropped.
func (s *Session) startSave() {
	if !s.dirty || s.saver == nil {
		s.dirty = false
		return
	}
	s.dirty = false
	s.gen++
	gen, scene, reason := s.gen, s.pending, s.reason

	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		if gen <= s.savedGen {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		start := time.Now()
		err := s.saver.SaveScene(ctx, s.ProjectID, s.UserID, scene)
		s.opts.Metrics.saved(reason, time.Since(start).Seconds(), err)
		if err != nil {
			slog.Error("save scene", "session", s.ID, "project", s.ProjectID, "reason", reason, "error", err)
			select {
			case s.failed <- gen:
			default:
			}
			s.emit(newMessage(TypeError, 0, ErrorPayload{Message: "save failed: " + err.Error()}))
			return
		}
		s.savedGen = gen
		slog.Debug("scene saved", "session", s.ID, "project", s.ProjectID, "reason", reason)
		s.emit(newMessage(TypeSaved, 0, SavedPayload{SavedAt: time.Now().UTC().Format(time.RFC3339), Reason: reason}))
	}()
}
