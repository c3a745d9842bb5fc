package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sketchcode/sketchcode/internal/document"
)

// ErrBusy is returned when a project already has a live session.
var ErrBusy = errors.New("project already has an open session")

type entry struct {
	session *Session
	cancel  context.CancelFunc
}

// Manager tracks the live session of each project. A project has at most
// one session, and a session has exactly one client.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry // projectID -> session
	saver    Saver
	opts     Options
	wg       sync.WaitGroup
}

func NewManager(saver Saver, opts Options) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		saver:    saver,
		opts:     opts,
	}
}

// Start opens a session over scene and runs it until ctx is cancelled or
// the manager shuts down.
func (m *Manager) Start(ctx context.Context, projectID, userID, clientID string, scene document.Scene, emit func(*Message)) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[projectID]; ok {
		return nil, ErrBusy
	}

	s := New(projectID, userID, clientID, scene, m.saver, emit, m.opts)
	runCtx, cancel := context.WithCancel(ctx)
	m.sessions[projectID] = &entry{session: s, cancel: cancel}
	m.wg.Add(1)

	slog.Info("session opened", "session", s.ID, "project", projectID, "user", userID, "client", clientID)

	go func() {
		defer m.wg.Done()
		s.Run(runCtx)
		cancel()
		m.remove(s)
	}()
	return s, nil
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[s.ProjectID]; ok && e.session == s {
		delete(m.sessions, s.ProjectID)
	}
}

// Session returns the live session for a project.
func (m *Manager) Session(projectID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[projectID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops every session and waits for their final saves, or for ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, e := range m.sessions {
		e.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
