package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/project"
)

type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// SceneLoader loads a project's scene on behalf of a user and enforces
// access.
type SceneLoader interface {
	Scene(ctx context.Context, projectID, userID string) (document.Scene, error)
}

// Handler upgrades /ws/project/{projectId} requests into live sessions.
type Handler struct {
	manager  *Manager
	auth     Authenticator
	projects SceneLoader
	origins  []string
}

func NewHandler(m *Manager, a Authenticator, projects SceneLoader, allowedOrigins []string) *Handler {
	return &Handler{manager: m, auth: a, projects: projects, origins: originPatterns(allowedOrigins)}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]

	userID, err := h.auth.Authenticate(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	scene, err := h.projects.Scene(r.Context(), projectID, userID)
	switch {
	case errors.Is(err, project.ErrNotFound):
		http.Error(w, "project not found", http.StatusNotFound)
		return
	case errors.Is(err, project.ErrForbidden):
		http.Error(w, "not the project owner", http.StatusForbidden)
		return
	case err != nil:
		slog.Error("load scene", "project", projectID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if _, open := h.manager.Session(projectID); open {
		http.Error(w, ErrBusy.Error(), http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := NewClient(conn, userID, uuid.New().String())
	s, err := h.manager.Start(ctx, projectID, userID, client.ClientID, scene, client.Send)
	if err != nil {
		conn.Close(websocket.StatusTryAgainLater, err.Error())
		return
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx, s)

	cancel()
	<-s.Done()
}

// originPatterns reduces configured origins to the host patterns the
// websocket handshake checks against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
