package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/store"
	"github.com/sketchcode/sketchcode/internal/typeid"
)

var (
	ErrNotFound        = errors.New("project not found")
	ErrVersionNotFound = errors.New("version not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidScene    = errors.New("invalid scene")
	ErrNameRequired    = errors.New("name is required")
)

const DefaultName = "Untitled sketch"

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

type Project struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	OwnerID     string          `json:"ownerId"`
	Canvas      json.RawMessage `json:"canvas,omitempty"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

type Version struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"projectId"`
	Number      int             `json:"versionNumber"`
	Description string          `json:"description,omitempty"`
	Canvas      json.RawMessage `json:"canvas,omitempty"`
	CreatedAt   string          `json:"createdAt"`
}

// Comparison pairs two versions' canvases with an id-level summary of what
// changed between them.
type Comparison struct {
	From    Version  `json:"from"`
	To      Version  `json:"to"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

func (s *Service) Create(ctx context.Context, ownerID, name, description string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	canvas, err := json.Marshal(document.NewScene(document.DefaultWidth, document.DefaultHeight))
	if err != nil {
		return nil, fmt.Errorf("marshal empty scene: %w", err)
	}

	p := &store.Project{
		ID:          typeid.NewProjectID(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Canvas:      canvas,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return toProject(p, true), nil
}

func (s *Service) Get(ctx context.Context, projectID, userID string) (*Project, error) {
	p, err := s.owned(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	return toProject(p, true), nil
}

// List returns the user's projects without their canvases.
func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	ps, err := s.store.ProjectsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]Project, len(ps))
	for i, p := range ps {
		out[i] = *toProject(p, false)
	}
	return out, nil
}

// Scene loads and parses a project's canvas.
func (s *Service) Scene(ctx context.Context, projectID, userID string) (document.Scene, error) {
	p, err := s.owned(ctx, projectID, userID)
	if err != nil {
		return document.Scene{}, err
	}
	scene, err := document.Parse(p.Canvas)
	if err != nil {
		return document.Scene{}, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	return scene, nil
}

// SaveCanvas replaces the stored canvas. The data must parse as a scene.
func (s *Service) SaveCanvas(ctx context.Context, projectID, userID string, canvas json.RawMessage, thumbnail *string) (*Project, error) {
	if _, err := document.Parse(canvas); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if _, err := s.owned(ctx, projectID, userID); err != nil {
		return nil, err
	}
	p, err := s.store.UpdateProject(ctx, projectID, store.ProjectPatch{Canvas: canvas, Thumbnail: thumbnail})
	if err != nil {
		return nil, s.mapErr(err, "save canvas")
	}
	return toProject(p, false), nil
}

func (s *Service) SaveScene(ctx context.Context, projectID, userID string, scene document.Scene) error {
	data, err := json.Marshal(scene)
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	_, err = s.SaveCanvas(ctx, projectID, userID, data, nil)
	return err
}

func (s *Service) Update(ctx context.Context, projectID, userID string, name, description *string) (*Project, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, ErrNameRequired
		}
		name = &trimmed
	}
	if _, err := s.owned(ctx, projectID, userID); err != nil {
		return nil, err
	}
	p, err := s.store.UpdateProject(ctx, projectID, store.ProjectPatch{Name: name, Description: description})
	if err != nil {
		return nil, s.mapErr(err, "update project")
	}
	return toProject(p, false), nil
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.owned(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return s.mapErr(err, "delete project")
	}
	return nil
}

// CreateVersion numbers a new snapshot one past the project's latest. A nil
// canvas snapshots the project's current canvas.
func (s *Service) CreateVersion(ctx context.Context, projectID, userID string, canvas json.RawMessage, description string) (*Version, error) {
	p, err := s.owned(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if canvas == nil {
		canvas = p.Canvas
	} else if _, err := document.Parse(canvas); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}

	v := &store.Version{
		ID:          typeid.NewVersionID(),
		ProjectID:   projectID,
		Canvas:      canvas,
		Description: strings.TrimSpace(description),
	}
	if err := s.store.CreateVersion(ctx, v); err != nil {
		return nil, s.mapErr(err, "create version")
	}
	return toVersion(v, false), nil
}

// Versions lists a project's versions, newest first, without canvases.
func (s *Service) Versions(ctx context.Context, projectID, userID string) ([]Version, error) {
	if _, err := s.owned(ctx, projectID, userID); err != nil {
		return nil, err
	}
	vs, err := s.store.Versions(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	out := make([]Version, len(vs))
	for i, v := range vs {
		out[i] = *toVersion(v, false)
	}
	return out, nil
}

// RestoreVersion returns the version with its canvas. The project itself is
// not modified; the caller loads the canvas into the editor.
func (s *Service) RestoreVersion(ctx context.Context, projectID, versionID, userID string) (*Version, error) {
	v, err := s.version(ctx, projectID, versionID, userID)
	if err != nil {
		return nil, err
	}
	return toVersion(v, true), nil
}

func (s *Service) DeleteVersion(ctx context.Context, projectID, versionID, userID string) error {
	if _, err := s.version(ctx, projectID, versionID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteVersion(ctx, versionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrVersionNotFound
		}
		return fmt.Errorf("delete version: %w", err)
	}
	return nil
}

func (s *Service) CompareVersions(ctx context.Context, projectID, fromID, toID, userID string) (*Comparison, error) {
	from, err := s.version(ctx, projectID, fromID, userID)
	if err != nil {
		return nil, err
	}
	to, err := s.version(ctx, projectID, toID, userID)
	if err != nil {
		return nil, err
	}
	a, err := document.Parse(from.Canvas)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	b, err := document.Parse(to.Canvas)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}

	c := diffScenes(a, b)
	c.From, c.To = *toVersion(from, true), *toVersion(to, true)
	return &c, nil
}

func (s *Service) version(ctx context.Context, projectID, versionID, userID string) (*store.Version, error) {
	if _, err := s.owned(ctx, projectID, userID); err != nil {
		return nil, err
	}
	v, err := s.store.Version(ctx, versionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	if v.ProjectID != projectID {
		return nil, ErrVersionNotFound
	}
	return v, nil
}

// owned loads the project and checks that userID owns it.
func (s *Service) owned(ctx context.Context, projectID, userID string) (*store.Project, error) {
	if !typeid.Project.Is(projectID) {
		return nil, ErrNotFound
	}
	p, err := s.store.Project(ctx, projectID)
	if err != nil {
		return nil, s.mapErr(err, "get project")
	}
	if p.OwnerID != userID {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Service) mapErr(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// diffScenes compares strokes and shapes by id.
func diffScenes(a, b document.Scene) Comparison {
	before := make(map[string][]byte)
	for _, st := range a.Strokes {
		before[st.ID], _ = json.Marshal(st)
	}
	for _, sh := range a.Shapes {
		before[sh.ID], _ = json.Marshal(sh)
	}

	c := Comparison{Added: []string{}, Removed: []string{}, Changed: []string{}}
	seen := make(map[string]bool)
	visit := func(id string, v any) {
		seen[id] = true
		old, ok := before[id]
		if !ok {
			c.Added = append(c.Added, id)
			return
		}
		cur, _ := json.Marshal(v)
		if string(cur) != string(old) {
			c.Changed = append(c.Changed, id)
		}
	}
	for _, st := range b.Strokes {
		visit(st.ID, st)
	}
	for _, sh := range b.Shapes {
		visit(sh.ID, sh)
	}
	for _, st := range a.Strokes {
		if !seen[st.ID] {
			c.Removed = append(c.Removed, st.ID)
		}
	}
	for _, sh := range a.Shapes {
		if !seen[sh.ID] {
			c.Removed = append(c.Removed, sh.ID)
		}
	}
	return c
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toProject(p *store.Project, withCanvas bool) *Project {
	out := &Project{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		Thumbnail:   p.Thumbnail,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
	if withCanvas {
		out.Canvas = p.Canvas
	}
	return out
}

func toVersion(v *store.Version, withCanvas bool) *Version {
	out := &Version{
		ID:          v.ID,
		ProjectID:   v.ProjectID,
		Number:      v.Number,
		Description: v.Description,
		CreatedAt:   formatTime(v.CreatedAt),
	}
	if withCanvas {
		out.Canvas = v.Canvas
	}
	return out
}
