package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps everything in process. Used when no database is
// configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*User
	emails   map[string]string
	projects map[string]*Project
	versions map[string]*Version
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*User),
		emails:   make(map[string]string),
		projects: make(map[string]*Project),
		versions: make(map[string]*Version),
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := s.emails[key]; ok {
		return ErrDuplicate
	}
	if _, ok := s.users[u.ID]; ok {
		return ErrDuplicate
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	cp := *u
	s.users[u.ID] = &cp
	s.emails[key] = u.ID
	return nil
}

func (s *MemoryStore) UserByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) CreateProject(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return ErrDuplicate
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.projects[p.ID] = cloneProject(p)
	return nil
}

func (s *MemoryStore) Project(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProject(p), nil
}

func (s *MemoryStore) ProjectsByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Project{}
	for _, p := range s.projects {
		if p.OwnerID == ownerID {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Canvas != nil {
		p.Canvas = cloneRaw(patch.Canvas)
	}
	if patch.Thumbnail != nil {
		p.Thumbnail = *patch.Thumbnail
	}
	p.UpdatedAt = s.now()
	return cloneProject(p), nil
}

func (s *MemoryStore) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	for vid, v := range s.versions {
		if v.ProjectID == id {
			delete(s.versions, vid)
		}
	}
	return nil
}

func (s *MemoryStore) CreateVersion(ctx context.Context, v *Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[v.ProjectID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.versions[v.ID]; ok {
		return ErrDuplicate
	}
	next := 1
	for _, other := range s.versions {
		if other.ProjectID == v.ProjectID && other.Number >= next {
			next = other.Number + 1
		}
	}
	v.Number = next
	v.CreatedAt = s.now()
	s.versions[v.ID] = cloneVersion(v)
	return nil
}

func (s *MemoryStore) Version(ctx context.Context, id string) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneVersion(v), nil
}

func (s *MemoryStore) Versions(ctx context.Context, projectID string) ([]*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Version{}
	for _, v := range s.versions {
		if v.ProjectID == projectID {
			out = append(out, cloneVersion(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}

func (s *MemoryStore) DeleteVersion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.versions[id]; !ok {
		return ErrNotFound
	}
	delete(s.versions, id)
	return nil
}

func (s *MemoryStore) Close() {}

func cloneProject(p *Project) *Project {
	cp := *p
	cp.Canvas = cloneRaw(p.Canvas)
	return &cp
}

func cloneVersion(v *Version) *Version {
	cp := *v
	cp.Canvas = cloneRaw(v.Canvas)
	return &cp
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
