// Package store persists users, projects and project versions.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

type Project struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	// Canvas is the serialized scene.
	Canvas    json.RawMessage
	Thumbnail string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Version is a numbered snapshot of a project's canvas.
type Version struct {
	ID          string
	ProjectID   string
	Number      int
	Canvas      json.RawMessage
	Description string
	CreatedAt   time.Time
}

// ProjectPatch lists the project fields to change. Nil fields are left alone.
type ProjectPatch struct {
	Name        *string
	Description *string
	Canvas      json.RawMessage
	Thumbnail   *string
}

type Store interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)

	CreateProject(ctx context.Context, p *Project) error
	Project(ctx context.Context, id string) (*Project, error)
	// ProjectsByOwner returns the owner's projects, most recently updated first.
	ProjectsByOwner(ctx context.Context, ownerID string) ([]*Project, error)
	UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error)
	DeleteProject(ctx context.Context, id string) error

	// CreateVersion assigns v.Number as one past the project's highest number.
	CreateVersion(ctx context.Context, v *Version) error
	Version(ctx context.Context, id string) (*Version, error)
	// Versions returns a project's versions, newest number first.
	Versions(ctx context.Context, projectID string) ([]*Version, error)
	DeleteVersion(ctx context.Context, id string) error

	Close()
}
