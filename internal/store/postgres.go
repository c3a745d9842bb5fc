package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPool connects to databaseURL and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenPostgres connects and applies the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password, display_name) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName,
	).Scan(&u.CreatedAt)
	return mapError("create user", err)
}

func (s *PostgresStore) UserByID(ctx context.Context, id string) (*User, error) {
	return s.user(ctx, `SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.user(ctx, `SELECT id, email, password, display_name, created_at FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) user(ctx context.Context, query, arg string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return nil, mapError("get user", err)
	}
	return &u, nil
}

const projectColumns = `id, owner_id, name, description, canvas, thumbnail, created_at, updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Canvas, &p.Thumbnail, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, p *Project) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO projects (id, owner_id, name, description, canvas, thumbnail)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		p.ID, p.OwnerID, p.Name, p.Description, p.Canvas, p.Thumbnail,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapError("create project", err)
}

func (s *PostgresStore) Project(ctx context.Context, id string) (*Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get project", err)
	}
	return p, nil
}

func (s *PostgresStore) ProjectsByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_id = $1 ORDER BY updated_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []*Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error) {
	// COALESCE keeps columns whose patch value is NULL.
	var canvas any
	if patch.Canvas != nil {
		canvas = patch.Canvas
	}
	p, err := scanProject(s.pool.QueryRow(ctx,
		`UPDATE projects SET
		   name = COALESCE($2, name),
		   description = COALESCE($3, description),
		   canvas = COALESCE($4::jsonb, canvas),
		   thumbnail = COALESCE($5, thumbnail),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING `+projectColumns,
		id, patch.Name, patch.Description, canvas, patch.Thumbnail,
	))
	if err != nil {
		return nil, mapError("update project", err)
	}
	return p, nil
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateVersion(ctx context.Context, v *Version) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the project row so concurrent saves number sequentially.
	var locked string
	if err := tx.QueryRow(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, v.ProjectID).Scan(&locked); err != nil {
		return mapError("lock project", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO project_versions (id, project_id, version_number, canvas, description)
		 SELECT $1, $2, COALESCE(MAX(version_number), 0) + 1, $3, $4
		 FROM project_versions WHERE project_id = $2
		 RETURNING version_number, created_at`,
		v.ID, v.ProjectID, v.Canvas, v.Description,
	).Scan(&v.Number, &v.CreatedAt)
	if err != nil {
		return mapError("create version", err)
	}
	return tx.Commit(ctx)
}

const versionColumns = `id, project_id, version_number, canvas, description, created_at`

func scanVersion(row pgx.Row) (*Version, error) {
	var v Version
	if err := row.Scan(&v.ID, &v.ProjectID, &v.Number, &v.Canvas, &v.Description, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PostgresStore) Version(ctx context.Context, id string) (*Version, error) {
	v, err := scanVersion(s.pool.QueryRow(ctx, `SELECT `+versionColumns+` FROM project_versions WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get version", err)
	}
	return v, nil
}

func (s *PostgresStore) Versions(ctx context.Context, projectID string) ([]*Version, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+versionColumns+` FROM project_versions WHERE project_id = $1 ORDER BY version_number DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	out := []*Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteVersion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM project_versions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case isDuplicateKeyError(err):
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
