package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"planwise/internal/domain"
	models "planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
)

// ProjectRepository implements planningRepo.ProjectRepository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

var _ planningRepo.ProjectRepository = (*ProjectRepository)(nil)

// Create inserts a project
func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO projects (id, name, description, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.OwnerID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return mapWriteError("create project", "project", p.ID, err)
	}
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, created_at, updated_at
		FROM projects
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
	}
	if err != nil {
		return nil, WrapError("get project", err)
	}
	return &p, nil
}

func (r *ProjectRepository) queryProjects(ctx context.Context, op, query string, args ...any) ([]models.Project, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapError(op, err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(op, err)
	}
	return projects, nil
}

// List returns every project, newest first
func (r *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	return r.queryProjects(ctx, "list projects", `
		SELECT id, name, description, owner_id, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC
	`)
}

// ListForUser returns the projects a user belongs to, newest first
func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]models.Project, error) {
	return r.queryProjects(ctx, "list projects for user", `
		SELECT p.id, p.name, p.description, p.owner_id, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.created_at DESC
	`, userID)
}

// Delete removes a project; members, documents and turns cascade
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	res, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return WrapError("delete project", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
	}
	return nil
}

// MemberRepository implements planningRepo.MemberRepository for SQLite
type MemberRepository struct {
	db *DB
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *DB) *MemberRepository {
	return &MemberRepository{db: db}
}

var _ planningRepo.MemberRepository = (*MemberRepository)(nil)

// Add inserts a membership
func (r *MemberRepository) Add(ctx context.Context, m *models.ProjectMember) error {
	m.AddedAt = time.Now().UTC()
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role, added_by, added_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ProjectID, m.UserID, m.Role, m.AddedBy, m.AddedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("user %s is already a member", m.UserID),
				ResourceType: "member",
				ResourceID:   m.UserID,
			}
		}
		return mapWriteError("add member", "member", m.UserID, err)
	}
	return nil
}

// Remove deletes a membership
func (r *MemberRepository) Remove(ctx context.Context, projectID, userID string) error {
	res, err := GetExecutor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return WrapError("remove member", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("user %s is not a member", userID)}
	}
	return nil
}

// IsMember reports whether a user belongs to a project
func (r *MemberRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var exists bool
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM project_members WHERE project_id = ? AND user_id = ?)`,
		projectID, userID).Scan(&exists)
	if err != nil {
		return false, WrapError("check membership", err)
	}
	return exists, nil
}

// List returns a project's members
func (r *MemberRepository) List(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT project_id, user_id, role, added_by, added_at
		FROM project_members
		WHERE project_id = ?
		ORDER BY added_at ASC, user_id ASC
	`, projectID)
	if err != nil {
		return nil, WrapError("list members", err)
	}
	defer rows.Close()

	members := []models.ProjectMember{}
	for rows.Next() {
		var m models.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.AddedBy, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("list members", err)
	}
	return members, nil
}

// UserRepository implements planningRepo.UserRepository for SQLite
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ planningRepo.UserRepository = (*UserRepository)(nil)

// Upsert records the user without touching the admin flag
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO users (id, display_name, is_admin, created_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name
	`, u.ID, u.DisplayName, time.Now().UTC())
	if err != nil {
		return WrapError("upsert user", err)
	}

	stored, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	u.IsAdmin = stored.IsAdmin
	u.CreatedAt = stored.CreatedAt
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, display_name, is_admin, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.DisplayName, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("user %s not found", id)}
	}
	if err != nil {
		return nil, WrapError("get user", err)
	}
	return &u, nil
}

// SetAdmin grants or revokes administrator status
func (r *UserRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	res, err := GetExecutor(ctx, r.db).ExecContext(ctx, `UPDATE users SET is_admin = ? WHERE id = ?`, isAdmin, id)
	if err != nil {
		return WrapError("set admin", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("user %s not found", id)}
	}
	return nil
}
