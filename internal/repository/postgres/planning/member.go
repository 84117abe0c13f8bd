package planning

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"planwise/internal/domain"
	models "planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	"planwise/internal/repository/postgres"
)

// PostgresMemberRepository implements the MemberRepository interface
type PostgresMemberRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewMemberRepository creates a new membership repository
func NewMemberRepository(config *postgres.RepositoryConfig) planningRepo.MemberRepository {
	return &PostgresMemberRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Add inserts a membership
func (r *PostgresMemberRepository) Add(ctx context.Context, m *models.ProjectMember) error {
	m.AddedAt = time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, user_id, role, added_by, added_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tables.ProjectMembers)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, m.ProjectID, m.UserID, m.Role, m.AddedBy, m.AddedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("user %s is already a member", m.UserID),
				ResourceType: "member",
				ResourceID:   m.UserID,
			}
		}
		return postgres.MapWriteError("add member", "member", m.UserID, err)
	}
	return nil
}

// Remove deletes a membership
func (r *PostgresMemberRepository) Remove(ctx context.Context, projectID, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE project_id = $1 AND user_id = $2`, r.tables.ProjectMembers)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, projectID, userID)
	if err != nil {
		return postgres.WrapError("remove member", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("user %s is not a member", userID)}
	}
	return nil
}

// IsMember reports whether a user belongs to a project
func (r *PostgresMemberRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE project_id = $1 AND user_id = $2)`, r.tables.ProjectMembers)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, projectID, userID).Scan(&exists); err != nil {
		return false, postgres.WrapError("check membership", err)
	}
	return exists, nil
}

// List returns a project's members
func (r *PostgresMemberRepository) List(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	query := fmt.Sprintf(`
		SELECT project_id, user_id, role, added_by, added_at
		FROM %s
		WHERE project_id = $1
		ORDER BY added_at ASC, user_id ASC
	`, r.tables.ProjectMembers)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID)
	if err != nil {
		return nil, postgres.WrapError("list members", err)
	}
	defer rows.Close()

	members := []models.ProjectMember{}
	for rows.Next() {
		var m models.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.AddedBy, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}
