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

// PostgresUserRepository implements the UserRepository interface
type PostgresUserRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewUserRepository creates a new user repository
func NewUserRepository(config *postgres.RepositoryConfig) planningRepo.UserRepository {
	return &PostgresUserRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Upsert records the user without touching the admin flag
func (r *PostgresUserRepository) Upsert(ctx context.Context, u *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, display_name, is_admin, created_at)
		VALUES ($1, $2, FALSE, $3)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING is_admin, created_at
	`, r.tables.Users)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, u.ID, u.DisplayName, time.Now().UTC()).Scan(&u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return postgres.WrapError("upsert user", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT id, display_name, is_admin, created_at FROM %s WHERE id = $1`, r.tables.Users)

	var u models.User
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&u.ID, &u.DisplayName, &u.IsAdmin, &u.CreatedAt); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("user %s not found", id)}
		}
		return nil, postgres.WrapError("get user", err)
	}
	return &u, nil
}

// SetAdmin grants or revokes administrator status
func (r *PostgresUserRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	query := fmt.Sprintf(`UPDATE %s SET is_admin = $2 WHERE id = $1`, r.tables.Users)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, isAdmin)
	if err != nil {
		return postgres.WrapError("set admin", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("user %s not found", id)}
	}
	return nil
}
