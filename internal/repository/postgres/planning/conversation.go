package planning

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	models "planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	"planwise/internal/repository/postgres"
)

// PostgresConversationRepository implements the ConversationRepository interface
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(config *postgres.RepositoryConfig) planningRepo.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Append writes a turn
func (r *PostgresConversationRepository) Append(ctx context.Context, t *models.ConversationTurn) error {
	t.CreatedAt = time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, workflow_step, role, content, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.tables.ConversationTurns)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		t.ProjectID,
		t.WorkflowStep,
		string(t.Role),
		t.Content,
		t.UserID,
		t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return postgres.MapWriteError("append conversation turn", "conversation_turn", t.ProjectID, err)
	}
	return nil
}

// List returns the turns of a (project, step) oldest first
func (r *PostgresConversationRepository) List(ctx context.Context, projectID string, step int, limit int) ([]models.ConversationTurn, error) {
	// Newest N in a subquery, re-ordered ascending
	query := fmt.Sprintf(`
		SELECT id, project_id, workflow_step, role, content, user_id, created_at FROM (
			SELECT id, project_id, workflow_step, role, content, user_id, created_at
			FROM %s
			WHERE project_id = $1 AND workflow_step = $2
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC, id ASC
	`, r.tables.ConversationTurns)

	var lim interface{}
	if limit > 0 {
		lim = limit
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID, step, lim)
	if err != nil {
		return nil, postgres.WrapError("list conversation", err)
	}
	defer rows.Close()

	turns := []models.ConversationTurn{}
	for rows.Next() {
		var t models.ConversationTurn
		var role string
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.WorkflowStep, &role, &t.Content, &t.UserID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation turn: %w", err)
		}
		t.Role = models.TurnRole(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}
	return turns, nil
}
