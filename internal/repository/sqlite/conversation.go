package sqlite

import (
	"context"
	"fmt"
	"slices"
	"time"

	models "planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
)

// ConversationRepository implements planningRepo.ConversationRepository for SQLite
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

var _ planningRepo.ConversationRepository = (*ConversationRepository)(nil)

// Append writes a turn
func (r *ConversationRepository) Append(ctx context.Context, t *models.ConversationTurn) error {
	t.CreatedAt = time.Now().UTC()
	res, err := GetExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO conversation_turns (project_id, workflow_step, role, content, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ProjectID, t.WorkflowStep, string(t.Role), t.Content, t.UserID, t.CreatedAt)
	if err != nil {
		return mapWriteError("append conversation turn", "conversation_turn", t.ProjectID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return WrapError("append conversation turn", err)
	}
	t.ID = id
	return nil
}

// List returns the turns of a (project, step) oldest first
func (r *ConversationRepository) List(ctx context.Context, projectID string, step int, limit int) ([]models.ConversationTurn, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	// Newest first so LIMIT keeps the most recent turns; reversed below
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, project_id, workflow_step, role, content, user_id, created_at
		FROM conversation_turns
		WHERE project_id = ? AND workflow_step = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, projectID, step, limit)
	if err != nil {
		return nil, WrapError("list conversation", err)
	}
	defer rows.Close()

	turns := []models.ConversationTurn{}
	for rows.Next() {
		var t models.ConversationTurn
		var role string
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.WorkflowStep, &role, &t.Content, &t.UserID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation turn: %w", err)
		}
		t.Role = models.TurnRole(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("list conversation", err)
	}
	slices.Reverse(turns)
	return turns, nil
}
