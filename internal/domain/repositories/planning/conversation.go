package planning

import (
	"context"

	"planwise/internal/domain/models/planning"
)

// ConversationRepository defines data access for the shared per-step
// conversation log
type ConversationRepository interface {
	// Append writes a turn; ID and CreatedAt are assigned by the store
	Append(ctx context.Context, turn *planning.ConversationTurn) error

	// List returns the turns of a (project, step) oldest first. A positive
	// limit keeps only the most recent turns.
	List(ctx context.Context, projectID string, step int, limit int) ([]planning.ConversationTurn, error)
}
