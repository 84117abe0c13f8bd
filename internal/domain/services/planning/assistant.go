package planning

import (
	"context"

	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	"planwise/internal/workflow"
)

// StreamEvent is one element of a streamed reply. Deltas carry Delta. The
// final event either has IsComplete set, carrying the persisted assistant
// turn (chat) or the finished draft (generation), or carries Err.
type StreamEvent struct {
	Delta      string                     `json:"delta,omitempty"`
	IsComplete bool                       `json:"is_complete"`
	Turn       *planning.ConversationTurn `json:"turn,omitempty"`
	Draft      *GeneratedDraft            `json:"draft,omitempty"`
	Err        error                      `json:"-"`
}

// GeneratedDraft is drafted content that has not been persisted
type GeneratedDraft struct {
	ProjectID    string `json:"project_id"`
	WorkflowStep int    `json:"workflow_step"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Model        string `json:"model"`
}

// AssistantService is the AI assistance engine. It holds no state beyond the
// shared conversation log of each (project, step).
type AssistantService interface {
	// Chat records the user turn, asks the provider and records the reply.
	// The user turn is kept even when the provider fails.
	Chat(ctx context.Context, actor models.Actor, projectID string, step int, message string) (*planning.ConversationTurn, error)

	// StreamChat is Chat delivered incrementally. The channel closes after the
	// terminal event. Cancelling ctx stops the provider call and persists
	// nothing beyond the user turn.
	StreamChat(ctx context.Context, actor models.Actor, projectID string, step int, message string) (<-chan StreamEvent, error)

	ListConversation(ctx context.Context, actor models.Actor, projectID string, step int) ([]planning.ConversationTurn, error)

	// GenerateDocument drafts the step's document from its conversation
	// without persisting it
	GenerateDocument(ctx context.Context, actor models.Actor, projectID string, step int) (*GeneratedDraft, error)

	// StreamGenerateDocument is GenerateDocument delivered incrementally.
	// Nothing is persisted either way.
	StreamGenerateDocument(ctx context.Context, actor models.Actor, projectID string, step int) (<-chan StreamEvent, error)

	// AnalyzeConflicts compares a document with the official documents of
	// the other steps. Advisory only.
	AnalyzeConflicts(ctx context.Context, actor models.Actor, documentID string) (*planning.ConflictReport, error)

	ListSteps() []workflow.Step
}
