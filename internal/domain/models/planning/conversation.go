package planning

import (
	"time"
)

// TurnRole tags a conversation turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one entry of the shared conversation log kept per
// (project, workflow step). UserID is the member who sent the message; for
// assistant turns it is the member whose message produced the reply.
type ConversationTurn struct {
	ID           int64     `json:"id" db:"id"`
	ProjectID    string    `json:"project_id" db:"project_id"`
	WorkflowStep int       `json:"workflow_step" db:"workflow_step"`
	Role         TurnRole  `json:"role" db:"role"`
	Content      string    `json:"content" db:"content"`
	UserID       string    `json:"user_id" db:"user_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NewUserTurn builds an unsaved user turn.
func NewUserTurn(projectID string, step int, userID, content string) *ConversationTurn {
	return &ConversationTurn{
		ProjectID:    projectID,
		WorkflowStep: step,
		Role:         RoleUser,
		Content:      content,
		UserID:       userID,
	}
}

// NewAssistantTurn builds an unsaved assistant turn replying on behalf of userID.
func NewAssistantTurn(projectID string, step int, userID, content string) *ConversationTurn {
	return &ConversationTurn{
		ProjectID:    projectID,
		WorkflowStep: step,
		Role:         RoleAssistant,
		Content:      content,
		UserID:       userID,
	}
}

func (t *ConversationTurn) IsUser() bool      { return t.Role == RoleUser }
func (t *ConversationTurn) IsAssistant() bool { return t.Role == RoleAssistant }
