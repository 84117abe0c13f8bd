package planning

import (
	"context"

	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
)

// CreateProjectRequest is the DTO for creating a project
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AddMemberRequest is the DTO for adding a project member
type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"` // free-form label, not a permission
}

// ProjectService defines business logic for projects and membership.
// Creation, deletion and membership changes are administrator operations.
type ProjectService interface {
	CreateProject(ctx context.Context, actor models.Actor, req *CreateProjectRequest) (*planning.Project, error)
	GetProject(ctx context.Context, actor models.Actor, projectID string) (*planning.Project, error)

	// ListProjects returns the caller's projects; administrators see all
	ListProjects(ctx context.Context, actor models.Actor) ([]planning.Project, error)

	// DeleteProject cascades to members, documents, history and conversations
	DeleteProject(ctx context.Context, actor models.Actor, projectID string) error

	AddMember(ctx context.Context, actor models.Actor, projectID string, req *AddMemberRequest) (*planning.ProjectMember, error)
	RemoveMember(ctx context.Context, actor models.Actor, projectID, userID string) error
	ListMembers(ctx context.Context, actor models.Actor, projectID string) ([]planning.ProjectMember, error)
}

// UserService resolves authenticated identities into actors
type UserService interface {
	// ResolveActor records the user on first sight and returns their global
	// administrator status
	ResolveActor(ctx context.Context, userID, displayName string) (models.Actor, error)
}
