package planning

import (
	"context"

	"planwise/internal/domain/models/planning"
	"planwise/internal/domain/repositories"
)

// ProjectRepository defines data access operations for projects
type ProjectRepository interface {
	// Create inserts a project; ID and timestamps are assigned by the store
	Create(ctx context.Context, project *planning.Project) error

	// GetByID retrieves a project by ID
	GetByID(ctx context.Context, id string) (*planning.Project, error)

	// List returns every project, newest first
	List(ctx context.Context) ([]planning.Project, error)

	// ListForUser returns the projects userID is a member of, newest first
	ListForUser(ctx context.Context, userID string) ([]planning.Project, error)

	// Delete removes a project and cascades to everything it owns
	Delete(ctx context.Context, id string) error
}

// MemberRepository defines data access operations for project membership
type MemberRepository interface {
	// Add inserts a membership; a duplicate returns a ConflictError
	Add(ctx context.Context, member *planning.ProjectMember) error

	// Remove deletes a membership
	Remove(ctx context.Context, projectID, userID string) error

	// IsMember reports whether userID belongs to projectID
	IsMember(ctx context.Context, projectID, userID string) (bool, error)

	// List returns a project's members ordered by added_at
	List(ctx context.Context, projectID string) ([]planning.ProjectMember, error)
}

// UserRepository defines data access operations for the user directory
type UserRepository interface {
	// Upsert records the user, refreshing the display name but never the
	// admin flag
	Upsert(ctx context.Context, user *planning.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*planning.User, error)

	// SetAdmin grants or revokes global administrator status
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
}

// Store groups the repositories of one storage backend behind a shared
// transaction manager.
type Store struct {
	Tx            repositories.TransactionManager
	Users         UserRepository
	Projects      ProjectRepository
	Members       MemberRepository
	Documents     DocumentRepository
	Versions      VersionRepository
	History       ApprovalHistoryRepository
	Conversations ConversationRepository
}
