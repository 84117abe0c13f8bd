package planning

import (
	"context"

	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
)

// ResourceAuthorizer answers the access questions the core depends on:
// is the caller authenticated, a project member, an administrator, the author.
//
// Services call the authorizer before operating on resources. Every method
// returns nil or a typed domain error (UNAUTHORIZED, FORBIDDEN, NOT_FOUND).
type ResourceAuthorizer interface {
	// CanAccessProject passes for project members and administrators
	CanAccessProject(ctx context.Context, actor models.Actor, projectID string) error

	// CanReadDocument applies project access plus the private-draft rule:
	// a private document is readable by its author and administrators only
	CanReadDocument(ctx context.Context, actor models.Actor, doc *planning.Document) error

	// RequireAdmin passes for administrators only
	RequireAdmin(actor models.Actor) error
}
