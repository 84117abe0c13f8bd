package planning

import (
	"context"

	"planwise/internal/domain/models/planning"
)

// StatusTransition describes a compare-and-swap on a document's status.
// The write applies only while the row still holds From.
type StatusTransition struct {
	DocumentID   string
	From         planning.DocumentStatus
	To           planning.DocumentStatus
	ApprovedBy   *string // set when To is official
	SupersededBy *string // set when To is superseded
}

// DocumentRepository defines data access operations for planning documents.
// Every mutating method is a compare-and-swap on status: when the row exists
// but no longer holds the expected status it returns a *domain.ConflictError.
type DocumentRepository interface {
	// Create inserts a private document at version 1
	Create(ctx context.Context, doc *planning.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id string) (*planning.Document, error)

	// List returns documents matching the filter ordered by step, then created_at
	List(ctx context.Context, filter planning.DocumentFilter) ([]planning.Document, error)

	// ListPending returns every pending_approval document, newest first
	ListPending(ctx context.Context) ([]planning.Document, error)

	// GetOfficial returns the official document of a step or ErrNotFound
	GetOfficial(ctx context.Context, projectID string, step int) (*planning.Document, error)

	// ListOfficial returns the official document of every step in a project
	ListOfficial(ctx context.Context, projectID string) ([]planning.Document, error)

	// UpdateTitle changes the title without a version bump
	UpdateTitle(ctx context.Context, id string, expected planning.DocumentStatus, title string) (*planning.Document, error)

	// UpdateContent replaces title and content and increments the version in
	// the same statement, returning the stored row
	UpdateContent(ctx context.Context, id string, expected planning.DocumentStatus, title, content string) (*planning.Document, error)

	// BumpVersion increments the version of the row as stored, leaving title
	// and content untouched, and returns it
	BumpVersion(ctx context.Context, id string, expected planning.DocumentStatus) (*planning.Document, error)

	// TransitionStatus applies a status change and returns the stored row
	TransitionStatus(ctx context.Context, t StatusTransition) (*planning.Document, error)

	// Delete removes the document while it still holds the expected status
	Delete(ctx context.Context, id string, expected planning.DocumentStatus) error
}

// VersionRepository defines data access for append-only version snapshots
type VersionRepository interface {
	// Create appends a snapshot; CreatedAt is assigned by the store
	Create(ctx context.Context, version *planning.DocumentVersion) error

	// List returns every snapshot of a document ordered by version ascending
	List(ctx context.Context, documentID string) ([]planning.DocumentVersion, error)

	// Get returns one snapshot or ErrNotFound
	Get(ctx context.Context, documentID string, version int) (*planning.DocumentVersion, error)
}

// ApprovalHistoryRepository defines data access for the approval audit log
type ApprovalHistoryRepository interface {
	// Append writes an audit row; ID and CreatedAt are assigned by the store
	Append(ctx context.Context, entry *planning.ApprovalHistoryEntry) error

	// List returns a document's audit rows ordered by (created_at, id)
	List(ctx context.Context, documentID string) ([]planning.ApprovalHistoryEntry, error)
}
