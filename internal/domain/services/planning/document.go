package planning

import (
	"context"

	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
)

// CreateDocumentRequest is the DTO for creating a planning document
type CreateDocumentRequest struct {
	ProjectID    string `json:"project_id"`
	WorkflowStep int    `json:"workflow_step"`
	Title        string `json:"title"`
	Content      string `json:"content"`
}

// UpdateDocumentRequest is the DTO for editing a private draft.
// Nil fields are left unchanged.
type UpdateDocumentRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ListDocumentsRequest narrows a project listing
type ListDocumentsRequest struct {
	ProjectID    string
	WorkflowStep *int
	Status       *planning.DocumentStatus
}

// DocumentService is the document lifecycle state machine:
//
//	private --request--> pending_approval --approve--> official --(newer approval)--> superseded
//	                      pending_approval --reject--> private
//
// Every transition is a compare-and-swap on status that writes its audit
// entry in the same transaction. A caller that loses a race gets CONFLICT.
type DocumentService interface {
	CreateDocument(ctx context.Context, actor models.Actor, req *CreateDocumentRequest) (*planning.Document, error)

	// UpdateDocument edits a private draft. Content changes bump the version
	// and record a snapshot; title-only changes do not.
	UpdateDocument(ctx context.Context, actor models.Actor, documentID string, req *UpdateDocumentRequest) (*planning.Document, error)

	RequestApproval(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error)
	Approve(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error)
	Reject(ctx context.Context, actor models.Actor, documentID string, reason *string) (*planning.Document, error)

	GetDocument(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error)
	DeleteDocument(ctx context.Context, actor models.Actor, documentID string) error

	// ListDocuments returns the documents of a project the caller may read
	ListDocuments(ctx context.Context, actor models.Actor, req *ListDocumentsRequest) ([]planning.Document, error)

	// ListPendingApprovals returns every pending document, newest first (admin only)
	ListPendingApprovals(ctx context.Context, actor models.Actor) ([]planning.Document, error)
}

// VersionService reads the version and audit trail and restores snapshots
type VersionService interface {
	ListVersions(ctx context.Context, actor models.Actor, documentID string) ([]planning.DocumentVersion, error)
	GetVersion(ctx context.Context, actor models.Actor, documentID string, version int) (*planning.DocumentVersion, error)
	DiffVersions(ctx context.Context, actor models.Actor, documentID string, from, to int) (*planning.VersionDiff, error)

	// RestoreVersion snapshots the current content as a new version and then
	// writes the target version's content as the next one
	RestoreVersion(ctx context.Context, actor models.Actor, documentID string, version int) (*planning.Document, error)

	ListApprovalHistory(ctx context.Context, actor models.Actor, documentID string) ([]planning.ApprovalHistoryEntry, error)
}
