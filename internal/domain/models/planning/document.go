package planning

import (
	"time"
)

// DocumentStatus is the lifecycle state of a planning document.
type DocumentStatus string

const (
	StatusPrivate         DocumentStatus = "private"
	StatusPendingApproval DocumentStatus = "pending_approval"
	StatusOfficial        DocumentStatus = "official"
	// StatusSuperseded is terminal: a formerly official document replaced by a
	// newer approval. Never requested by callers; set only inside approve.
	StatusSuperseded DocumentStatus = "superseded"
)

// PublicStatuses are the statuses callers may filter by.
var PublicStatuses = []DocumentStatus{StatusPrivate, StatusPendingApproval, StatusOfficial, StatusSuperseded}

func (s DocumentStatus) String() string { return string(s) }

// Document is one author's planning document for a (project, workflow step).
type Document struct {
	ID           string         `json:"id" db:"id"`
	ProjectID    string         `json:"project_id" db:"project_id"`
	WorkflowStep int            `json:"workflow_step" db:"workflow_step"`
	Title        string         `json:"title" db:"title"`
	Content      string         `json:"content" db:"content"` // Markdown content
	Status       DocumentStatus `json:"status" db:"status"`
	Version      int            `json:"version" db:"version"`
	CreatedBy    string         `json:"created_by" db:"created_by"`
	ApprovedBy   *string        `json:"approved_by,omitempty" db:"approved_by"`
	SupersededBy *string        `json:"superseded_by,omitempty" db:"superseded_by"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
	ApprovedAt   *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
}

// IsAuthor reports whether userID created the document.
func (d *Document) IsAuthor(userID string) bool {
	return userID != "" && d.CreatedBy == userID
}

// IsSharedWithProject reports whether every project member may read the
// document. Private drafts are visible to their author and administrators only.
func (d *Document) IsSharedWithProject() bool {
	return d.Status != StatusPrivate
}

// DocumentFilter narrows a project document listing.
type DocumentFilter struct {
	ProjectID    string
	WorkflowStep *int
	Status       *DocumentStatus
}
