package planning

import (
	"time"
)

// DocumentVersion is an append-only content snapshot.
type DocumentVersion struct {
	DocumentID string    `json:"document_id" db:"document_id"`
	Version    int       `json:"version" db:"version"`
	Title      string    `json:"title" db:"title"`
	Content    string    `json:"content" db:"content"`
	CreatedBy  string    `json:"created_by" db:"created_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ApprovalAction is the audit action recorded for a status transition.
type ApprovalAction string

const (
	ActionRequested  ApprovalAction = "requested"
	ActionApproved   ApprovalAction = "approved"
	ActionRejected   ApprovalAction = "rejected"
	ActionSuperseded ApprovalAction = "superseded"
)

// ApprovalHistoryEntry is the authoritative, append-only audit row written
// in the same transaction as every status transition.
type ApprovalHistoryEntry struct {
	ID             int64          `json:"id" db:"id"`
	DocumentID     string         `json:"document_id" db:"document_id"`
	UserID         string         `json:"user_id" db:"user_id"`
	Action         ApprovalAction `json:"action" db:"action"`
	PreviousStatus DocumentStatus `json:"previous_status" db:"previous_status"`
	NewStatus      DocumentStatus `json:"new_status" db:"new_status"`
	Reason         *string        `json:"reason,omitempty" db:"reason"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// LineChange is one line present on one or both sides of a diff.
// Line numbers are 1-based; zero means the line is absent on that side.
type LineChange struct {
	OldLine int    `json:"old_line,omitempty"`
	NewLine int    `json:"new_line,omitempty"`
	Old     string `json:"old,omitempty"`
	New     string `json:"new,omitempty"`
}

// VersionDiff is a line-oriented comparison between two versions.
type VersionDiff struct {
	DocumentID  string       `json:"document_id"`
	FromVersion int          `json:"from_version"`
	ToVersion   int          `json:"to_version"`
	Added       []LineChange `json:"added"`
	Removed     []LineChange `json:"removed"`
	Modified    []LineChange `json:"modified"`
}

// Empty reports whether the two versions are line-for-line identical.
func (d *VersionDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}
