package planning

import (
	"time"
)

// EventType names a change pushed to subscribers.
type EventType string

const (
	EventDocumentCreated EventType = "document_created"
	EventDocumentUpdated EventType = "document_updated"
	EventStatusChanged   EventType = "status_changed"
	EventVersionRecorded EventType = "version_recorded"
	EventDocumentDeleted EventType = "document_deleted"
	// EventResync tells an observer it missed events and should reload.
	EventResync EventType = "resync"
)

// Event is a committed change to a document. Document is nil for deletions
// and resync hints. Origin identifies the process that produced the event.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	ProjectID    string    `json:"project_id"`
	WorkflowStep int       `json:"workflow_step"`
	DocumentID   string    `json:"document_id,omitempty"`
	Document     *Document `json:"document,omitempty"`
	Version      int       `json:"version,omitempty"`
	Origin       string    `json:"origin,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Scope selects which events a subscriber receives. WorkflowStep zero means
// every step of the project.
type Scope struct {
	ProjectID    string
	WorkflowStep int
}

// Matches reports whether the event falls inside the scope.
func (s Scope) Matches(e *Event) bool {
	if s.ProjectID != e.ProjectID {
		return false
	}
	return s.WorkflowStep == 0 || s.WorkflowStep == e.WorkflowStep
}
