package planning

import (
	"time"
)

// ConflictSeverity grades a conflict report or a single conflict.
type ConflictSeverity string

const (
	SeverityNone     ConflictSeverity = "none"
	SeverityMinor    ConflictSeverity = "minor"
	SeverityMajor    ConflictSeverity = "major"
	SeverityCritical ConflictSeverity = "critical"
)

var severityRank = map[ConflictSeverity]int{
	SeverityNone:     0,
	SeverityMinor:    1,
	SeverityMajor:    2,
	SeverityCritical: 3,
}

// ParseSeverity normalizes a model-supplied severity; unknown values map to minor.
func ParseSeverity(s string) ConflictSeverity {
	sev := ConflictSeverity(s)
	if _, ok := severityRank[sev]; ok {
		return sev
	}
	return SeverityMinor
}

// Rank orders severities from none (0) to critical (3).
func (s ConflictSeverity) Rank() int {
	return severityRank[s]
}

// Conflict is one inconsistency between a draft and an official document.
type Conflict struct {
	Type                  string           `json:"type"`
	Description           string           `json:"description"`
	ConflictingDocumentID string           `json:"conflicting_document_id,omitempty"`
	ConflictingStep       int              `json:"conflicting_step,omitempty"`
	Severity              ConflictSeverity `json:"severity"`
	Suggestion            string           `json:"suggestion,omitempty"`
}

// ConflictReport is advisory output of conflict analysis. It never gates a
// lifecycle transition.
type ConflictReport struct {
	DocumentID        string           `json:"document_id"`
	WorkflowStep      int              `json:"workflow_step"`
	HasConflicts      bool             `json:"has_conflicts"`
	Severity          ConflictSeverity `json:"severity"`
	Conflicts         []Conflict       `json:"conflicts"`
	Recommendations   []string         `json:"recommendations"`
	ComparedDocuments int              `json:"compared_documents"`
	AnalyzedAt        time.Time        `json:"analyzed_at"`
}
